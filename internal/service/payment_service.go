package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jewelry-backend/internal/model"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type SubmitPaymentRequest struct {
	InvoiceID         string   `json:"invoice_id" binding:"required"`
	PaymentType       string   `json:"payment_type" binding:"required,oneof=DOWNPAYMENT MONTHLY FINAL CUSTOM"`
	Method            string   `json:"method" binding:"required,oneof=BANK_TRANSFER CASH CARD GCASH"`
	ReferenceNo       string   `json:"reference_no" binding:"required"`
	AmountPaid        string   `json:"amount_paid" binding:"required"`
	SelectedSchedules []string `json:"selected_schedules"` // Optional schedule row ids to allocate against
	Note              string   `json:"note"`
}

type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type PaymentFilter struct {
	Status     string
	InvoiceID  string
	CustomerID string
	Page       int
	Limit      int
}

type AllocationResponse struct {
	ScheduleID string `json:"schedule_id"`
	Amount     string `json:"amount"`
}

type PaymentResponse struct {
	ID                string               `json:"id"`
	InvoiceID         string               `json:"invoice_id"`
	CustomerID        string               `json:"customer_id"`
	PaymentType       string               `json:"payment_type"`
	Method            string               `json:"method"`
	ReferenceNo       string               `json:"reference_no"`
	AmountPaid        string               `json:"amount_paid"`
	Status            string               `json:"status"`
	SelectedSchedules []string             `json:"selected_schedules"`
	Allocations       []AllocationResponse `json:"allocations"`
	ApprovedBy        *string              `json:"approved_by"`
	ApprovedAt        *string              `json:"approved_at"`
	ConfirmedBy       *string              `json:"confirmed_by"`
	ConfirmedAt       *string              `json:"confirmed_at"`
	RejectionNote     string               `json:"rejection_note"`
	Note              string               `json:"note"`
	CreatedAt         string               `json:"created_at"`
}

// --- Interface ---

type PaymentService interface {
	SubmitPayment(ctx context.Context, req SubmitPaymentRequest, userID string) (PaymentResponse, error)
	ApprovePayment(ctx context.Context, id string, userID string) (PaymentResponse, error)
	RejectPayment(ctx context.Context, id string, req RejectPaymentRequest, userID string) (PaymentResponse, error)
	ConfirmPayment(ctx context.Context, id string, userID string) (PaymentResponse, error)
	GetPayment(ctx context.Context, id string, caller Caller) (PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error)
	DeletePayment(ctx context.Context, id string, userID string) error
}

type paymentService struct {
	paymentRepo  repository.PaymentRepository
	invoiceRepo  repository.InvoiceRepository
	scheduleRepo repository.ScheduleRepository
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
	notifier     Notifier
	db           *gorm.DB // audit log only
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	scheduleRepo repository.ScheduleRepository,
	customerRepo repository.CustomerRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	db *gorm.DB,
) PaymentService {
	return &paymentService{
		paymentRepo:  paymentRepo,
		invoiceRepo:  invoiceRepo,
		scheduleRepo: scheduleRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
		notifier:     notifier,
		db:           db,
	}
}

// --- Implementation ---

func (s *paymentService) SubmitPayment(ctx context.Context, req SubmitPaymentRequest, userID string) (PaymentResponse, error) {
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid invoice_id: %w", err)
	}

	amount, err := decimal.NewFromString(req.AmountPaid)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid amount_paid: %w", err)
	}
	if !amount.IsPositive() {
		return PaymentResponse{}, fmt.Errorf("amount_paid must be positive")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return PaymentResponse{}, &schedule.NotFoundError{Msg: "invoice not found"}
	}

	// Validate the selection up front so the payer sees bad ids immediately,
	// not at approval time.
	targetIDs, err := parseScheduleSelection(req.SelectedSchedules)
	if err != nil {
		return PaymentResponse{}, err
	}
	if len(targetIDs) > 0 {
		rows, rowsErr := s.scheduleRepo.FindByInvoice(ctx, invoiceID)
		if rowsErr != nil {
			return PaymentResponse{}, fmt.Errorf("failed to fetch schedule rows: %w", rowsErr)
		}
		known := make(map[uuid.UUID]bool, len(rows))
		for _, row := range rows {
			known[row.ID] = true
		}
		for _, id := range targetIDs {
			if !known[id] {
				return PaymentResponse{}, &schedule.NotFoundError{Msg: fmt.Sprintf("schedule row %s does not belong to invoice %s", id, invoice.InvoiceNo)}
			}
		}
	}

	selectedJSON, _ := json.Marshal(req.SelectedSchedules)
	if req.SelectedSchedules == nil {
		selectedJSON = []byte("[]")
	}

	payment := model.Payment{
		InvoiceID:         invoiceID,
		CustomerID:        invoice.CustomerID,
		PaymentType:       req.PaymentType,
		Method:            req.Method,
		ReferenceNo:       req.ReferenceNo,
		AmountPaid:        amount,
		Status:            model.PaymentPending,
		SelectedSchedules: string(selectedJSON),
		Note:              req.Note,
	}

	if err := s.paymentRepo.Create(ctx, &payment); err != nil {
		return PaymentResponse{}, fmt.Errorf("failed to create payment: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionSubmitPayment, payment.ID.String(), payment.ReferenceNo, req)

	return toPaymentResponse(payment), nil
}

// ApprovePayment credits the payment against the invoice's schedule rows and
// recomputes the invoice aggregate, all inside one transaction with the
// invoice and its rows locked. The allocation is all-or-nothing: when the
// amount cannot be fully distributed nothing is persisted and the payment
// stays PENDING for manual correction.
//
// Overpayment against selected schedules is rejected rather than spilled to
// other rows — a product decision to keep approvals auditable.
func (s *paymentService) ApprovePayment(ctx context.Context, id string, userID string) (PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}
	approverID, err := uuid.Parse(userID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	var payment *model.Payment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		payment, findErr = s.paymentRepo.FindByID(txCtx, paymentID)
		if findErr != nil {
			return &schedule.NotFoundError{Msg: "payment not found"}
		}
		if payment.Status != model.PaymentPending {
			return &schedule.ConflictError{Msg: fmt.Sprintf("payment is already %s", payment.Status)}
		}

		// Lock order: invoice first, then its schedule rows.
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, payment.InvoiceID)
		if findErr != nil {
			return &schedule.NotFoundError{Msg: "invoice not found"}
		}
		rows, rowsErr := s.scheduleRepo.FindByInvoiceForUpdate(txCtx, invoice.ID)
		if rowsErr != nil {
			return fmt.Errorf("failed to fetch schedule rows: %w", rowsErr)
		}

		var selected []string
		_ = json.Unmarshal([]byte(payment.SelectedSchedules), &selected)
		targetIDs, parseErr := parseScheduleSelection(selected)
		if parseErr != nil {
			return parseErr
		}

		var updatedRows []model.InvoicePaymentSchedule
		if invoice.PaymentPlanCreated {
			result, applyErr := schedule.Apply(rows, payment.AmountPaid, targetIDs)
			if applyErr != nil {
				return applyErr
			}
			if saveErr := s.scheduleRepo.UpdateRows(txCtx, result.Rows); saveErr != nil {
				return fmt.Errorf("failed to update schedule rows: %w", saveErr)
			}

			allocations := make([]model.PaymentAllocation, 0, len(result.Allocations))
			for _, a := range result.Allocations {
				allocations = append(allocations, model.PaymentAllocation{
					PaymentID:  payment.ID,
					ScheduleID: a.ScheduleID,
					Amount:     a.Amount,
				})
			}
			if allocErr := s.paymentRepo.CreateAllocations(txCtx, allocations); allocErr != nil {
				return fmt.Errorf("failed to record allocations: %w", allocErr)
			}

			updatedRows = mergeRows(rows, result.Rows)
		} else {
			// Free-form payment on an invoice without a plan: bounded by the
			// remaining balance, same all-or-nothing rule.
			if payment.AmountPaid.GreaterThan(invoice.RemainingBalance) {
				return &schedule.AllocationError{Msg: fmt.Sprintf(
					"payment %s exceeds the invoice's remaining balance %s",
					payment.AmountPaid.String(), invoice.RemainingBalance.String())}
			}
			updatedRows = rows
		}

		now := time.Now()
		payment.Status = model.PaymentApproved
		payment.ApprovedBy = &approverID
		payment.ApprovedAt = &now
		if updateErr := s.paymentRepo.Update(txCtx, payment); updateErr != nil {
			return fmt.Errorf("failed to update payment: %w", updateErr)
		}

		totalPaid, sumErr := s.paymentRepo.SumSettledByInvoice(txCtx, invoice.ID)
		if sumErr != nil {
			return fmt.Errorf("failed to sum settled payments: %w", sumErr)
		}

		schedule.Recompute(invoice, updatedRows, totalPaid, now)
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice aggregate: %w", updateErr)
		}

		s.notifier.Publish(EventPaymentApplied, map[string]interface{}{
			"payment_id":        payment.ID.String(),
			"invoice_id":        invoice.ID.String(),
			"invoice_no":        invoice.InvoiceNo,
			"amount":            payment.AmountPaid.StringFixed(2),
			"remaining_balance": invoice.RemainingBalance.StringFixed(2),
		})
		if invoice.PaymentStatus == model.PaymentStatusFullyPaid {
			s.notifier.Publish(EventInvoiceFullyPaid, map[string]interface{}{
				"invoice_id": invoice.ID.String(),
				"invoice_no": invoice.InvoiceNo,
			})
		}

		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	writeAuditLog(ctx, s.db, userID, model.ActionApprovePayment, payment.ID.String(), payment.ReferenceNo, nil)

	return s.GetPayment(ctx, id, Caller{})
}

func (s *paymentService) RejectPayment(ctx context.Context, id string, req RejectPaymentRequest, userID string) (PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}
	approverID, err := uuid.Parse(userID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	var payment *model.Payment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		payment, findErr = s.paymentRepo.FindByID(txCtx, paymentID)
		if findErr != nil {
			return &schedule.NotFoundError{Msg: "payment not found"}
		}
		if payment.Status != model.PaymentPending {
			return &schedule.ConflictError{Msg: fmt.Sprintf("payment is already %s", payment.Status)}
		}

		now := time.Now()
		payment.Status = model.PaymentRejected
		payment.ApprovedBy = &approverID
		payment.ApprovedAt = &now
		payment.RejectionNote = req.Reason

		if updateErr := s.paymentRepo.Update(txCtx, payment); updateErr != nil {
			return fmt.Errorf("failed to update payment: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	writeAuditLog(ctx, s.db, userID, model.ActionRejectPayment, payment.ID.String(), payment.ReferenceNo, req)

	return toPaymentResponse(*payment), nil
}

// ConfirmPayment finalizes an APPROVED payment. Aggregates already count
// approved payments, so no reallocation happens here.
func (s *paymentService) ConfirmPayment(ctx context.Context, id string, userID string) (PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}
	confirmerID, err := uuid.Parse(userID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, &schedule.NotFoundError{Msg: "payment not found"}
	}
	if payment.Status != model.PaymentApproved {
		return PaymentResponse{}, &schedule.ConflictError{Msg: fmt.Sprintf("only approved payments can be confirmed, payment is %s", payment.Status)}
	}

	now := time.Now()
	payment.Status = model.PaymentConfirmed
	payment.ConfirmedBy = &confirmerID
	payment.ConfirmedAt = &now

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return PaymentResponse{}, fmt.Errorf("failed to update payment: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionConfirmPayment, payment.ID.String(), payment.ReferenceNo, nil)

	return toPaymentResponse(*payment), nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string, caller Caller) (PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}

	payment, err := s.paymentRepo.FindByIDWithAllocations(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, &schedule.NotFoundError{Msg: "payment not found"}
	}

	scope, err := customerScope(ctx, s.customerRepo, caller)
	if err != nil {
		return PaymentResponse{}, err
	}
	if scope != nil && payment.CustomerID != *scope {
		return PaymentResponse{}, &schedule.NotFoundError{Msg: "payment not found"}
	}

	return toPaymentResponse(*payment), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.PaymentListFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.InvoiceID != "" {
		parsed, err := uuid.Parse(filter.InvoiceID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid invoice_id: %w", err)
		}
		repoFilter.InvoiceID = &parsed
	}
	if filter.CustomerID != "" {
		parsed, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid customer_id: %w", err)
		}
		repoFilter.CustomerID = &parsed
	}

	payments, total, err := s.paymentRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, total, nil
}

func (s *paymentService) DeletePayment(ctx context.Context, id string, userID string) error {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid payment id: %w", err)
	}

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return &schedule.NotFoundError{Msg: "payment not found"}
	}
	if payment.Status != model.PaymentPending && payment.Status != model.PaymentRejected {
		return &schedule.ConflictError{Msg: fmt.Sprintf("cannot delete a payment in status %s", payment.Status)}
	}

	return s.paymentRepo.Delete(ctx, paymentID)
}

// --- Helpers ---

func parseScheduleSelection(ids []string) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule id '%s': %w", raw, err)
		}
		result = append(result, parsed)
	}
	return result, nil
}

// mergeRows overlays the applier's updated copies onto the full row set so
// the aggregate recompute sees every row in its latest state.
func mergeRows(all, updated []model.InvoicePaymentSchedule) []model.InvoicePaymentSchedule {
	byID := make(map[uuid.UUID]model.InvoicePaymentSchedule, len(updated))
	for _, row := range updated {
		byID[row.ID] = row
	}
	merged := make([]model.InvoicePaymentSchedule, len(all))
	copy(merged, all)
	for i, row := range merged {
		if u, ok := byID[row.ID]; ok {
			merged[i] = u
		}
	}
	return merged
}

// --- Mapping ---

func toPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID.String(),
		InvoiceID:     p.InvoiceID.String(),
		CustomerID:    p.CustomerID.String(),
		PaymentType:   p.PaymentType,
		Method:        p.Method,
		ReferenceNo:   p.ReferenceNo,
		AmountPaid:    p.AmountPaid.StringFixed(2),
		Status:        p.Status,
		RejectionNote: p.RejectionNote,
		Note:          p.Note,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}

	_ = json.Unmarshal([]byte(p.SelectedSchedules), &resp.SelectedSchedules)
	if resp.SelectedSchedules == nil {
		resp.SelectedSchedules = []string{}
	}

	for _, a := range p.Allocations {
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			ScheduleID: a.ScheduleID.String(),
			Amount:     a.Amount.StringFixed(2),
		})
	}

	if p.ApprovedBy != nil {
		s := p.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if p.ApprovedAt != nil {
		s := p.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if p.ConfirmedBy != nil {
		s := p.ConfirmedBy.String()
		resp.ConfirmedBy = &s
	}
	if p.ConfirmedAt != nil {
		s := p.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedAt = &s
	}

	return resp
}
