package service

import (
	"context"
	"fmt"
	"time"

	"jewelry-backend/internal/model"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier receives billing events as plain data facts. The websocket hub
// implements it; delivery/formatting is not this layer's concern.
type Notifier interface {
	Publish(event string, payload interface{})
}

// Billing event names
const (
	EventScheduleMaterialized = "schedule.materialized"
	EventPaymentApplied       = "payment.applied"
	EventInvoiceFullyPaid     = "invoice.fully_paid"
)

// Caller identifies the authenticated principal. Customer-role callers are
// scoped to the customer record linked to their login; staff and admin see
// everything.
type Caller struct {
	UserID string
	Role   string
}

// --- DTOs ---

type CreateInvoiceRequest struct {
	CustomerID     string `json:"customer_id" binding:"required"`
	Subtotal       string `json:"subtotal" binding:"required"`
	TaxRuleID      string `json:"tax_rule_id"`      // Optional: explicit VAT rule; default = active rule for issue date
	FeeAmount      string `json:"fee_amount"`       // Optional, default derives from active LUXURY_FEE rule
	DiscountAmount string `json:"discount_amount"`  // Optional, default derives from active DISCOUNT rule
	PaymentTermID  string `json:"payment_term_id"`  // Optional: materializes a payment plan on creation
	IssueDate      string `json:"issue_date"`       // YYYY-MM-DD, defaults to today
	Note           string `json:"note"`
}

type InvoiceFilter struct {
	PaymentStatus string
	CustomerID    string
	InvoiceNo     string
	Page          int
	Limit         int
}

type ScheduleRowResponse struct {
	ID              string `json:"id"`
	PaymentType     string `json:"payment_type"`
	DueDate         string `json:"due_date"`
	ExpectedAmount  string `json:"expected_amount"`
	PaidAmount      string `json:"paid_amount"`
	Status          string `json:"status"`
	PaymentOrder    int    `json:"payment_order"`
	IsAutoGenerated bool   `json:"is_auto_generated"`
	Description     string `json:"description"`
}

type InvoiceResponse struct {
	ID                 string                `json:"id"`
	InvoiceNo          string                `json:"invoice_no"`
	CustomerID         string                `json:"customer_id"`
	CustomerName       string                `json:"customer_name,omitempty"`
	TaxRuleID          *string               `json:"tax_rule_id"`
	PaymentTermID      *string               `json:"payment_term_id"`
	Subtotal           string                `json:"subtotal"`
	TaxAmount          string                `json:"tax_amount"`
	FeeAmount          string                `json:"fee_amount"`
	DiscountAmount     string                `json:"discount_amount"`
	TotalAmount        string                `json:"total_amount"`
	TotalPaidAmount    string                `json:"total_paid_amount"`
	RemainingBalance   string                `json:"remaining_balance"`
	PaymentStatus      string                `json:"payment_status"`
	NextPaymentDueDate *string               `json:"next_payment_due_date"`
	PaymentPlanCreated bool                  `json:"payment_plan_created"`
	IssueDate          string                `json:"issue_date"`
	Note               string                `json:"note"`
	Schedules          []ScheduleRowResponse `json:"schedules,omitempty"`
	CreatedAt          string                `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest, userID string) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string, caller Caller) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter, caller Caller) ([]InvoiceResponse, int64, error)
	CreatePaymentPlan(ctx context.Context, invoiceID, termID string, userID string) (InvoiceResponse, error)
	ListSchedules(ctx context.Context, invoiceID string, caller Caller) ([]ScheduleRowResponse, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	scheduleRepo repository.ScheduleRepository
	termRepo     repository.PaymentTermRepository
	customerRepo repository.CustomerRepository
	taxRules     TaxRuleService
	txManager    repository.TransactionManager
	notifier     Notifier
	db           *gorm.DB // explicit tax rule lookup + audit log
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	scheduleRepo repository.ScheduleRepository,
	termRepo repository.PaymentTermRepository,
	customerRepo repository.CustomerRepository,
	taxRules TaxRuleService,
	txManager repository.TransactionManager,
	notifier Notifier,
	db *gorm.DB,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		scheduleRepo: scheduleRepo,
		termRepo:     termRepo,
		customerRepo: customerRepo,
		taxRules:     taxRules,
		txManager:    txManager,
		notifier:     notifier,
		db:           db,
	}
}

// customerScope resolves the customer a customer-role caller may see. Staff
// and admin callers get a nil scope (unrestricted).
func customerScope(ctx context.Context, customers repository.CustomerRepository, caller Caller) (*uuid.UUID, error) {
	if caller.Role != model.RoleCustomer {
		return nil, nil
	}
	userID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	customer, err := customers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, &schedule.NotFoundError{Msg: "no customer account is linked to this login"}
	}
	return &customer.ID, nil
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, userID string) (InvoiceResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid customer_id: %w", err)
	}
	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		return InvoiceResponse{}, &schedule.NotFoundError{Msg: "customer not found"}
	}

	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid subtotal: %w", err)
	}

	// Default issue date is today's calendar date; Truncate works on absolute
	// time and can land on yesterday in non-UTC deployments.
	now := time.Now()
	issueDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.IssueDate != "" {
		if issueDate, err = time.Parse("2006-01-02", req.IssueDate); err != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid issue_date (expected YYYY-MM-DD): %w", err)
		}
	}

	// Explicit amounts win; absent ones derive from the rules active on the
	// issue date. A kind with no active rule contributes zero.
	feeAmount := decimal.Zero
	if req.FeeAmount != "" {
		if feeAmount, err = decimal.NewFromString(req.FeeAmount); err != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid fee_amount: %w", err)
		}
	} else {
		feeRate, _, rateErr := s.taxRules.ResolveRate(ctx, model.RuleKindLuxuryFee, issueDate)
		if rateErr != nil {
			return InvoiceResponse{}, rateErr
		}
		feeAmount = subtotal.Mul(feeRate).Round(2)
	}
	discountAmount := decimal.Zero
	if req.DiscountAmount != "" {
		if discountAmount, err = decimal.NewFromString(req.DiscountAmount); err != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid discount_amount: %w", err)
		}
	} else {
		discountRate, _, rateErr := s.taxRules.ResolveRate(ctx, model.RuleKindDiscount, issueDate)
		if rateErr != nil {
			return InvoiceResponse{}, rateErr
		}
		discountAmount = subtotal.Mul(discountRate).Round(2)
	}

	taxAmount := decimal.Zero
	var taxRuleID *uuid.UUID
	if req.TaxRuleID != "" {
		parsed, parseErr := uuid.Parse(req.TaxRuleID)
		if parseErr != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid tax_rule_id: %w", parseErr)
		}
		var rule model.TaxRule
		if findErr := s.db.WithContext(ctx).First(&rule, "id = ?", parsed).Error; findErr != nil {
			return InvoiceResponse{}, &schedule.NotFoundError{Msg: "tax rule not found"}
		}
		taxRuleID = &parsed
		taxAmount = subtotal.Mul(rule.Rate).Round(2)
	} else {
		vatRate, vatRuleID, rateErr := s.taxRules.ResolveRate(ctx, model.RuleKindVAT, issueDate)
		if rateErr != nil {
			return InvoiceResponse{}, rateErr
		}
		taxRuleID = vatRuleID
		taxAmount = subtotal.Mul(vatRate).Round(2)
	}

	totalAmount := subtotal.Add(taxAmount).Add(feeAmount).Sub(discountAmount)
	if !totalAmount.IsPositive() {
		return InvoiceResponse{}, fmt.Errorf("invoice total must be positive, got %s", totalAmount.String())
	}

	var termID *uuid.UUID
	var term *model.PaymentTerm
	if req.PaymentTermID != "" {
		parsed, parseErr := uuid.Parse(req.PaymentTermID)
		if parseErr != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid payment_term_id: %w", parseErr)
		}
		term, err = s.termRepo.FindByID(ctx, parsed)
		if err != nil {
			return InvoiceResponse{}, &schedule.NotFoundError{Msg: "payment term not found"}
		}
		if !term.Active {
			return InvoiceResponse{}, fmt.Errorf("payment term '%s' is inactive", term.Code)
		}
		termID = &parsed
	}

	invoiceNo, err := s.generateInvoiceNo(ctx)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice := model.Invoice{
		InvoiceNo:        invoiceNo,
		CustomerID:       customerID,
		TaxRuleID:        taxRuleID,
		PaymentTermID:    termID,
		Subtotal:         subtotal,
		TaxAmount:        taxAmount,
		FeeAmount:        feeAmount,
		DiscountAmount:   discountAmount,
		TotalAmount:      totalAmount,
		TotalPaidAmount:  decimal.Zero,
		RemainingBalance: totalAmount,
		PaymentStatus:    model.PaymentStatusUnpaid,
		IssueDate:        issueDate,
		Note:             req.Note,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.invoiceRepo.Create(txCtx, &invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}
		if term == nil {
			return nil
		}
		return s.materializePlan(txCtx, &invoice, term)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	writeAuditLog(ctx, s.db, userID, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNo, req)

	return s.GetInvoice(ctx, invoice.ID.String(), Caller{})
}

// CreatePaymentPlan attaches a payment term to an existing invoice and
// materializes its schedule rows. Called exactly once per invoice; a second
// call is a conflict.
func (s *invoiceService) CreatePaymentPlan(ctx context.Context, invoiceID, termID string, userID string) (InvoiceResponse, error) {
	invID, err := uuid.Parse(invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}
	tID, err := uuid.Parse(termID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid payment term id: %w", err)
	}

	term, err := s.termRepo.FindByID(ctx, tID)
	if err != nil {
		return InvoiceResponse{}, &schedule.NotFoundError{Msg: "payment term not found"}
	}
	if !term.Active {
		return InvoiceResponse{}, fmt.Errorf("payment term '%s' is inactive", term.Code)
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.invoiceRepo.FindByIDForUpdate(txCtx, invID)
		if findErr != nil {
			return &schedule.NotFoundError{Msg: "invoice not found"}
		}

		invoice.PaymentTermID = &tID
		return s.materializePlan(txCtx, invoice, term)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	writeAuditLog(ctx, s.db, userID, model.ActionCreatePaymentPlan, invoice.ID.String(), invoice.InvoiceNo,
		map[string]string{"payment_term_id": termID})

	return s.GetInvoice(ctx, invoice.ID.String(), Caller{})
}

// materializePlan runs inside the caller's transaction.
func (s *invoiceService) materializePlan(ctx context.Context, invoice *model.Invoice, term *model.PaymentTerm) error {
	existing, err := s.scheduleRepo.CountByInvoice(ctx, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing schedules: %w", err)
	}

	rows, err := schedule.Materialize(invoice, term, int(existing))
	if err != nil {
		return err
	}

	if err := s.scheduleRepo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("failed to create schedule rows: %w", err)
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	s.notifier.Publish(EventScheduleMaterialized, map[string]interface{}{
		"invoice_id":   invoice.ID.String(),
		"invoice_no":   invoice.InvoiceNo,
		"term_code":    term.Code,
		"row_count":    len(rows),
		"total_amount": invoice.TotalAmount.StringFixed(2),
	})

	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string, caller Caller) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	invoice, err := s.invoiceRepo.FindByIDWithRelations(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, &schedule.NotFoundError{Msg: "invoice not found"}
	}

	scope, err := customerScope(ctx, s.customerRepo, caller)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if scope != nil && invoice.CustomerID != *scope {
		return InvoiceResponse{}, &schedule.NotFoundError{Msg: "invoice not found"}
	}

	rows, err := s.scheduleRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to fetch schedule rows: %w", err)
	}

	// Overdue is a derived view: recompute the aggregate against the clock
	// without persisting.
	schedule.Recompute(invoice, rows, invoice.TotalPaidAmount, time.Now())

	resp := toInvoiceResponse(*invoice)
	resp.Schedules = toScheduleRowResponses(rows, time.Now())
	return resp, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter, caller Caller) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.InvoiceListFilter{
		PaymentStatus: filter.PaymentStatus,
		InvoiceNo:     filter.InvoiceNo,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}
	if filter.CustomerID != "" {
		parsed, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid customer_id: %w", err)
		}
		repoFilter.CustomerID = &parsed
	}

	// Customer callers only ever see their own invoices, whatever the filter says.
	scope, err := customerScope(ctx, s.customerRepo, caller)
	if err != nil {
		return nil, 0, err
	}
	if scope != nil {
		repoFilter.CustomerID = scope
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

func (s *invoiceService) ListSchedules(ctx context.Context, invoiceID string, caller Caller) ([]ScheduleRowResponse, error) {
	invID, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invID)
	if err != nil {
		return nil, &schedule.NotFoundError{Msg: "invoice not found"}
	}

	scope, err := customerScope(ctx, s.customerRepo, caller)
	if err != nil {
		return nil, err
	}
	if scope != nil && invoice.CustomerID != *scope {
		return nil, &schedule.NotFoundError{Msg: "invoice not found"}
	}

	rows, err := s.scheduleRepo.FindByInvoice(ctx, invID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule rows: %w", err)
	}

	return toScheduleRowResponses(rows, time.Now()), nil
}

func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "INV-" + today + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:                 inv.ID.String(),
		InvoiceNo:          inv.InvoiceNo,
		CustomerID:         inv.CustomerID.String(),
		Subtotal:           inv.Subtotal.StringFixed(2),
		TaxAmount:          inv.TaxAmount.StringFixed(2),
		FeeAmount:          inv.FeeAmount.StringFixed(2),
		DiscountAmount:     inv.DiscountAmount.StringFixed(2),
		TotalAmount:        inv.TotalAmount.StringFixed(2),
		TotalPaidAmount:    inv.TotalPaidAmount.StringFixed(2),
		RemainingBalance:   inv.RemainingBalance.StringFixed(2),
		PaymentStatus:      inv.PaymentStatus,
		PaymentPlanCreated: inv.PaymentPlanCreated,
		IssueDate:          inv.IssueDate.Format("2006-01-02"),
		Note:               inv.Note,
		CreatedAt:          inv.CreatedAt.Format(time.RFC3339),
	}

	if inv.Customer != nil {
		resp.CustomerName = inv.Customer.FirstName + " " + inv.Customer.LastName
	}
	if inv.TaxRuleID != nil {
		s := inv.TaxRuleID.String()
		resp.TaxRuleID = &s
	}
	if inv.PaymentTermID != nil {
		s := inv.PaymentTermID.String()
		resp.PaymentTermID = &s
	}
	if inv.NextPaymentDueDate != nil {
		s := inv.NextPaymentDueDate.Format("2006-01-02")
		resp.NextPaymentDueDate = &s
	}

	return resp
}

func toScheduleRowResponses(rows []model.InvoicePaymentSchedule, now time.Time) []ScheduleRowResponse {
	result := make([]ScheduleRowResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, ScheduleRowResponse{
			ID:              row.ID.String(),
			PaymentType:     row.PaymentType,
			DueDate:         row.DueDate.Format("2006-01-02"),
			ExpectedAmount:  row.ExpectedAmount.StringFixed(2),
			PaidAmount:      row.PaidAmount.StringFixed(2),
			Status:          schedule.EffectiveStatus(row, now),
			PaymentOrder:    row.PaymentOrder,
			IsAutoGenerated: row.IsAutoGenerated,
			Description:     row.Description,
		})
	}
	return result
}
