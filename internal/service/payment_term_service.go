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

// --- DTOs ---

type ScheduleEntryRequest struct {
	MonthNumber int    `json:"month_number" binding:"required,min=1"`
	Percentage  string `json:"percentage" binding:"required"`
	Description string `json:"description"`
}

type CreatePaymentTermRequest struct {
	Name                  string                 `json:"name" binding:"required"`
	Code                  string                 `json:"code" binding:"required"`
	DownPaymentPercentage string                 `json:"down_payment_percentage" binding:"required"`
	RemainingPercentage   string                 `json:"remaining_percentage" binding:"required"`
	TermMonths            int                    `json:"term_months" binding:"required,min=1"`
	Description           string                 `json:"description"`
	Schedules             []ScheduleEntryRequest `json:"schedules"` // Optional: omitted = equal split
}

type UpdatePaymentTermRequest struct {
	Name                  string                 `json:"name" binding:"required"`
	DownPaymentPercentage string                 `json:"down_payment_percentage" binding:"required"`
	RemainingPercentage   string                 `json:"remaining_percentage" binding:"required"`
	TermMonths            int                    `json:"term_months" binding:"required,min=1"`
	Active                *bool                  `json:"active"`
	Description           string                 `json:"description"`
	Schedules             []ScheduleEntryRequest `json:"schedules"`
}

type PaymentTermFilter struct {
	ActiveOnly bool
	Code       string
	Page       int
	Limit      int
}

type ScheduleEntryResponse struct {
	MonthNumber int    `json:"month_number"`
	Percentage  string `json:"percentage"`
	Description string `json:"description"`
}

type PaymentTermResponse struct {
	ID                    string                  `json:"id"`
	Name                  string                  `json:"name"`
	Code                  string                  `json:"code"`
	DownPaymentPercentage string                  `json:"down_payment_percentage"`
	RemainingPercentage   string                  `json:"remaining_percentage"`
	TermMonths            int                     `json:"term_months"`
	Active                bool                    `json:"active"`
	Description           string                  `json:"description"`
	Schedules             []ScheduleEntryResponse `json:"schedules"`
	CreatedAt             string                  `json:"created_at"`
}

// --- Interface ---

type PaymentTermService interface {
	CreatePaymentTerm(ctx context.Context, req CreatePaymentTermRequest, userID string) (PaymentTermResponse, error)
	UpdatePaymentTerm(ctx context.Context, id string, req UpdatePaymentTermRequest, userID string) (PaymentTermResponse, error)
	GetPaymentTerm(ctx context.Context, id string) (PaymentTermResponse, error)
	ListPaymentTerms(ctx context.Context, filter PaymentTermFilter) ([]PaymentTermResponse, int64, error)
	DeletePaymentTerm(ctx context.Context, id string, userID string) error
	PreviewEqualSplit(ctx context.Context, remainingPct string, termMonths int) ([]ScheduleEntryResponse, error)
}

type paymentTermService struct {
	termRepo  repository.PaymentTermRepository
	txManager repository.TransactionManager
	db        *gorm.DB // audit log only
}

func NewPaymentTermService(termRepo repository.PaymentTermRepository, txManager repository.TransactionManager, db *gorm.DB) PaymentTermService {
	return &paymentTermService{termRepo: termRepo, txManager: txManager, db: db}
}

// --- Implementation ---

func (s *paymentTermService) CreatePaymentTerm(ctx context.Context, req CreatePaymentTermRequest, userID string) (PaymentTermResponse, error) {
	downPct, err := decimal.NewFromString(req.DownPaymentPercentage)
	if err != nil {
		return PaymentTermResponse{}, fmt.Errorf("invalid down_payment_percentage: %w", err)
	}
	remainingPct, err := decimal.NewFromString(req.RemainingPercentage)
	if err != nil {
		return PaymentTermResponse{}, fmt.Errorf("invalid remaining_percentage: %w", err)
	}

	shares, err := parseOrGenerateShares(req.Schedules, remainingPct, req.TermMonths)
	if err != nil {
		return PaymentTermResponse{}, err
	}

	if err := schedule.ValidateTerm(downPct, remainingPct, req.TermMonths, shares); err != nil {
		return PaymentTermResponse{}, err
	}

	if _, err := s.termRepo.FindByCode(ctx, req.Code); err == nil {
		return PaymentTermResponse{}, fmt.Errorf("payment term code '%s' already exists", req.Code)
	}

	term := model.PaymentTerm{
		Name:                  req.Name,
		Code:                  req.Code,
		DownPaymentPercentage: downPct,
		RemainingPercentage:   remainingPct,
		TermMonths:            req.TermMonths,
		Active:                true,
		Description:           req.Description,
	}
	for _, share := range shares {
		term.Schedules = append(term.Schedules, model.PaymentTermSchedule{
			MonthNumber: share.MonthNumber,
			Percentage:  share.Percentage,
			Description: share.Description,
		})
	}

	if err := s.termRepo.Create(ctx, &term); err != nil {
		return PaymentTermResponse{}, fmt.Errorf("failed to create payment term: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionCreatePaymentTerm, term.ID.String(), term.Name, req)

	return toPaymentTermResponse(term), nil
}

func (s *paymentTermService) UpdatePaymentTerm(ctx context.Context, id string, req UpdatePaymentTermRequest, userID string) (PaymentTermResponse, error) {
	termID, err := uuid.Parse(id)
	if err != nil {
		return PaymentTermResponse{}, fmt.Errorf("invalid payment term id: %w", err)
	}

	downPct, err := decimal.NewFromString(req.DownPaymentPercentage)
	if err != nil {
		return PaymentTermResponse{}, fmt.Errorf("invalid down_payment_percentage: %w", err)
	}
	remainingPct, err := decimal.NewFromString(req.RemainingPercentage)
	if err != nil {
		return PaymentTermResponse{}, fmt.Errorf("invalid remaining_percentage: %w", err)
	}

	shares, err := parseOrGenerateShares(req.Schedules, remainingPct, req.TermMonths)
	if err != nil {
		return PaymentTermResponse{}, err
	}

	if err := schedule.ValidateTerm(downPct, remainingPct, req.TermMonths, shares); err != nil {
		return PaymentTermResponse{}, err
	}

	var term *model.PaymentTerm
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		term, findErr = s.termRepo.FindByID(txCtx, termID)
		if findErr != nil {
			return &schedule.NotFoundError{Msg: "payment term not found"}
		}

		term.Name = req.Name
		term.DownPaymentPercentage = downPct
		term.RemainingPercentage = remainingPct
		term.TermMonths = req.TermMonths
		term.Description = req.Description
		if req.Active != nil {
			term.Active = *req.Active
		}

		if updateErr := s.termRepo.Update(txCtx, term); updateErr != nil {
			return fmt.Errorf("failed to update payment term: %w", updateErr)
		}

		rows := make([]model.PaymentTermSchedule, 0, len(shares))
		for _, share := range shares {
			rows = append(rows, model.PaymentTermSchedule{
				PaymentTermID: term.ID,
				MonthNumber:   share.MonthNumber,
				Percentage:    share.Percentage,
				Description:   share.Description,
			})
		}
		if replaceErr := s.termRepo.ReplaceSchedules(txCtx, term.ID, rows); replaceErr != nil {
			return fmt.Errorf("failed to replace term schedules: %w", replaceErr)
		}
		term.Schedules = rows

		return nil
	})
	if err != nil {
		return PaymentTermResponse{}, err
	}

	writeAuditLog(ctx, s.db, userID, model.ActionUpdatePaymentTerm, term.ID.String(), term.Name, req)

	return toPaymentTermResponse(*term), nil
}

func (s *paymentTermService) GetPaymentTerm(ctx context.Context, id string) (PaymentTermResponse, error) {
	termID, err := uuid.Parse(id)
	if err != nil {
		return PaymentTermResponse{}, fmt.Errorf("invalid payment term id: %w", err)
	}

	term, err := s.termRepo.FindByID(ctx, termID)
	if err != nil {
		return PaymentTermResponse{}, &schedule.NotFoundError{Msg: "payment term not found"}
	}

	return toPaymentTermResponse(*term), nil
}

func (s *paymentTermService) ListPaymentTerms(ctx context.Context, filter PaymentTermFilter) ([]PaymentTermResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	terms, total, err := s.termRepo.List(ctx, repository.PaymentTermListFilter{
		ActiveOnly: filter.ActiveOnly,
		Code:       filter.Code,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payment terms: %w", err)
	}

	result := make([]PaymentTermResponse, 0, len(terms))
	for _, t := range terms {
		result = append(result, toPaymentTermResponse(t))
	}
	return result, total, nil
}

func (s *paymentTermService) DeletePaymentTerm(ctx context.Context, id string, userID string) error {
	termID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid payment term id: %w", err)
	}

	term, err := s.termRepo.FindByID(ctx, termID)
	if err != nil {
		return &schedule.NotFoundError{Msg: "payment term not found"}
	}

	count, err := s.termRepo.CountInvoicesUsing(ctx, termID)
	if err != nil {
		return fmt.Errorf("failed to check term usage: %w", err)
	}
	if count > 0 {
		return &schedule.ConflictError{Msg: fmt.Sprintf("payment term '%s' is referenced by %d invoice(s) and cannot be deleted", term.Code, count)}
	}

	if err := s.termRepo.Delete(ctx, termID); err != nil {
		return fmt.Errorf("failed to delete payment term: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionDeletePaymentTerm, id, term.Name, map[string]string{"deleted_id": id})

	return nil
}

// PreviewEqualSplit exposes the default equal split so the admin UI can show
// the generated schedule before the term is saved.
func (s *paymentTermService) PreviewEqualSplit(ctx context.Context, remainingPct string, termMonths int) ([]ScheduleEntryResponse, error) {
	pct, err := decimal.NewFromString(remainingPct)
	if err != nil {
		return nil, fmt.Errorf("invalid remaining_percentage: %w", err)
	}

	shares, err := schedule.GenerateEqual(pct, termMonths)
	if err != nil {
		return nil, err
	}

	result := make([]ScheduleEntryResponse, 0, len(shares))
	for _, share := range shares {
		result = append(result, ScheduleEntryResponse{
			MonthNumber: share.MonthNumber,
			Percentage:  share.Percentage.StringFixed(2),
		})
	}
	return result, nil
}

// --- Helpers ---

func parseOrGenerateShares(entries []ScheduleEntryRequest, remainingPct decimal.Decimal, termMonths int) ([]schedule.MonthShare, error) {
	if len(entries) == 0 {
		return schedule.GenerateEqual(remainingPct, termMonths)
	}

	shares := make([]schedule.MonthShare, 0, len(entries))
	for _, e := range entries {
		pct, err := decimal.NewFromString(e.Percentage)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage for month %d: %w", e.MonthNumber, err)
		}
		shares = append(shares, schedule.MonthShare{
			MonthNumber: e.MonthNumber,
			Percentage:  pct,
			Description: e.Description,
		})
	}
	return shares, nil
}

func toPaymentTermResponse(term model.PaymentTerm) PaymentTermResponse {
	resp := PaymentTermResponse{
		ID:                    term.ID.String(),
		Name:                  term.Name,
		Code:                  term.Code,
		DownPaymentPercentage: term.DownPaymentPercentage.StringFixed(2),
		RemainingPercentage:   term.RemainingPercentage.StringFixed(2),
		TermMonths:            term.TermMonths,
		Active:                term.Active,
		Description:           term.Description,
		CreatedAt:             term.CreatedAt.Format(time.RFC3339),
	}
	for _, s := range term.Schedules {
		resp.Schedules = append(resp.Schedules, ScheduleEntryResponse{
			MonthNumber: s.MonthNumber,
			Percentage:  s.Percentage.StringFixed(2),
			Description: s.Description,
		})
	}
	return resp
}
