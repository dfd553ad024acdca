package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jewelry-backend/internal/model"
	"jewelry-backend/internal/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTaxRuleRequest struct {
	Kind          string `json:"kind" binding:"required,oneof=VAT LUXURY_FEE DISCOUNT"`
	Rate          string `json:"rate" binding:"required"`           // Decimal string, e.g. "0.12"
	EffectiveFrom string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Description   string `json:"description"`
}

type UpdateTaxRuleRequest struct {
	Kind          string `json:"kind" binding:"required,oneof=VAT LUXURY_FEE DISCOUNT"`
	Rate          string `json:"rate" binding:"required"`
	EffectiveFrom string `json:"effective_from" binding:"required"`
	EffectiveTo   string `json:"effective_to"`
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Rate          string  `json:"rate"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ActiveRateResponse struct {
	Kind   string `json:"kind"`
	Rate   string `json:"rate"`
	RuleID string `json:"rule_id"`
}

// --- Interface ---

type TaxRuleService interface {
	GetTaxRules(ctx context.Context) ([]TaxRuleResponse, error)
	CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest, userID string) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, id string, req UpdateTaxRuleRequest, userID string) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, id string, userID string) error
	GetActiveRate(ctx context.Context, kind string) (*ActiveRateResponse, error)
	ResolveRate(ctx context.Context, kind string, targetDate time.Time) (decimal.Decimal, *uuid.UUID, error)
}

type taxRuleService struct {
	db *gorm.DB
}

func NewTaxRuleService(db *gorm.DB) TaxRuleService {
	return &taxRuleService{db: db}
}

// --- Implementation ---

func (s *taxRuleService) GetTaxRules(ctx context.Context) ([]TaxRuleResponse, error) {
	var rules []model.TaxRule
	if err := s.db.WithContext(ctx).Order("effective_from DESC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}

	return res, nil
}

func (s *taxRuleService) CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest, userID string) (TaxRuleResponse, error) {
	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.Rate, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	// Validate overlap
	if err := s.checkOverlap(ctx, req.Kind, effectiveFrom, effectiveTo, nil); err != nil {
		return TaxRuleResponse{}, err
	}

	rule := model.TaxRule{
		Kind:          req.Kind,
		Rate:          rate,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Description:   req.Description,
	}

	if err := s.db.WithContext(ctx).Create(&rule).Error; err != nil {
		return TaxRuleResponse{}, fmt.Errorf("failed to create tax rule: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionCreateTaxRule, rule.ID.String(), req.Kind+" "+rate.StringFixed(4), req)

	return toTaxRuleResponse(rule), nil
}

func (s *taxRuleService) UpdateTaxRule(ctx context.Context, id string, req UpdateTaxRuleRequest, userID string) (TaxRuleResponse, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return TaxRuleResponse{}, fmt.Errorf("invalid tax rule id: %w", err)
	}

	var rule model.TaxRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TaxRuleResponse{}, &schedule.NotFoundError{Msg: "tax rule not found"}
		}
		return TaxRuleResponse{}, fmt.Errorf("failed to fetch tax rule: %w", err)
	}

	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.Rate, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	// Validate overlap (exclude self)
	if err := s.checkOverlap(ctx, req.Kind, effectiveFrom, effectiveTo, &ruleID); err != nil {
		return TaxRuleResponse{}, err
	}

	rule.Kind = req.Kind
	rule.Rate = rate
	rule.EffectiveFrom = effectiveFrom
	rule.EffectiveTo = effectiveTo
	rule.Description = req.Description

	if err := s.db.WithContext(ctx).Save(&rule).Error; err != nil {
		return TaxRuleResponse{}, fmt.Errorf("failed to update tax rule: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionUpdateTaxRule, rule.ID.String(), req.Kind+" "+rate.StringFixed(4), req)

	return toTaxRuleResponse(rule), nil
}

func (s *taxRuleService) DeleteTaxRule(ctx context.Context, id string, userID string) error {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid tax rule id: %w", err)
	}

	var rule model.TaxRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &schedule.NotFoundError{Msg: "tax rule not found"}
		}
		return fmt.Errorf("failed to fetch tax rule: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&rule).Error; err != nil {
		return fmt.Errorf("failed to delete tax rule: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionDeleteTaxRule, rule.ID.String(), rule.Kind+" "+rule.Rate.StringFixed(4), map[string]string{"deleted_id": id})

	return nil
}

func (s *taxRuleService) GetActiveRate(ctx context.Context, kind string) (*ActiveRateResponse, error) {
	var rule model.TaxRule
	now := time.Now()

	err := s.db.WithContext(ctx).
		Where("kind = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)",
			kind, now, now).
		Order("effective_from DESC").
		First(&rule).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No active rate — not an error
		}
		return nil, fmt.Errorf("failed to query active rate: %w", err)
	}

	return &ActiveRateResponse{
		Kind:   rule.Kind,
		Rate:   rule.Rate.StringFixed(4),
		RuleID: rule.ID.String(),
	}, nil
}

// ResolveRate finds the rate in effect for a kind on a date, along with the
// matching rule's id. A kind with no active rule resolves to a zero rate, not
// an error — invoice creation treats a missing rule as "no charge".
// Query: effective_from <= targetDate AND (effective_to IS NULL OR effective_to >= targetDate)
func (s *taxRuleService) ResolveRate(ctx context.Context, kind string, targetDate time.Time) (decimal.Decimal, *uuid.UUID, error) {
	var rule model.TaxRule

	err := s.db.WithContext(ctx).
		Where("kind = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)",
			kind, targetDate, targetDate).
		Order("effective_from DESC").
		First(&rule).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil, nil
		}
		return decimal.Zero, nil, fmt.Errorf("failed to query tax rule: %w", err)
	}

	return rule.Rate, &rule.ID, nil
}

// --- Helpers ---

func parseTaxRuleFields(rateStr, fromStr, toStr string) (decimal.Decimal, time.Time, *time.Time, error) {
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("invalid rate value: %w", err)
	}

	effectiveFrom, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("invalid effective_from date format (expected YYYY-MM-DD): %w", err)
	}

	var effectiveTo *time.Time
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return decimal.Zero, time.Time{}, nil, fmt.Errorf("invalid effective_to date format (expected YYYY-MM-DD): %w", err)
		}
		effectiveTo = &t
	}

	return rate, effectiveFrom, effectiveTo, nil
}

func (s *taxRuleService) checkOverlap(ctx context.Context, kind string, from time.Time, to *time.Time, excludeID *uuid.UUID) error {
	upper := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if to != nil {
		upper = *to
	}

	query := s.db.WithContext(ctx).Model(&model.TaxRule{}).
		Where("kind = ?", kind).
		Where("effective_from <= ?", upper).
		Where("(effective_to IS NULL OR effective_to >= ?)", from)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}

	if count > 0 {
		return &schedule.ConflictError{Msg: fmt.Sprintf("a rule for '%s' already exists with overlapping effective dates", kind)}
	}

	return nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:            r.ID.String(),
		Kind:          r.Kind,
		Rate:          r.Rate.StringFixed(4),
		EffectiveFrom: r.EffectiveFrom.Format("2006-01-02"),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}
