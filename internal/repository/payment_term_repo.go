package repository

import (
	"context"

	"jewelry-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentTermListFilter narrows the term listing
type PaymentTermListFilter struct {
	ActiveOnly bool
	Code       string
	Page       int
	Limit      int
}

type PaymentTermRepository interface {
	Create(ctx context.Context, term *model.PaymentTerm) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentTerm, error)
	FindByCode(ctx context.Context, code string) (*model.PaymentTerm, error)
	List(ctx context.Context, filter PaymentTermListFilter) ([]model.PaymentTerm, int64, error)
	Update(ctx context.Context, term *model.PaymentTerm) error
	ReplaceSchedules(ctx context.Context, termID uuid.UUID, schedules []model.PaymentTermSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountInvoicesUsing(ctx context.Context, id uuid.UUID) (int64, error)
}

type paymentTermRepository struct {
	db *gorm.DB
}

func NewPaymentTermRepository(db *gorm.DB) PaymentTermRepository {
	return &paymentTermRepository{db: db}
}

func (r *paymentTermRepository) Create(ctx context.Context, term *model.PaymentTerm) error {
	return GetDB(ctx, r.db).Create(term).Error
}

func (r *paymentTermRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentTerm, error) {
	var term model.PaymentTerm
	if err := GetDB(ctx, r.db).Preload("Schedules", func(db *gorm.DB) *gorm.DB {
		return db.Order("month_number asc")
	}).First(&term, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &term, nil
}

func (r *paymentTermRepository) FindByCode(ctx context.Context, code string) (*model.PaymentTerm, error) {
	var term model.PaymentTerm
	if err := GetDB(ctx, r.db).Preload("Schedules").First(&term, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &term, nil
}

func (r *paymentTermRepository) List(ctx context.Context, filter PaymentTermListFilter) ([]model.PaymentTerm, int64, error) {
	var terms []model.PaymentTerm
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PaymentTerm{})
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if filter.Code != "" {
		query = query.Where("code ILIKE ?", "%"+filter.Code+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Schedules", func(db *gorm.DB) *gorm.DB {
		return db.Order("month_number asc")
	}).Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&terms).Error; err != nil {
		return nil, 0, err
	}

	return terms, total, nil
}

func (r *paymentTermRepository) Update(ctx context.Context, term *model.PaymentTerm) error {
	return GetDB(ctx, r.db).Omit("Schedules").Save(term).Error
}

// ReplaceSchedules swaps a term's month schedule in one shot. Callers run this
// inside the same transaction as the term update.
func (r *paymentTermRepository) ReplaceSchedules(ctx context.Context, termID uuid.UUID, schedules []model.PaymentTermSchedule) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("payment_term_id = ?", termID).Delete(&model.PaymentTermSchedule{}).Error; err != nil {
		return err
	}
	if len(schedules) == 0 {
		return nil
	}
	return db.Create(&schedules).Error
}

func (r *paymentTermRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.PaymentTerm{}, "id = ?", id).Error
}

func (r *paymentTermRepository) CountInvoicesUsing(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("payment_term_id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
