package repository

import (
	"context"

	"jewelry-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleRepository interface {
	CreateBatch(ctx context.Context, rows []model.InvoicePaymentSchedule) error
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePaymentSchedule, error)
	FindByInvoiceForUpdate(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePaymentSchedule, error)
	CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	UpdateRows(ctx context.Context, rows []model.InvoicePaymentSchedule) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) CreateBatch(ctx context.Context, rows []model.InvoicePaymentSchedule) error {
	if len(rows) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&rows).Error
}

func (r *scheduleRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePaymentSchedule, error) {
	var rows []model.InvoicePaymentSchedule
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("payment_order asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByInvoiceForUpdate locks the invoice's schedule rows for the duration of
// the surrounding transaction (payment approval path).
func (r *scheduleRepository) FindByInvoiceForUpdate(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePaymentSchedule, error) {
	var rows []model.InvoicePaymentSchedule
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invoice_id = ?", invoiceID).Order("payment_order asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scheduleRepository) CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.InvoicePaymentSchedule{}).Where("invoice_id = ?", invoiceID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *scheduleRepository) UpdateRows(ctx context.Context, rows []model.InvoicePaymentSchedule) error {
	db := GetDB(ctx, r.db)
	for i := range rows {
		if err := db.Save(&rows[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
