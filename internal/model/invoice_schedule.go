package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SchedulePaymentType enum constants
const (
	ScheduleTypeDownPayment = "DOWNPAYMENT"
	ScheduleTypeMonthly     = "MONTHLY"
	ScheduleTypeFinal       = "FINAL"
	ScheduleTypeCustom      = "CUSTOM"
)

// ScheduleStatus enum constants. OVERDUE is a time-derived view of a PENDING
// or PARTIAL row past its due date — it is never written by the applier.
const (
	ScheduleStatusPending = "PENDING"
	ScheduleStatusPartial = "PARTIAL"
	ScheduleStatusPaid    = "PAID"
	ScheduleStatusOverdue = "OVERDUE"
)

// InvoicePaymentSchedule is one dated, amount-bearing installment obligation
// materialized for a specific invoice from its payment term. Rows are created
// exactly once per invoice and never deleted once paid.
type InvoicePaymentSchedule struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_invoice_order,unique" json:"invoice_id"`
	PaymentType     string          `gorm:"type:varchar(20);not null" json:"payment_type"` // DOWNPAYMENT, MONTHLY, FINAL, CUSTOM
	DueDate         time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	ExpectedAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"expected_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paid_amount"`
	Status          string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentOrder    int             `gorm:"not null;index:idx_invoice_order,unique" json:"payment_order"` // 1 = down payment
	IsAutoGenerated bool            `gorm:"default:true" json:"is_auto_generated"`
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
