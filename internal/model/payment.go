package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentApprovalStatus enum constants
const (
	PaymentPending   = "PENDING"
	PaymentApproved  = "APPROVED"
	PaymentRejected  = "REJECTED"
	PaymentConfirmed = "CONFIRMED"
)

// PaymentMethod enum constants
const (
	MethodBankTransfer = "BANK_TRANSFER"
	MethodCash         = "CASH"
	MethodCard         = "CARD"
	MethodGcash        = "GCASH"
)

// Payment is a customer-submitted or admin-entered payment against an invoice.
// Transitions PENDING -> APPROVED/REJECTED -> CONFIRMED; immutable once
// confirmed except soft delete. Approval is what credits schedule rows.
// SelectedSchedules holds the schedule row ids the payer targeted, as a JSON
// array captured at submission and consumed at approval.
type Payment struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Invoice           *Invoice            `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	CustomerID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer          *Customer           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	PaymentType       string              `gorm:"type:varchar(20);not null" json:"payment_type"` // DOWNPAYMENT, MONTHLY, FINAL, CUSTOM
	Method            string              `gorm:"type:varchar(20);not null" json:"method"`
	ReferenceNo       string              `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference_no"`
	AmountPaid        decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"amount_paid"`
	Status            string              `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	SelectedSchedules string              `gorm:"type:jsonb;not null;default:'[]'" json:"selected_schedules"`
	Allocations       []PaymentAllocation `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"allocations"`
	ApprovedBy        *uuid.UUID          `gorm:"type:uuid" json:"approved_by"`
	Approver          *User               `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt        *time.Time          `json:"approved_at"`
	ConfirmedBy       *uuid.UUID          `gorm:"type:uuid" json:"confirmed_by"`
	ConfirmedAt       *time.Time          `json:"confirmed_at"`
	RejectionNote     string              `gorm:"type:text" json:"rejection_note"`
	Note              string              `gorm:"type:text" json:"note"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         gorm.DeletedAt      `gorm:"index" json:"-"`
}

// PaymentAllocation records how much of one payment was credited to one
// schedule row when the payment was approved.
type PaymentAllocation struct {
	ID         uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentID  uuid.UUID               `gorm:"type:uuid;not null;index" json:"payment_id"`
	ScheduleID uuid.UUID               `gorm:"type:uuid;not null;index" json:"schedule_id"`
	Schedule   *InvoicePaymentSchedule `gorm:"foreignKey:ScheduleID" json:"schedule,omitempty"`
	Amount     decimal.Decimal         `gorm:"type:decimal(18,4);not null" json:"amount"`
	CreatedAt  time.Time               `json:"created_at"`
}
