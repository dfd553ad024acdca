package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus enum constants
const (
	PaymentStatusUnpaid        = "UNPAID"
	PaymentStatusPartiallyPaid = "PARTIALLY_PAID"
	PaymentStatusFullyPaid     = "FULLY_PAID"
	PaymentStatusOverdue       = "OVERDUE"
)

// Invoice represents a customer invoice for jewelry orders.
// total_amount = subtotal + tax_amount + fee_amount - discount_amount.
// The aggregate fields (total_paid_amount, remaining_balance, payment_status,
// next_payment_due_date) are a derived view recomputed after every payment
// mutation — never set piecemeal.
type Invoice struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo          string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer           *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	TaxRuleID          *uuid.UUID      `gorm:"type:uuid;index" json:"tax_rule_id"`
	TaxRule            *TaxRule        `gorm:"foreignKey:TaxRuleID" json:"tax_rule,omitempty"`
	PaymentTermID      *uuid.UUID      `gorm:"type:uuid;index" json:"payment_term_id"`
	PaymentTerm        *PaymentTerm    `gorm:"foreignKey:PaymentTermID" json:"payment_term,omitempty"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	FeeAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"fee_amount"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	TotalPaidAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_paid_amount"`
	RemainingBalance   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"remaining_balance"`
	PaymentStatus      string          `gorm:"type:varchar(20);not null;default:'UNPAID';index" json:"payment_status"`
	NextPaymentDueDate *time.Time      `gorm:"type:date" json:"next_payment_due_date"`
	PaymentPlanCreated bool            `gorm:"default:false" json:"payment_plan_created"`
	IssueDate          time.Time       `gorm:"type:date;not null" json:"issue_date"`
	Note               string          `gorm:"type:text" json:"note"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
