package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentTerm is a reusable installment template: a down payment percentage
// plus a per-month breakdown of the remaining percentage. Terms are validated
// as a whole before persisting; down + remaining must equal 100 and the
// breakdown must cover months 1..TermMonths exactly.
type PaymentTerm struct {
	ID                    uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                  string                `gorm:"type:varchar(255);not null" json:"name"`
	Code                  string                `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DownPaymentPercentage decimal.Decimal       `gorm:"type:decimal(10,4);not null" json:"down_payment_percentage"`
	RemainingPercentage   decimal.Decimal       `gorm:"type:decimal(10,4);not null" json:"remaining_percentage"`
	TermMonths            int                   `gorm:"not null" json:"term_months"`
	Active                bool                  `gorm:"default:true" json:"active"`
	Description           string                `gorm:"type:text" json:"description"`
	Schedules             []PaymentTermSchedule `gorm:"foreignKey:PaymentTermID;constraint:OnDelete:CASCADE" json:"schedules"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
	DeletedAt             gorm.DeletedAt        `gorm:"index" json:"-"`
}

// PaymentTermSchedule is one month's share of a term's remaining percentage.
type PaymentTermSchedule struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentTermID uuid.UUID       `gorm:"type:uuid;not null;index:idx_term_month,unique" json:"payment_term_id"`
	MonthNumber   int             `gorm:"not null;index:idx_term_month,unique" json:"month_number"` // 1-based
	Percentage    decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"percentage"`
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
