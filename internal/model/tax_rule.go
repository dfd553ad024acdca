package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleKind enum constants
const (
	RuleKindVAT       = "VAT"
	RuleKindLuxuryFee = "LUXURY_FEE"
	RuleKindDiscount  = "DISCOUNT"
)

// TaxRule stores tax, fee, and discount rates with temporal validity.
// Invoice creation resolves the active rule for the issue date.
type TaxRule struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind          string          `gorm:"type:varchar(20);not null;index" json:"kind"`    // VAT, LUXURY_FEE, DISCOUNT
	Rate          decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`        // e.g. 0.12 = 12%
	EffectiveFrom time.Time       `gorm:"type:date;not null;index" json:"effective_from"` // Start date
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"`            // End date, nullable = currently active
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
