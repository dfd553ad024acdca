package schedule

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Percentage comparisons allow a 0.01 tolerance; generated schedules still
// sum exactly (see GenerateEqual).
var tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// MonthShare is one month's slice of a term's remaining percentage.
type MonthShare struct {
	MonthNumber int
	Percentage  decimal.Decimal
	Description string
}

// ValidateTerm checks a payment term definition for completeness and internal
// consistency. All checks run independently and every failure is reported in
// the returned ValidationError — the validation never short-circuits.
func ValidateTerm(downPct, remainingPct decimal.Decimal, termMonths int, shares []MonthShare) error {
	var violations []string

	if len(shares) != termMonths {
		violations = append(violations,
			fmt.Sprintf("schedule count mismatch: got %d entries for a %d-month term", len(shares), termMonths))
	}

	months := make([]int, 0, len(shares))
	for _, s := range shares {
		months = append(months, s.MonthNumber)
	}
	sort.Ints(months)
	sequential := len(months) == termMonths
	for i, m := range months {
		if m != i+1 {
			sequential = false
			break
		}
	}
	if !sequential {
		violations = append(violations,
			fmt.Sprintf("month numbers must be exactly 1..%d with no duplicates or gaps", termMonths))
	}

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Percentage)
	}
	if sum.Sub(remainingPct).Abs().GreaterThan(tolerance) {
		violations = append(violations,
			fmt.Sprintf("schedule percentages sum to %s, expected %s", sum.String(), remainingPct.String()))
	}

	if downPct.Add(remainingPct).Sub(hundred).Abs().GreaterThan(tolerance) {
		violations = append(violations,
			fmt.Sprintf("payment breakdown must equal 100%%: down %s + remaining %s", downPct.String(), remainingPct.String()))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
