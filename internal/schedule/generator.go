package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GenerateEqual splits remainingPct evenly across termMonths. Months
// 1..termMonths-1 get the per-month share rounded down to 2 decimals; the
// last month takes the residual, so the shares sum to remainingPct exactly
// rather than within tolerance.
func GenerateEqual(remainingPct decimal.Decimal, termMonths int) ([]MonthShare, error) {
	if termMonths < 1 {
		return nil, fmt.Errorf("term months must be at least 1, got %d", termMonths)
	}
	if remainingPct.IsNegative() {
		return nil, fmt.Errorf("remaining percentage must not be negative, got %s", remainingPct.String())
	}

	per := remainingPct.Div(decimal.NewFromInt(int64(termMonths))).RoundDown(2)

	shares := make([]MonthShare, 0, termMonths)
	allocated := decimal.Zero
	for m := 1; m < termMonths; m++ {
		shares = append(shares, MonthShare{MonthNumber: m, Percentage: per})
		allocated = allocated.Add(per)
	}
	shares = append(shares, MonthShare{
		MonthNumber: termMonths,
		Percentage:  remainingPct.Sub(allocated),
	})

	return shares, nil
}
