package schedule

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateTermOK(t *testing.T) {
	shares := []MonthShare{
		{MonthNumber: 1, Percentage: dec("40")},
		{MonthNumber: 2, Percentage: dec("30")},
	}
	err := ValidateTerm(dec("30"), dec("70"), 2, shares)
	assert.NoError(t, err)
}

func TestValidateTermWithinTolerance(t *testing.T) {
	shares := []MonthShare{
		{MonthNumber: 1, Percentage: dec("35.005")},
		{MonthNumber: 2, Percentage: dec("35")},
	}
	// Sum is 70.005, remaining is 70: off by 0.005, inside the 0.01 tolerance.
	err := ValidateTerm(dec("30"), dec("70"), 2, shares)
	assert.NoError(t, err)
}

func TestValidateTermCountMismatch(t *testing.T) {
	shares := []MonthShare{{MonthNumber: 1, Percentage: dec("70")}}
	err := ValidateTerm(dec("30"), dec("70"), 3, shares)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "count mismatch")
}

func TestValidateTermDuplicateMonths(t *testing.T) {
	shares := []MonthShare{
		{MonthNumber: 1, Percentage: dec("35")},
		{MonthNumber: 1, Percentage: dec("35")},
	}
	err := ValidateTerm(dec("30"), dec("70"), 2, shares)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "no duplicates or gaps")
}

func TestValidateTermGappedMonths(t *testing.T) {
	shares := []MonthShare{
		{MonthNumber: 1, Percentage: dec("35")},
		{MonthNumber: 3, Percentage: dec("35")},
	}
	err := ValidateTerm(dec("30"), dec("70"), 2, shares)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "1..2")
}

func TestValidateTermReportsAllViolationsAtOnce(t *testing.T) {
	// One bad definition trips every check: wrong count, gapped months,
	// wrong percentage sum, and a breakdown that is not 100%.
	shares := []MonthShare{
		{MonthNumber: 2, Percentage: dec("10")},
		{MonthNumber: 4, Percentage: dec("10")},
	}
	err := ValidateTerm(dec("30"), dec("60"), 3, shares)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Violations, 4)
}

func TestValidateTermBreakdownNot100(t *testing.T) {
	shares := []MonthShare{
		{MonthNumber: 1, Percentage: dec("30")},
		{MonthNumber: 2, Percentage: dec("30")},
	}
	err := ValidateTerm(dec("30"), dec("60"), 2, shares)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Violations, 1)
	assert.Contains(t, vErr.Violations[0], "100%")
}
