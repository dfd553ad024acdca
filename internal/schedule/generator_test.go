package schedule

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEqualExactSum(t *testing.T) {
	shares, err := GenerateEqual(dec("100"), 3)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	assert.True(t, shares[0].Percentage.Equal(dec("33.33")))
	assert.True(t, shares[1].Percentage.Equal(dec("33.33")))
	assert.True(t, shares[2].Percentage.Equal(dec("33.34")))

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Percentage)
	}
	assert.True(t, sum.Equal(dec("100")), "shares must sum exactly, got %s", sum)
}

func TestGenerateEqualSingleMonth(t *testing.T) {
	shares, err := GenerateEqual(dec("70"), 1)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, 1, shares[0].MonthNumber)
	assert.True(t, shares[0].Percentage.Equal(dec("70")))
}

func TestGenerateEqualValidatesAgainstTerm(t *testing.T) {
	// Generated schedules always pass the allocator for a matching term.
	for months := 1; months <= 12; months++ {
		shares, err := GenerateEqual(dec("70"), months)
		require.NoError(t, err)
		assert.NoError(t, ValidateTerm(dec("30"), dec("70"), months, shares), "months=%d", months)
	}
}

func TestGenerateEqualRejectsBadInput(t *testing.T) {
	_, err := GenerateEqual(dec("70"), 0)
	assert.Error(t, err)

	_, err = GenerateEqual(dec("-1"), 3)
	assert.Error(t, err)
}
