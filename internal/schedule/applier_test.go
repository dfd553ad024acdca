package schedule

import (
	"testing"
	"time"

	"jewelry-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planFixture builds a 10000-total plan: 30% down, then 40%/30%
// over two months.
func planFixture(t *testing.T) (*model.Invoice, []model.InvoicePaymentSchedule) {
	t.Helper()

	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("10000.00", issue)
	term := testTerm("30", "70", 2, []MonthShare{
		{MonthNumber: 1, Percentage: dec("40")},
		{MonthNumber: 2, Percentage: dec("30")},
	})

	rows, err := Materialize(invoice, term, 0)
	require.NoError(t, err)
	for i := range rows {
		rows[i].ID = uuid.New()
	}
	return invoice, rows
}

func applyAndMerge(t *testing.T, rows []model.InvoicePaymentSchedule, amount string, targets []uuid.UUID) []model.InvoicePaymentSchedule {
	t.Helper()

	result, err := Apply(rows, dec(amount), targets)
	require.NoError(t, err)

	updated := map[uuid.UUID]model.InvoicePaymentSchedule{}
	for _, r := range result.Rows {
		updated[r.ID] = r
	}
	merged := make([]model.InvoicePaymentSchedule, len(rows))
	copy(merged, rows)
	for i, r := range merged {
		if u, ok := updated[r.ID]; ok {
			merged[i] = u
		}
	}
	return merged
}

func TestApplyExactDownPayment(t *testing.T) {
	invoice, rows := planFixture(t)

	merged := applyAndMerge(t, rows, "3000.00", []uuid.UUID{rows[0].ID})
	assert.Equal(t, model.ScheduleStatusPaid, merged[0].Status)
	assert.True(t, merged[0].PaidAmount.Equal(dec("3000.00")))

	Recompute(invoice, merged, dec("3000.00"), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC))
	assert.True(t, invoice.RemainingBalance.Equal(dec("7000.00")))
	assert.Equal(t, model.PaymentStatusPartiallyPaid, invoice.PaymentStatus)
	require.NotNil(t, invoice.NextPaymentDueDate)
	assert.Equal(t, rows[1].DueDate, *invoice.NextPaymentDueDate)
}

func TestApplyPartialThenRemainder(t *testing.T) {
	_, rows := planFixture(t)

	merged := applyAndMerge(t, rows, "1000.00", []uuid.UUID{rows[0].ID})
	assert.Equal(t, model.ScheduleStatusPartial, merged[0].Status)
	assert.True(t, merged[0].PaidAmount.Equal(dec("1000.00")))

	merged = applyAndMerge(t, merged, "2000.00", []uuid.UUID{rows[0].ID})
	assert.Equal(t, model.ScheduleStatusPaid, merged[0].Status)
	assert.True(t, merged[0].PaidAmount.Equal(dec("3000.00")))
}

func TestApplyCarriesRemainderAcrossTargets(t *testing.T) {
	_, rows := planFixture(t)

	// 5000 against down payment (3000) + month 1 (4000): first row fills,
	// the 2000 remainder carries to the second.
	merged := applyAndMerge(t, rows, "5000.00", []uuid.UUID{rows[0].ID, rows[1].ID})
	assert.Equal(t, model.ScheduleStatusPaid, merged[0].Status)
	assert.Equal(t, model.ScheduleStatusPartial, merged[1].Status)
	assert.True(t, merged[1].PaidAmount.Equal(dec("2000.00")))
	assert.Equal(t, model.ScheduleStatusPending, merged[2].Status)
}

func TestApplyUnscheduledCreditsInPaymentOrder(t *testing.T) {
	_, rows := planFixture(t)

	merged := applyAndMerge(t, rows, "7500.00", nil)
	assert.Equal(t, model.ScheduleStatusPaid, merged[0].Status)
	assert.Equal(t, model.ScheduleStatusPaid, merged[1].Status)
	assert.Equal(t, model.ScheduleStatusPartial, merged[2].Status)
	assert.True(t, merged[2].PaidAmount.Equal(dec("500.00")))
}

func TestApplyOverpaymentRejectedAndNothingMutated(t *testing.T) {
	_, rows := planFixture(t)

	_, err := Apply(rows, dec("3500.00"), []uuid.UUID{rows[0].ID})
	var aErr *AllocationError
	require.ErrorAs(t, err, &aErr)

	// Inputs are untouched: retry with corrected data starts clean.
	for _, r := range rows {
		assert.True(t, r.PaidAmount.IsZero())
		assert.Equal(t, model.ScheduleStatusPending, r.Status)
	}
}

func TestApplyOverpaymentBeyondWholePlanRejected(t *testing.T) {
	_, rows := planFixture(t)

	_, err := Apply(rows, dec("10000.01"), nil)
	var aErr *AllocationError
	assert.ErrorAs(t, err, &aErr)
}

func TestApplyUnknownTargetRejected(t *testing.T) {
	_, rows := planFixture(t)

	_, err := Apply(rows, dec("100.00"), []uuid.UUID{uuid.New()})
	var nfErr *NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestApplyRejectsNonPositiveAmount(t *testing.T) {
	_, rows := planFixture(t)

	_, err := Apply(rows, dec("0"), nil)
	var aErr *AllocationError
	assert.ErrorAs(t, err, &aErr)
}

func TestSequentialAppliesNeverExceedTotal(t *testing.T) {
	// Serialized outcome of two approvals under the locking discipline.
	invoice, rows := planFixture(t)

	merged := applyAndMerge(t, rows, "6000.00", nil)
	Recompute(invoice, merged, dec("6000.00"), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC))
	assert.True(t, invoice.RemainingBalance.Equal(dec("4000.00")))

	merged = applyAndMerge(t, merged, "4000.00", nil)
	Recompute(invoice, merged, dec("10000.00"), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC))
	assert.True(t, invoice.RemainingBalance.IsZero())
	assert.Equal(t, model.PaymentStatusFullyPaid, invoice.PaymentStatus)
	assert.Nil(t, invoice.NextPaymentDueDate)

	// A third apply has nothing left to credit.
	_, err := Apply(merged, dec("0.01"), nil)
	var aErr *AllocationError
	assert.ErrorAs(t, err, &aErr)
}

func TestEffectiveStatusOverdueIsDerived(t *testing.T) {
	_, rows := planFixture(t)
	row := rows[1] // due 2026-02-15

	before := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	after := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, model.ScheduleStatusPending, EffectiveStatus(row, before))
	assert.Equal(t, model.ScheduleStatusOverdue, EffectiveStatus(row, after))

	row.Status = model.ScheduleStatusPaid
	assert.Equal(t, model.ScheduleStatusPaid, EffectiveStatus(row, after))
}

func TestRecomputeOverdueOverridesPartial(t *testing.T) {
	invoice, rows := planFixture(t)

	merged := applyAndMerge(t, rows, "3000.00", nil)
	// Month 1 (due 2026-02-15) has passed unpaid.
	Recompute(invoice, merged, dec("3000.00"), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, model.PaymentStatusOverdue, invoice.PaymentStatus)
}

func TestRecomputeClampsNegativeBalance(t *testing.T) {
	invoice, rows := planFixture(t)

	Recompute(invoice, rows, dec("12000.00"), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC))
	assert.True(t, invoice.RemainingBalance.IsZero())
	assert.Equal(t, model.PaymentStatusFullyPaid, invoice.PaymentStatus)
}

func TestApplyAllocationsMatchCredits(t *testing.T) {
	_, rows := planFixture(t)

	result, err := Apply(rows, dec("5000.00"), nil)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)

	total := decimal.Zero
	for _, a := range result.Allocations {
		total = total.Add(a.Amount)
	}
	assert.True(t, total.Equal(dec("5000.00")))
	assert.Equal(t, rows[0].ID, result.Allocations[0].ScheduleID)
	assert.Equal(t, rows[1].ID, result.Allocations[1].ScheduleID)
}
