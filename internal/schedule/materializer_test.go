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

func testTerm(down, remaining string, months int, shares []MonthShare) *model.PaymentTerm {
	term := &model.PaymentTerm{
		ID:                    uuid.New(),
		Name:                  "Test term",
		Code:                  "TEST",
		DownPaymentPercentage: dec(down),
		RemainingPercentage:   dec(remaining),
		TermMonths:            months,
	}
	for _, s := range shares {
		term.Schedules = append(term.Schedules, model.PaymentTermSchedule{
			PaymentTermID: term.ID,
			MonthNumber:   s.MonthNumber,
			Percentage:    s.Percentage,
		})
	}
	return term
}

func testInvoice(total string, issue time.Time) *model.Invoice {
	return &model.Invoice{
		ID:               uuid.New(),
		InvoiceNo:        "INV-20260101-00001",
		TotalAmount:      dec(total),
		RemainingBalance: dec(total),
		IssueDate:        issue,
	}
}

func TestMaterializeRowsSumToTotal(t *testing.T) {
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("10000.00", issue)
	term := testTerm("30", "70", 2, []MonthShare{
		{MonthNumber: 1, Percentage: dec("40")},
		{MonthNumber: 2, Percentage: dec("30")},
	})

	rows, err := Materialize(invoice, term, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].ExpectedAmount.Equal(dec("3000.00")))
	assert.True(t, rows[1].ExpectedAmount.Equal(dec("4000.00")))
	assert.True(t, rows[2].ExpectedAmount.Equal(dec("3000.00")))

	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.ExpectedAmount)
	}
	assert.True(t, sum.Equal(invoice.TotalAmount))
}

func TestMaterializeRowShape(t *testing.T) {
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("9000.00", issue)
	term := testTerm("40", "60", 3, []MonthShare{
		{MonthNumber: 1, Percentage: dec("20")},
		{MonthNumber: 2, Percentage: dec("20")},
		{MonthNumber: 3, Percentage: dec("20")},
	})

	rows, err := Materialize(invoice, term, 0)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, model.ScheduleTypeDownPayment, rows[0].PaymentType)
	assert.Equal(t, 1, rows[0].PaymentOrder)
	assert.Equal(t, issue, rows[0].DueDate)

	for i := 1; i < 4; i++ {
		assert.Equal(t, model.ScheduleTypeMonthly, rows[i].PaymentType)
		assert.Equal(t, i+1, rows[i].PaymentOrder)
		assert.Equal(t, issue.AddDate(0, i, 0), rows[i].DueDate)
		assert.Equal(t, model.ScheduleStatusPending, rows[i].Status)
		assert.True(t, rows[i].IsAutoGenerated)
	}
}

func TestMaterializeAbsorbsRoundingDrift(t *testing.T) {
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("100.01", issue)
	shares, err := GenerateEqual(dec("70"), 3)
	require.NoError(t, err)
	term := testTerm("30", "70", 3, shares)

	rows, err := Materialize(invoice, term, 0)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.ExpectedAmount)
	}
	assert.True(t, sum.Equal(dec("100.01")), "rows must sum exactly to the total, got %s", sum)
}

func TestMaterializeSetsInvoicePlanFields(t *testing.T) {
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("5000.00", issue)
	term := testTerm("50", "50", 1, []MonthShare{{MonthNumber: 1, Percentage: dec("50")}})

	_, err := Materialize(invoice, term, 0)
	require.NoError(t, err)

	assert.True(t, invoice.PaymentPlanCreated)
	require.NotNil(t, invoice.NextPaymentDueDate)
	assert.Equal(t, issue, *invoice.NextPaymentDueDate)
}

func TestMaterializeTwiceConflicts(t *testing.T) {
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("5000.00", issue)
	term := testTerm("50", "50", 1, []MonthShare{{MonthNumber: 1, Percentage: dec("50")}})

	rows, err := Materialize(invoice, term, 0)
	require.NoError(t, err)

	_, err = Materialize(invoice, term, len(rows))
	var cErr *ConflictError
	assert.ErrorAs(t, err, &cErr)
}

func TestMaterializeConflictsOnExistingRowsAlone(t *testing.T) {
	// Even with payment_plan_created unset, persisted rows block a rerun.
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("5000.00", issue)
	term := testTerm("50", "50", 1, []MonthShare{{MonthNumber: 1, Percentage: dec("50")}})

	_, err := Materialize(invoice, term, 2)
	var cErr *ConflictError
	assert.ErrorAs(t, err, &cErr)
}

func TestMaterializeRejectsInvalidTerm(t *testing.T) {
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	invoice := testInvoice("5000.00", issue)
	term := testTerm("30", "70", 2, []MonthShare{{MonthNumber: 1, Percentage: dec("70")}})

	_, err := Materialize(invoice, term, 0)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.False(t, invoice.PaymentPlanCreated)
}
