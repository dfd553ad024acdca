package schedule

import (
	"fmt"
	"sort"

	"jewelry-backend/internal/model"

	"github.com/shopspring/decimal"
)

// Materialize instantiates a payment term's percentages into concrete dated,
// amount-bearing schedule rows for one invoice: a down-payment row due on the
// issue date, then one monthly row per term month. The final row absorbs the
// cumulative rounding residual so the rows sum exactly to the invoice total.
//
// existingRows is the count of schedule rows already persisted for the
// invoice; a second materialization is a ConflictError, never a silent no-op,
// to rule out double billing.
//
// Side effects on the invoice: payment_plan_created is set and
// next_payment_due_date points at the down-payment row.
func Materialize(invoice *model.Invoice, term *model.PaymentTerm, existingRows int) ([]model.InvoicePaymentSchedule, error) {
	if invoice.PaymentPlanCreated || existingRows > 0 {
		return nil, &ConflictError{Msg: fmt.Sprintf("invoice %s already has a payment plan", invoice.InvoiceNo)}
	}

	shares := make([]MonthShare, 0, len(term.Schedules))
	for _, s := range term.Schedules {
		shares = append(shares, MonthShare{
			MonthNumber: s.MonthNumber,
			Percentage:  s.Percentage,
			Description: s.Description,
		})
	}
	if err := ValidateTerm(term.DownPaymentPercentage, term.RemainingPercentage, term.TermMonths, shares); err != nil {
		return nil, err
	}

	sort.Slice(shares, func(i, j int) bool { return shares[i].MonthNumber < shares[j].MonthNumber })

	total := invoice.TotalAmount
	issueDate := invoice.IssueDate

	rows := make([]model.InvoicePaymentSchedule, 0, len(shares)+1)
	rows = append(rows, model.InvoicePaymentSchedule{
		InvoiceID:       invoice.ID,
		PaymentType:     model.ScheduleTypeDownPayment,
		DueDate:         issueDate,
		ExpectedAmount:  total.Mul(term.DownPaymentPercentage).Div(hundred).Round(2),
		PaidAmount:      decimal.Zero,
		Status:          model.ScheduleStatusPending,
		PaymentOrder:    1,
		IsAutoGenerated: true,
		Description:     "Down payment",
	})

	for _, share := range shares {
		rows = append(rows, model.InvoicePaymentSchedule{
			InvoiceID:       invoice.ID,
			PaymentType:     model.ScheduleTypeMonthly,
			DueDate:         issueDate.AddDate(0, share.MonthNumber, 0),
			ExpectedAmount:  total.Mul(share.Percentage).Div(hundred).Round(2),
			PaidAmount:      decimal.Zero,
			Status:          model.ScheduleStatusPending,
			PaymentOrder:    share.MonthNumber + 1,
			IsAutoGenerated: true,
			Description:     share.Description,
		})
	}

	// The last row takes total minus everything before it, protecting the
	// exact-sum invariant against rounding drift across N rows.
	allocated := decimal.Zero
	for i := 0; i < len(rows)-1; i++ {
		allocated = allocated.Add(rows[i].ExpectedAmount)
	}
	rows[len(rows)-1].ExpectedAmount = total.Sub(allocated)

	invoice.PaymentPlanCreated = true
	due := rows[0].DueDate
	invoice.NextPaymentDueDate = &due

	return rows, nil
}
