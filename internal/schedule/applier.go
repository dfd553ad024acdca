package schedule

import (
	"fmt"
	"sort"
	"time"

	"jewelry-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation records how much of a payment was credited to one schedule row.
type Allocation struct {
	ScheduleID uuid.UUID
	Amount     decimal.Decimal
}

// ApplyResult carries the mutated copies of the credited rows together with
// the per-row allocation amounts. The caller persists rows and allocations
// only when Apply succeeds, which keeps the operation all-or-nothing.
type ApplyResult struct {
	Rows        []model.InvoicePaymentSchedule
	Allocations []Allocation
}

// Apply distributes amount across schedule rows in payment order, crediting
// each row's remaining need (expected - paid) before carrying the remainder
// to the next row.
//
// When targetIDs is non-empty only those rows are credited, and any excess
// beyond their combined remaining need is an AllocationError — overflow is
// rejected rather than spilled to other rows. With no targets, rows are
// credited in ascending payment order until the amount is exhausted; an
// amount exceeding the total outstanding need is likewise rejected.
//
// Apply never mutates its input; callers see changes only through the result.
func Apply(rows []model.InvoicePaymentSchedule, amount decimal.Decimal, targetIDs []uuid.UUID) (*ApplyResult, error) {
	if !amount.IsPositive() {
		return nil, &AllocationError{Msg: "payment amount must be positive"}
	}

	sorted := make([]model.InvoicePaymentSchedule, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PaymentOrder < sorted[j].PaymentOrder })

	var targets []model.InvoicePaymentSchedule
	if len(targetIDs) > 0 {
		wanted := make(map[uuid.UUID]bool, len(targetIDs))
		for _, id := range targetIDs {
			wanted[id] = true
		}
		for _, row := range sorted {
			if wanted[row.ID] {
				targets = append(targets, row)
				delete(wanted, row.ID)
			}
		}
		if len(wanted) > 0 {
			for id := range wanted {
				return nil, &NotFoundError{Msg: fmt.Sprintf("schedule row %s does not belong to this invoice", id)}
			}
		}
	} else {
		targets = sorted
	}

	result := &ApplyResult{}
	remaining := amount
	for i := range targets {
		if remaining.IsZero() {
			break
		}
		row := targets[i]
		need := row.ExpectedAmount.Sub(row.PaidAmount)
		if !need.IsPositive() {
			continue
		}

		credit := decimal.Min(need, remaining)
		row.PaidAmount = row.PaidAmount.Add(credit)
		if row.PaidAmount.GreaterThanOrEqual(row.ExpectedAmount) {
			row.Status = model.ScheduleStatusPaid
		} else {
			row.Status = model.ScheduleStatusPartial
		}
		remaining = remaining.Sub(credit)

		result.Rows = append(result.Rows, row)
		result.Allocations = append(result.Allocations, Allocation{ScheduleID: row.ID, Amount: credit})
	}

	if remaining.IsPositive() {
		if len(targetIDs) > 0 {
			return nil, &AllocationError{Msg: fmt.Sprintf(
				"payment exceeds the selected schedules' remaining need by %s; overpayment is not allowed against selected schedules", remaining.String())}
		}
		return nil, &AllocationError{Msg: fmt.Sprintf(
			"payment exceeds the invoice's outstanding schedule need by %s", remaining.String())}
	}

	return result, nil
}

// EffectiveStatus derives a row's visible status: a PENDING or PARTIAL row
// whose due date has passed reads as OVERDUE. The stored status never holds
// OVERDUE; it is recomputed lazily whenever rows are read.
func EffectiveStatus(row model.InvoicePaymentSchedule, now time.Time) string {
	if row.Status == model.ScheduleStatusPending || row.Status == model.ScheduleStatusPartial {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if row.DueDate.Before(today) {
			return model.ScheduleStatusOverdue
		}
	}
	return row.Status
}

// Recompute derives the invoice's aggregate payment view from its schedule
// rows and the sum of its approved/confirmed payments. It is the only place
// total_paid_amount, remaining_balance, payment_status and
// next_payment_due_date are written.
func Recompute(invoice *model.Invoice, rows []model.InvoicePaymentSchedule, totalPaid decimal.Decimal, now time.Time) {
	invoice.TotalPaidAmount = totalPaid

	balance := invoice.TotalAmount.Sub(totalPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	invoice.RemainingBalance = balance

	switch {
	case balance.IsZero():
		invoice.PaymentStatus = model.PaymentStatusFullyPaid
	case totalPaid.IsPositive():
		invoice.PaymentStatus = model.PaymentStatusPartiallyPaid
	default:
		invoice.PaymentStatus = model.PaymentStatusUnpaid
	}

	if invoice.PaymentStatus != model.PaymentStatusFullyPaid {
		for _, row := range rows {
			if EffectiveStatus(row, now) == model.ScheduleStatusOverdue {
				invoice.PaymentStatus = model.PaymentStatusOverdue
				break
			}
		}
	}

	var next *time.Time
	for _, row := range rows {
		if row.Status != model.ScheduleStatusPending && row.Status != model.ScheduleStatusPartial {
			continue
		}
		if next == nil || row.DueDate.Before(*next) {
			due := row.DueDate
			next = &due
		}
	}
	invoice.NextPaymentDueDate = next
}
