package invoice

import (
	"time"

	"github.com/stallworks/leasing/types"
)

// PeriodLayout is the calendar-month key format used for renewal
// idempotency: one renewal invoice per (lease, period).
const PeriodLayout = "2006-01"

// PeriodOf returns the calendar-month key for a date, e.g. "2024-03".
func PeriodOf(t time.Time) string {
	return t.Format(PeriodLayout)
}

// RemainingBalance returns amount minus amount paid, floored at zero.
func RemainingBalance(inv *Invoice) types.Money {
	remaining := inv.Amount.Subtract(inv.AmountPaid)
	if remaining.IsNegative() {
		return types.Zero(inv.Amount.Currency)
	}
	return remaining
}

// Classify computes the stored status from the amounts alone. Paid iff
// amount_paid covers the full amount; amounts are integer centavos so
// there is no epsilon. Never returns StatusOverdue.
func Classify(inv *Invoice) Status {
	switch {
	case inv.AmountPaid.GreaterThanOrEqual(inv.Amount):
		return StatusPaid
	case inv.AmountPaid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// Overdue reports whether an unpaid invoice's due date has passed.
// It derives the display-only overdue state; stored status is untouched.
func Overdue(inv *Invoice, today time.Time) bool {
	return Classify(inv) != StatusPaid && inv.DueDate.Before(truncateDay(today))
}

// DisplayStatus returns the status to show a caller: the stored
// classification, promoted to overdue when past due.
func DisplayStatus(inv *Invoice, today time.Time) Status {
	if Overdue(inv, today) {
		return StatusOverdue
	}
	return Classify(inv)
}

// OldestUnpaid returns the unpaid invoice with the smallest due date,
// ties broken by creation time and then by ID (K-sortable, so insertion
// order). Returns nil when every invoice is paid.
func OldestUnpaid(invoices []*Invoice) *Invoice {
	var oldest *Invoice
	for _, inv := range invoices {
		if Classify(inv) == StatusPaid {
			continue
		}
		if oldest == nil || dueBefore(inv, oldest) {
			oldest = inv
		}
	}
	return oldest
}

// dueBefore orders unpaid invoices: due date, then created_at, then ID.
func dueBefore(a, b *Invoice) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
