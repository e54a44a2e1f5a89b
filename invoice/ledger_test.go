package invoice

import (
	"testing"
	"time"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRemainingBalance(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		paid     int64
		expected int64
	}{
		{"Untouched", 150000, 0, 150000},
		{"Partial", 150000, 50000, 100000},
		{"Paid exactly", 150000, 150000, 0},
		{"Overpaid floors at zero", 150000, 200000, 0},
		{"Zero amount", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Amount: types.PHP(tt.amount), AmountPaid: types.PHP(tt.paid)}
			got := RemainingBalance(inv)
			if !got.Equal(types.PHP(tt.expected)) {
				t.Errorf("RemainingBalance: got %v, want %v", got, types.PHP(tt.expected))
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		paid     int64
		expected Status
	}{
		{"Nothing paid", 150000, 0, StatusPending},
		{"One centavo paid", 150000, 1, StatusPartial},
		{"Half paid", 150000, 75000, StatusPartial},
		{"One centavo short", 150000, 149999, StatusPartial},
		{"Paid exactly", 150000, 150000, StatusPaid},
		{"Overpaid", 150000, 150001, StatusPaid},
		{"Zero amount invoice", 0, 0, StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Amount: types.PHP(tt.amount), AmountPaid: types.PHP(tt.paid)}
			if got := Classify(inv); got != tt.expected {
				t.Errorf("Classify: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestOverdue(t *testing.T) {
	due := date(2024, 3, 15)
	tests := []struct {
		name    string
		paid    int64
		today   time.Time
		overdue bool
	}{
		{"Before due date", 0, date(2024, 3, 10), false},
		{"On due date", 0, date(2024, 3, 15), false},
		{"Past due unpaid", 0, date(2024, 3, 16), true},
		{"Past due partial", 50000, date(2024, 4, 1), true},
		{"Past due but paid", 150000, date(2024, 4, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Amount: types.PHP(150000), AmountPaid: types.PHP(tt.paid), DueDate: due}
			if got := Overdue(inv, tt.today); got != tt.overdue {
				t.Errorf("Overdue: got %v, want %v", got, tt.overdue)
			}
		})
	}
}

func TestDisplayStatus(t *testing.T) {
	due := date(2024, 3, 15)
	tests := []struct {
		name     string
		paid     int64
		today    time.Time
		expected Status
	}{
		{"Pending before due", 0, date(2024, 3, 1), StatusPending},
		{"Pending past due", 0, date(2024, 3, 20), StatusOverdue},
		{"Partial past due", 50000, date(2024, 3, 20), StatusOverdue},
		{"Paid past due stays paid", 150000, date(2024, 3, 20), StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Amount: types.PHP(150000), AmountPaid: types.PHP(tt.paid), DueDate: due}
			if got := DisplayStatus(inv, tt.today); got != tt.expected {
				t.Errorf("DisplayStatus: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestOldestUnpaid(t *testing.T) {
	mk := func(due time.Time, paid int64) *Invoice {
		return &Invoice{
			ID:         id.NewInvoiceID(),
			Amount:     types.PHP(150000),
			AmountPaid: types.PHP(paid),
			DueDate:    due,
		}
	}

	t.Run("Picks smallest due date among unpaid", func(t *testing.T) {
		march := mk(date(2024, 3, 1), 0)
		april := mk(date(2024, 4, 1), 0)
		may := mk(date(2024, 5, 1), 0)
		got := OldestUnpaid([]*Invoice{may, march, april})
		if got != march {
			t.Errorf("expected march invoice, got due %v", got.DueDate)
		}
	})

	t.Run("Skips paid invoices", func(t *testing.T) {
		march := mk(date(2024, 3, 1), 150000)
		april := mk(date(2024, 4, 1), 50000)
		got := OldestUnpaid([]*Invoice{march, april})
		if got != april {
			t.Errorf("expected april invoice, got due %v", got.DueDate)
		}
	})

	t.Run("Nil when all paid", func(t *testing.T) {
		march := mk(date(2024, 3, 1), 150000)
		if got := OldestUnpaid([]*Invoice{march}); got != nil {
			t.Errorf("expected nil, got %v", got.ID)
		}
	})

	t.Run("Nil for empty slice", func(t *testing.T) {
		if got := OldestUnpaid(nil); got != nil {
			t.Errorf("expected nil, got %v", got.ID)
		}
	})

	t.Run("Ties broken by creation time", func(t *testing.T) {
		due := date(2024, 3, 1)
		older := mk(due, 0)
		older.CreatedAt = date(2024, 2, 1)
		newer := mk(due, 0)
		newer.CreatedAt = date(2024, 2, 2)
		got := OldestUnpaid([]*Invoice{newer, older})
		if got != older {
			t.Error("expected the earlier-created invoice to win the tie")
		}
	})
}

func TestPeriodOf(t *testing.T) {
	tests := []struct {
		input    time.Time
		expected string
	}{
		{date(2024, 3, 1), "2024-03"},
		{date(2024, 3, 31), "2024-03"},
		{date(2024, 12, 15), "2024-12"},
		{date(2025, 1, 1), "2025-01"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := PeriodOf(tt.input); got != tt.expected {
				t.Errorf("PeriodOf(%v): got %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	unpaid := []Status{StatusPending, StatusPartial, StatusOverdue}
	for _, s := range unpaid {
		if !s.IsUnpaid() {
			t.Errorf("%s should be unpaid", s)
		}
	}
	if StatusPaid.IsUnpaid() {
		t.Error("paid should not be unpaid")
	}
	if Status("bogus").IsValid() {
		t.Error("bogus should not be valid")
	}
}
