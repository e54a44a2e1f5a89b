package reapply

import (
	"testing"
	"time"

	"github.com/stallworks/leasing/lease"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func resolved(effective time.Time) *lease.TerminationRecord {
	return &lease.TerminationRecord{
		VendorID:      "vendor-1",
		StallID:       "stall-1",
		EffectiveDate: effective,
		Resolved:      true,
	}
}

func TestEvaluate(t *testing.T) {
	terminated := date(2024, 1, 10)

	tests := []struct {
		name         string
		rec          *lease.TerminationRecord
		cooldownDays int
		today        time.Time
		blocked      bool
		daysLeft     int
		reason       string
		allowedOn    *time.Time
	}{
		{
			name:    "No history allows immediately",
			rec:     nil,
			today:   date(2024, 1, 25),
			blocked: false,
		},
		{
			name:         "Cooldown zero blocks permanently",
			rec:          resolved(terminated),
			cooldownDays: 0,
			today:        date(2030, 1, 1),
			blocked:      true,
			reason:       ReasonCooldownDisabled,
		},
		{
			name:         "Unresolved date blocks permanently",
			rec:          &lease.TerminationRecord{VendorID: "vendor-1", StallID: "stall-1"},
			cooldownDays: 30,
			today:        date(2030, 1, 1),
			blocked:      true,
			reason:       ReasonUnknownDate,
		},
		{
			name:         "Mid-cooldown counts days left",
			rec:          resolved(terminated),
			cooldownDays: 30,
			today:        date(2024, 1, 25),
			blocked:      true,
			daysLeft:     15,
			reason:       ReasonCoolingDown,
			allowedOn:    timePtr(date(2024, 2, 9)),
		},
		{
			name:         "Unblocks on allowed date",
			rec:          resolved(terminated),
			cooldownDays: 30,
			today:        date(2024, 2, 9),
			blocked:      false,
			allowedOn:    timePtr(date(2024, 2, 9)),
		},
		{
			name:         "Stays unblocked after allowed date",
			rec:          resolved(terminated),
			cooldownDays: 30,
			today:        date(2024, 6, 1),
			blocked:      false,
			allowedOn:    timePtr(date(2024, 2, 9)),
		},
		{
			name:         "Day before allowed date still blocked",
			rec:          resolved(terminated),
			cooldownDays: 30,
			today:        date(2024, 2, 8),
			blocked:      true,
			daysLeft:     1,
			reason:       ReasonCoolingDown,
			allowedOn:    timePtr(date(2024, 2, 9)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.rec, tt.cooldownDays, tt.today)
			if got.Blocked != tt.blocked {
				t.Errorf("Blocked: got %v, want %v", got.Blocked, tt.blocked)
			}
			if got.DaysLeft != tt.daysLeft {
				t.Errorf("DaysLeft: got %d, want %d", got.DaysLeft, tt.daysLeft)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason: got %q, want %q", got.Reason, tt.reason)
			}
			switch {
			case tt.allowedOn == nil && got.AllowedOn != nil:
				t.Errorf("AllowedOn: got %v, want nil", got.AllowedOn)
			case tt.allowedOn != nil && got.AllowedOn == nil:
				t.Errorf("AllowedOn: got nil, want %v", tt.allowedOn)
			case tt.allowedOn != nil && !got.AllowedOn.Equal(*tt.allowedOn):
				t.Errorf("AllowedOn: got %v, want %v", got.AllowedOn, tt.allowedOn)
			}
		})
	}
}

func TestEvaluatePartialDayRoundsUp(t *testing.T) {
	// Terminated mid-afternoon: 30 days later lands mid-afternoon too,
	// so the morning of the final day still owes a fraction of a day.
	terminated := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 2, 9, 8, 0, 0, 0, time.UTC)

	got := Evaluate(resolved(terminated), 30, today)
	if !got.Blocked {
		t.Fatal("expected blocked")
	}
	if got.DaysLeft != 1 {
		t.Errorf("DaysLeft: got %d, want 1", got.DaysLeft)
	}
}

func TestEvaluateAll(t *testing.T) {
	today := date(2024, 3, 1)

	t.Run("Most recent termination dominates", func(t *testing.T) {
		old := resolved(date(2023, 1, 1))
		recent := resolved(date(2024, 2, 25))
		got := EvaluateAll([]*lease.TerminationRecord{old, recent}, 30, today)
		if !got.Blocked {
			t.Fatal("expected blocked")
		}
		if got.DaysLeft != 25 {
			t.Errorf("DaysLeft: got %d, want 25", got.DaysLeft)
		}
	})

	t.Run("Permanent block beats timed block", func(t *testing.T) {
		timed := resolved(date(2024, 2, 25))
		unresolved := &lease.TerminationRecord{VendorID: "vendor-1", StallID: "stall-1"}
		got := EvaluateAll([]*lease.TerminationRecord{timed, unresolved}, 30, today)
		if !got.Blocked {
			t.Fatal("expected blocked")
		}
		if got.AllowedOn != nil {
			t.Errorf("expected permanent block, got AllowedOn %v", got.AllowedOn)
		}
		if got.Reason != ReasonUnknownDate {
			t.Errorf("Reason: got %q, want %q", got.Reason, ReasonUnknownDate)
		}
	})

	t.Run("Empty history allows", func(t *testing.T) {
		got := EvaluateAll(nil, 30, today)
		if got.Blocked {
			t.Error("expected not blocked")
		}
	})
}

func timePtr(t time.Time) *time.Time { return &t }
