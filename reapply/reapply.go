// Package reapply computes post-termination reapplication eligibility.
//
// A vendor whose lease on a stall ended must wait out a cooldown before
// applying for the same stall again. Evaluate is a pure function over a
// resolved termination record; callers batch-fetch a vendor's terminated
// leases once and evaluate per stall in memory.
package reapply

import (
	"time"

	"github.com/stallworks/leasing/lease"
)

// Block reasons reported in Result.Reason.
const (
	ReasonCooldownDisabled = "reapplication disabled for this stall"
	ReasonUnknownDate      = "termination date could not be determined"
	ReasonCoolingDown      = "cooldown period still in effect"
)

// Result is the eligibility verdict for one (vendor, stall) pair.
// AllowedOn is nil for permanent blocks and for vendors with no
// termination history.
type Result struct {
	Blocked   bool       `json:"blocked"`
	AllowedOn *time.Time `json:"allowed_on,omitempty"`
	DaysLeft  int        `json:"days_left"`
	Reason    string     `json:"reason,omitempty"`
}

// Evaluate computes eligibility from a termination record.
//
// cooldownDays 0 means reapplication is disabled outright, so the block
// is permanent regardless of elapsed time. A record whose date could not
// be resolved also blocks permanently: blocking a vendor we cannot time
// out is safer than silently letting one through. Otherwise the vendor
// is blocked until termination + cooldownDays, with DaysLeft counting
// whole days rounded up.
func Evaluate(rec *lease.TerminationRecord, cooldownDays int, today time.Time) Result {
	if rec == nil {
		return Result{}
	}

	if cooldownDays <= 0 {
		return Result{Blocked: true, Reason: ReasonCooldownDisabled}
	}

	if !rec.Resolved {
		return Result{Blocked: true, Reason: ReasonUnknownDate}
	}

	allowedOn := rec.EffectiveDate.AddDate(0, 0, cooldownDays)
	daysLeft := ceilDays(allowedOn.Sub(today))
	if daysLeft <= 0 {
		return Result{Blocked: false, AllowedOn: &allowedOn}
	}

	return Result{
		Blocked:   true,
		AllowedOn: &allowedOn,
		DaysLeft:  daysLeft,
		Reason:    ReasonCoolingDown,
	}
}

// EvaluateAll returns the most restrictive verdict over a vendor's
// termination history on one stall. Permanent blocks dominate; among
// timed blocks the one with more days left wins.
func EvaluateAll(recs []*lease.TerminationRecord, cooldownDays int, today time.Time) Result {
	var verdict Result
	for _, rec := range recs {
		r := Evaluate(rec, cooldownDays, today)
		if moreRestrictive(r, verdict) {
			verdict = r
		}
	}
	return verdict
}

func moreRestrictive(a, b Result) bool {
	if a.Blocked != b.Blocked {
		return a.Blocked
	}
	if !a.Blocked {
		return false
	}
	// Both blocked. A permanent block (nil AllowedOn) beats a timed one.
	if (a.AllowedOn == nil) != (b.AllowedOn == nil) {
		return a.AllowedOn == nil
	}
	return a.DaysLeft > b.DaysLeft
}

// ceilDays converts a duration to whole days, rounding up. Any fraction
// of a day still counts as a full waiting day.
func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := d / (24 * time.Hour)
	if d%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}
