// Package lease defines stall lease records and their lifecycle.
package lease

import (
	"time"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/types"
)

// Status is the lifecycle state of a lease.
type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusTerminated Status = "terminated"
)

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusTerminated:
		return true
	}
	return false
}

// IsFinal reports whether s is a terminal state. Final leases never
// receive renewal invoices and never transition again.
func (s Status) IsFinal() bool {
	return s == StatusExpired || s == StatusTerminated
}

// CanTransition reports whether a lease may move from s to next.
// Transitions are forward-only: final states accept nothing.
func (s Status) CanTransition(next Status) bool {
	if s.IsFinal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusTerminated
	case StatusActive:
		return next == StatusExpired || next == StatusTerminated
	}
	return false
}

// Lease is a rental agreement binding a vendor to a market stall.
// EndDate is the end of the current paid-up rental period and advances
// one month per renewal cycle. A nil EndDate means no period has been
// billed yet; the renewal loop seeds it from the start date.
type Lease struct {
	types.Entity
	ID           id.LeaseID   `json:"id"`
	StallID      string       `json:"stall_id"`
	VendorID     string       `json:"vendor_id"`
	MarketID     string       `json:"market_id"`
	BusinessName string       `json:"business_name"`
	BusinessType string       `json:"business_type,omitempty"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      *time.Time   `json:"end_date,omitempty"`
	MonthlyRent  *types.Money `json:"monthly_rent,omitempty"`
	Status       Status       `json:"status"`
	TerminatedAt *time.Time   `json:"terminated_at,omitempty"`
}

// DueForRenewal reports whether the lease's billed period has lapsed as
// of a date: active, with no end date yet or one on or before asOf.
func (l *Lease) DueForRenewal(asOf time.Time) bool {
	if l.Status != StatusActive {
		return false
	}
	return l.EndDate == nil || !l.EndDate.After(asOf)
}

// NextPeriodEnd computes the end of the next billing period: one month
// past the current end date, or past the start date when no period has
// been billed, or past asOf when even the start date is zero.
func (l *Lease) NextPeriodEnd(asOf time.Time) time.Time {
	base := asOf
	switch {
	case l.EndDate != nil:
		base = *l.EndDate
	case !l.StartDate.IsZero():
		base = l.StartDate
	}
	return base.AddDate(0, 1, 0)
}

// TerminationRecord describes a past lease ending for one vendor and
// stall, with the departure date resolved if possible.
type TerminationRecord struct {
	LeaseID       id.LeaseID `json:"lease_id"`
	VendorID      string     `json:"vendor_id"`
	StallID       string     `json:"stall_id"`
	EffectiveDate time.Time  `json:"effective_date"`
	Resolved      bool       `json:"resolved"`
}

// ResolveTermination builds a TerminationRecord from a finished lease.
// The departure date is resolved in fixed priority order: TerminatedAt,
// then EndDate, then the row's last update time. When none is known the
// record is returned with Resolved false, which downstream eligibility
// checks treat as an indefinite block.
func ResolveTermination(l *Lease) TerminationRecord {
	rec := TerminationRecord{
		LeaseID:  l.ID,
		VendorID: l.VendorID,
		StallID:  l.StallID,
	}
	switch {
	case l.TerminatedAt != nil:
		rec.EffectiveDate = *l.TerminatedAt
		rec.Resolved = true
	case l.EndDate != nil:
		rec.EffectiveDate = *l.EndDate
		rec.Resolved = true
	case !l.UpdatedAt.IsZero():
		rec.EffectiveDate = l.UpdatedAt
		rec.Resolved = true
	}
	return rec
}
