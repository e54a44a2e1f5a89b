package lease

import (
	"context"
	"time"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
)

// Store is the lease persistence surface. Implementations live under
// store/; the composite methods (RenewLease, TerminateLease) give the
// engine a per-lease unit of work with conflict detection instead of
// exposing a transaction API.
type Store interface {
	// CreateLease persists a new lease. If the stall already has an
	// active lease it returns ErrStallOccupied and writes nothing.
	CreateLease(ctx context.Context, l *Lease) error

	// GetLease returns a lease by ID or ErrLeaseNotFound.
	GetLease(ctx context.Context, leaseID id.LeaseID) (*Lease, error)

	// GetActiveLease returns the vendor's active lease on a stall,
	// or ErrNoActiveLease.
	GetActiveLease(ctx context.Context, vendorID, stallID string) (*Lease, error)

	// ListLeases returns leases matching opts, newest first.
	ListLeases(ctx context.Context, opts ListOpts) ([]*Lease, error)

	// ListRenewalCandidates returns active leases whose end date is on
	// or before asOf, restricted to marketIDs when non-nil (nil means
	// all markets), up to limit.
	ListRenewalCandidates(ctx context.Context, marketIDs []string, asOf time.Time, limit int) ([]*Lease, error)

	// RenewLease advances a lease end date from expectEnd to newEnd and,
	// when inv is non-nil, records the renewal invoice in the same unit
	// of work. Returns ErrConflict when the stored end date no longer
	// matches expectEnd, and ErrDuplicatePeriod when a renewal invoice
	// for the invoice's period already exists.
	RenewLease(ctx context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time, inv *invoice.Invoice) error

	// TerminateLease marks the lease terminated effective at, guarded by
	// the lease still being non-final and having zero unpaid invoices.
	// Returns ErrPendingPayments when unpaid invoices exist.
	TerminateLease(ctx context.Context, leaseID id.LeaseID, at time.Time) error

	// DeleteLease removes a lease row outright, or returns
	// ErrLeaseNotFound. Invoices are untouched; the engine only deletes
	// leases whose ledger never came into existence.
	DeleteLease(ctx context.Context, leaseID id.LeaseID) error

	// ListTerminatedLeases returns the vendor's terminated leases on a
	// stall, most recently ended first.
	ListTerminatedLeases(ctx context.Context, vendorID, stallID string) ([]*Lease, error)
}

// ListOpts filters ListLeases. Zero values mean no filter.
type ListOpts struct {
	VendorID string
	StallID  string
	MarketID string
	Status   Status
	Limit    int
	Offset   int
}
