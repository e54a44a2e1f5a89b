// Package store defines the unified persistence interface for the
// leasing engine and hosts its backend implementations.
package store

import (
	"context"
	"time"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
)

// Store is the unified storage interface for all leasing entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Every concurrent hazard in the engine is settled here: conditional
// writes compare the row state the caller observed against what is
// stored, and a mismatch returns ErrConflict with nothing written.
type Store interface {
	// Lease methods
	CreateLease(ctx context.Context, l *lease.Lease) error
	GetLease(ctx context.Context, leaseID id.LeaseID) (*lease.Lease, error)
	GetActiveLease(ctx context.Context, vendorID, stallID string) (*lease.Lease, error)
	ListLeases(ctx context.Context, opts lease.ListOpts) ([]*lease.Lease, error)
	ListRenewalCandidates(ctx context.Context, marketIDs []string, asOf time.Time, limit int) ([]*lease.Lease, error)
	RenewLease(ctx context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time, inv *invoice.Invoice) error
	TerminateLease(ctx context.Context, leaseID id.LeaseID, at time.Time) error
	DeleteLease(ctx context.Context, leaseID id.LeaseID) error
	ListTerminatedLeases(ctx context.Context, vendorID, stallID string) ([]*lease.Lease, error)

	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, leaseID id.LeaseID, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	FindOldestUnpaid(ctx context.Context, leaseID id.LeaseID) (*invoice.Invoice, error)
	ExistsForPeriod(ctx context.Context, leaseID id.LeaseID, period string) (bool, error)
	CountUnpaid(ctx context.Context, leaseID id.LeaseID) (int, error)
	ApplyPayment(ctx context.Context, invID id.InvoiceID, upd invoice.PaymentUpdate) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Interface conformance: the unified store satisfies the per-package
// store surfaces.
var (
	_ lease.Store   = (Store)(nil)
	_ invoice.Store = (Store)(nil)
)
