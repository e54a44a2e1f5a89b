package invoice

import (
	"context"

	"github.com/stallworks/leasing/id"
)

// Store is the invoice persistence surface.
type Store interface {
	// CreateInvoice persists a new invoice. Renewal-origin invoices are
	// unique per (lease, period); a duplicate returns ErrDuplicatePeriod
	// and writes nothing.
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// GetInvoice returns an invoice by ID or ErrInvoiceNotFound.
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*Invoice, error)

	// ListInvoices returns a lease's invoices matching opts, oldest
	// due date first.
	ListInvoices(ctx context.Context, leaseID id.LeaseID, opts ListOpts) ([]*Invoice, error)

	// FindOldestUnpaid returns the lease's unpaid invoice with the
	// smallest due date, or ErrInvoiceNotFound when all are paid.
	FindOldestUnpaid(ctx context.Context, leaseID id.LeaseID) (*Invoice, error)

	// ExistsForPeriod reports whether a renewal invoice already exists
	// for the lease and calendar-month period.
	ExistsForPeriod(ctx context.Context, leaseID id.LeaseID, period string) (bool, error)

	// CountUnpaid returns how many of the lease's invoices still carry
	// a balance.
	CountUnpaid(ctx context.Context, leaseID id.LeaseID) (int, error)

	// ApplyPayment applies a guarded payment update. The stored
	// amount_paid must equal upd.ExpectedPaid or the store returns
	// ErrConflict and writes nothing.
	ApplyPayment(ctx context.Context, invID id.InvoiceID, upd PaymentUpdate) error
}

// ListOpts filters ListInvoices. Zero values mean no filter.
type ListOpts struct {
	Status Status
	Origin Origin
	Limit  int
	Offset int
}
