// Package plugin provides an extensible hook system for the leasing
// engine. Plugins observe lifecycle events to extend functionality;
// they never influence the outcome of the operation that fired them.
package plugin

import (
	"context"
	"time"

	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// PaymentEvent describes one applied payment.
type PaymentEvent struct {
	ActorID       string
	Invoice       *invoice.Invoice
	Lease         *lease.Lease
	Tendered      types.Money
	Applied       types.Money
	Excess        types.Money
	ReceiptNumber string
	PaidOn        time.Time
}

// ReconcileEvent summarizes one renewal reconciliation run.
type ReconcileEvent struct {
	ActorID  string
	Renewed  int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
	Markets  []string // nil means all markets
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Lease lifecycle hooks
// ──────────────────────────────────────────────────

// OnLeaseCreated is called when a new lease is created. Hosts use this
// to cancel competing applications for the stall.
type OnLeaseCreated interface {
	Plugin
	OnLeaseCreated(ctx context.Context, l *lease.Lease) error
}

// OnLeaseRenewed is called when the renewal loop extends a lease.
type OnLeaseRenewed interface {
	Plugin
	OnLeaseRenewed(ctx context.Context, l *lease.Lease, inv *invoice.Invoice) error
}

// OnLeaseTerminated is called when a lease is terminated.
type OnLeaseTerminated interface {
	Plugin
	OnLeaseTerminated(ctx context.Context, l *lease.Lease) error
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called when a new invoice is persisted, whatever
// its origin.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error
}

// OnPaymentApplied is called after a payment mutates or creates an
// invoice.
type OnPaymentApplied interface {
	Plugin
	OnPaymentApplied(ctx context.Context, ev *PaymentEvent) error
}

// OnReconcileCompleted is called at the end of each reconciliation run.
type OnReconcileCompleted interface {
	Plugin
	OnReconcileCompleted(ctx context.Context, ev ReconcileEvent) error
}
