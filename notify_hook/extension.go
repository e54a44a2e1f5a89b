// Package notifyhook pushes vendor-facing notifications for leasing
// lifecycle events: payment receipts, renewals and terminations.
//
// Like audithook, it defines a local Sender interface so hosts inject
// whatever delivery channel they use (SMS, in-app, email) at wiring
// time. Delivery failures are logged and never surface to the
// operation that fired the hook.
package notifyhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnLeaseRenewed    = (*Extension)(nil)
	_ plugin.OnLeaseTerminated = (*Extension)(nil)
	_ plugin.OnPaymentApplied  = (*Extension)(nil)
)

// Sender delivers a notification to a vendor.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// SenderFunc is an adapter to use a plain function as a Sender.
type SenderFunc func(ctx context.Context, n *Notification) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}

// Notification is one message addressed to a vendor.
type Notification struct {
	VendorID string `json:"vendor_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Severity levels.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Extension pushes leasing lifecycle notifications through a Sender.
type Extension struct {
	sender Sender
	logger *slog.Logger
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// New creates an Extension that delivers through the provided Sender.
func New(s Sender, opts ...Option) *Extension {
	e := &Extension{
		sender: s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "notify-hook" }

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (e *Extension) OnPaymentApplied(ctx context.Context, ev *plugin.PaymentEvent) error {
	msg := fmt.Sprintf("Payment of %s received for stall %s. Receipt %s.",
		ev.Applied, ev.Lease.StallID, ev.ReceiptNumber)
	if ev.Excess.IsPositive() {
		msg += fmt.Sprintf(" Excess of %s was not applied.", ev.Excess)
	}
	return e.send(ctx, &Notification{
		VendorID: ev.Lease.VendorID,
		Title:    "Payment received",
		Message:  msg,
		Severity: SeverityInfo,
	})
}

// OnLeaseRenewed implements plugin.OnLeaseRenewed.
func (e *Extension) OnLeaseRenewed(ctx context.Context, l *lease.Lease, inv *invoice.Invoice) error {
	msg := fmt.Sprintf("Your lease on stall %s was renewed for another month.", l.StallID)
	if inv != nil {
		msg += fmt.Sprintf(" %s is due on %s.", inv.Amount, inv.DueDate.Format("January 2, 2006"))
	}
	return e.send(ctx, &Notification{
		VendorID: l.VendorID,
		Title:    "Lease renewed",
		Message:  msg,
		Severity: SeverityInfo,
	})
}

// OnLeaseTerminated implements plugin.OnLeaseTerminated.
func (e *Extension) OnLeaseTerminated(ctx context.Context, l *lease.Lease) error {
	return e.send(ctx, &Notification{
		VendorID: l.VendorID,
		Title:    "Lease terminated",
		Message:  fmt.Sprintf("Your lease on stall %s has ended.", l.StallID),
		Severity: SeverityWarning,
	})
}

func (e *Extension) send(ctx context.Context, n *Notification) error {
	if err := e.sender.Send(ctx, n); err != nil {
		e.logger.Warn("notify_hook: failed to deliver notification",
			"vendor_id", n.VendorID,
			"title", n.Title,
			"error", err,
		)
	}
	return nil
}
