// Package audithook bridges leasing lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend
// on any particular audit system. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

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
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnLeaseCreated       = (*Extension)(nil)
	_ plugin.OnLeaseRenewed       = (*Extension)(nil)
	_ plugin.OnLeaseTerminated    = (*Extension)(nil)
	_ plugin.OnInvoiceCreated     = (*Extension)(nil)
	_ plugin.OnPaymentApplied     = (*Extension)(nil)
	_ plugin.OnReconcileCompleted = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// Defined locally so the audit_hook package does not import the
// backend directly; callers inject the concrete recorder at wiring
// time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges leasing lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Lease lifecycle hooks
// ──────────────────────────────────────────────────

// OnLeaseCreated implements plugin.OnLeaseCreated.
func (e *Extension) OnLeaseCreated(ctx context.Context, l *lease.Lease) error {
	return e.record(ctx, ActionLeaseCreated, SeverityInfo, OutcomeSuccess,
		ResourceLease, l.ID.String(), CategoryLeasing, "",
		"vendor_id", l.VendorID,
		"stall_id", l.StallID,
		"market_id", l.MarketID,
		"start_date", l.StartDate,
	)
}

// OnLeaseRenewed implements plugin.OnLeaseRenewed.
func (e *Extension) OnLeaseRenewed(ctx context.Context, l *lease.Lease, inv *invoice.Invoice) error {
	meta := []any{
		"vendor_id", l.VendorID,
		"stall_id", l.StallID,
	}
	if l.EndDate != nil {
		meta = append(meta, "new_end_date", *l.EndDate)
	}
	if inv != nil {
		meta = append(meta, "invoice_id", inv.ID.String(), "period", inv.Period)
	}
	return e.record(ctx, ActionLeaseRenewed, SeverityInfo, OutcomeSuccess,
		ResourceLease, l.ID.String(), CategoryLeasing, "", meta...)
}

// OnLeaseTerminated implements plugin.OnLeaseTerminated.
func (e *Extension) OnLeaseTerminated(ctx context.Context, l *lease.Lease) error {
	meta := []any{
		"vendor_id", l.VendorID,
		"stall_id", l.StallID,
	}
	if l.TerminatedAt != nil {
		meta = append(meta, "terminated_at", *l.TerminatedAt)
	}
	return e.record(ctx, ActionLeaseTerminated, SeverityWarning, OutcomeSuccess,
		ResourceLease, l.ID.String(), CategoryLeasing, "", meta...)
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, "",
		"lease_id", inv.LeaseID.String(),
		"amount", inv.Amount.String(),
		"period", inv.Period,
		"origin", string(inv.Origin),
	)
}

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (e *Extension) OnPaymentApplied(ctx context.Context, ev *plugin.PaymentEvent) error {
	action := ActionPaymentApplied
	if ev.Excess.IsPositive() {
		action = ActionPaymentCapped
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourcePayment, ev.Invoice.ID.String(), CategoryPayment, ev.ActorID,
		"lease_id", ev.Lease.ID.String(),
		"tendered", ev.Tendered.String(),
		"applied", ev.Applied.String(),
		"excess", ev.Excess.String(),
		"receipt", ev.ReceiptNumber,
		"paid_on", ev.PaidOn,
	)
}

// OnReconcileCompleted implements plugin.OnReconcileCompleted.
func (e *Extension) OnReconcileCompleted(ctx context.Context, ev plugin.ReconcileEvent) error {
	severity := SeverityInfo
	outcome := OutcomeSuccess
	if ev.Failed > 0 {
		severity = SeverityError
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionReconcileCompleted, severity, outcome,
		ResourceReconcile, "", CategoryLeasing, ev.ActorID,
		"renewed", ev.Renewed,
		"skipped", ev.Skipped,
		"failed", ev.Failed,
		"elapsed", ev.Elapsed.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, actorID string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		ActorID:    actorID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
