// Package observability provides a metrics extension for the leasing
// engine that records lifecycle event counts via a host-supplied
// MetricFactory.
package observability

import (
	"context"

	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnLeaseCreated       = (*MetricsExtension)(nil)
	_ plugin.OnLeaseRenewed       = (*MetricsExtension)(nil)
	_ plugin.OnLeaseTerminated    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentApplied     = (*MetricsExtension)(nil)
	_ plugin.OnReconcileCompleted = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track leasing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Lease metrics
	LeasesCreated    Counter
	LeasesRenewed    Counter
	LeasesTerminated Counter

	// Invoice metrics
	InvoicesCreated Counter
	InvoiceAmount   Histogram

	// Payment metrics
	PaymentsApplied Counter
	PaymentsCapped  Counter
	PaymentAmount   Histogram

	// Reconciliation metrics
	ReconcileRuns     Counter
	ReconcileFailures Counter
	ReconcileBatch    Histogram
	ReconcileLatency  Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Lease metrics
		LeasesCreated:    factory.Counter("leasing.lease.created"),
		LeasesRenewed:    factory.Counter("leasing.lease.renewed"),
		LeasesTerminated: factory.Counter("leasing.lease.terminated"),

		// Invoice metrics
		InvoicesCreated: factory.Counter("leasing.invoice.created"),
		InvoiceAmount:   factory.Histogram("leasing.invoice.amount_centavos"),

		// Payment metrics
		PaymentsApplied: factory.Counter("leasing.payment.applied"),
		PaymentsCapped:  factory.Counter("leasing.payment.capped"),
		PaymentAmount:   factory.Histogram("leasing.payment.amount_centavos"),

		// Reconciliation metrics
		ReconcileRuns:     factory.Counter("leasing.reconcile.runs"),
		ReconcileFailures: factory.Counter("leasing.reconcile.failures"),
		ReconcileBatch:    factory.Histogram("leasing.reconcile.batch.size"),
		ReconcileLatency:  factory.Histogram("leasing.reconcile.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Lease lifecycle hooks
// ──────────────────────────────────────────────────

// OnLeaseCreated implements plugin.OnLeaseCreated.
func (m *MetricsExtension) OnLeaseCreated(_ context.Context, _ *lease.Lease) error {
	m.LeasesCreated.Inc()
	return nil
}

// OnLeaseRenewed implements plugin.OnLeaseRenewed.
func (m *MetricsExtension) OnLeaseRenewed(_ context.Context, _ *lease.Lease, _ *invoice.Invoice) error {
	m.LeasesRenewed.Inc()
	return nil
}

// OnLeaseTerminated implements plugin.OnLeaseTerminated.
func (m *MetricsExtension) OnLeaseTerminated(_ context.Context, _ *lease.Lease) error {
	m.LeasesTerminated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, inv *invoice.Invoice) error {
	m.InvoicesCreated.Inc()
	m.InvoiceAmount.Observe(float64(inv.Amount.Amount))
	return nil
}

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (m *MetricsExtension) OnPaymentApplied(_ context.Context, ev *plugin.PaymentEvent) error {
	m.PaymentsApplied.Inc()
	m.PaymentAmount.Observe(float64(ev.Applied.Amount))
	if ev.Excess.IsPositive() {
		m.PaymentsCapped.Inc()
	}
	return nil
}

// OnReconcileCompleted implements plugin.OnReconcileCompleted.
func (m *MetricsExtension) OnReconcileCompleted(_ context.Context, ev plugin.ReconcileEvent) error {
	m.ReconcileRuns.Inc()
	if ev.Failed > 0 {
		m.ReconcileFailures.Add(float64(ev.Failed))
	}
	m.ReconcileBatch.Observe(float64(ev.Renewed + ev.Skipped + ev.Failed))
	m.ReconcileLatency.Observe(float64(ev.Elapsed.Milliseconds()))
	return nil
}
