package audithook

// Action constants for audit events.
const (
	// Lease actions
	ActionLeaseCreated    = "lease.created"
	ActionLeaseRenewed    = "lease.renewed"
	ActionLeaseTerminated = "lease.terminated"

	// Invoice actions
	ActionInvoiceCreated = "invoice.created"

	// Payment actions
	ActionPaymentApplied = "payment.applied"
	ActionPaymentCapped  = "payment.capped"

	// Reconciliation actions
	ActionReconcileCompleted = "reconcile.completed"
)

// Resource constants for audit events.
const (
	ResourceLease     = "lease"
	ResourceInvoice   = "invoice"
	ResourcePayment   = "payment"
	ResourceReconcile = "reconcile"
)

// Category constants for audit events.
const (
	CategoryLeasing = "leasing"
	CategoryBilling = "billing"
	CategoryPayment = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
