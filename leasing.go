package leasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/plugin"
	"github.com/stallworks/leasing/reapply"
	"github.com/stallworks/leasing/stall"
	"github.com/stallworks/leasing/store"
	"github.com/stallworks/leasing/types"
)

// OverpaymentPolicy decides what happens when a tendered amount exceeds
// the oldest unpaid invoice's remaining balance.
type OverpaymentPolicy string

const (
	// OverpaymentCap applies the remaining balance, discards the excess
	// and appends a note recording it. The default.
	OverpaymentCap OverpaymentPolicy = "cap"
	// OverpaymentReject fails the payment before anything is written.
	OverpaymentReject OverpaymentPolicy = "reject"
)

// Engine is the lease billing and renewal engine.
type Engine struct {
	store   store.Store
	stalls  stall.Directory
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Configuration
	cooldownDays      int
	renewalBatchLimit int
	overpayment       OverpaymentPolicy
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		clock:             time.Now,
		cooldownDays:      30,
		renewalBatchLimit: 300,
		overpayment:       OverpaymentCap,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the time source. Tests inject a fixed clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithStallDirectory sets the stall directory used for rent defaults
// and occupancy updates.
func WithStallDirectory(d stall.Directory) Option {
	return func(e *Engine) {
		e.stalls = d
	}
}

// WithCooldown sets the reapplication cooldown in days. Zero disables
// reapplication entirely.
func WithCooldown(days int) Option {
	return func(e *Engine) {
		e.cooldownDays = days
	}
}

// WithRenewalBatchLimit caps how many leases one reconcile pass
// processes.
func WithRenewalBatchLimit(limit int) Option {
	return func(e *Engine) {
		e.renewalBatchLimit = limit
	}
}

// WithOverpayment sets the overpayment policy.
func WithOverpayment(policy OverpaymentPolicy) Option {
	return func(e *Engine) {
		e.overpayment = policy
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("leasing engine started",
		"cooldown_days", e.cooldownDays,
		"renewal_batch_limit", e.renewalBatchLimit,
		"overpayment_policy", e.overpayment,
	)

	return nil
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Lease Management
// ──────────────────────────────────────────────────

// CreateLease creates a lease for a stall and its opening invoice.
// The stall must be vacant; the caller's scope must cover the stall's
// market. On success the stall is marked occupied and OnLeaseCreated
// fires, which hosts use to cancel competing applications.
func (e *Engine) CreateLease(ctx context.Context, scope Scope, l *lease.Lease) error {
	if l.VendorID == "" {
		return ValidationError{Field: "vendor_id", Message: "required"}
	}
	if l.StallID == "" {
		return ValidationError{Field: "stall_id", Message: "required"}
	}
	if l.StartDate.IsZero() {
		return ValidationError{Field: "start_date", Message: "required"}
	}
	if l.EndDate != nil && l.EndDate.Before(l.StartDate) {
		return fmt.Errorf("end date before start date: %w", ErrInvalidDate)
	}

	info, err := e.lookupStall(ctx, l.StallID)
	if err != nil {
		return err
	}
	if l.MarketID == "" {
		l.MarketID = info.MarketID
	}
	if !scope.Allows(l.MarketID) {
		return ErrOutOfScope
	}
	if l.MonthlyRent == nil {
		rent := info.DefaultRent
		l.MonthlyRent = &rent
	}

	if l.ID.IsNil() {
		l.ID = id.NewLeaseID()
	}
	if l.Status == "" {
		l.Status = lease.StatusActive
	}
	if !l.Status.IsValid() || l.Status.IsFinal() {
		return ErrInvalidStatus
	}
	l.Entity = types.NewEntity()

	if err := e.store.CreateLease(ctx, l); err != nil {
		return err
	}

	if err := e.setOccupied(ctx, l.StallID, true); err != nil {
		e.logger.Warn("failed to mark stall occupied",
			"stall_id", l.StallID,
			"lease_id", l.ID,
			"error", err,
		)
	}

	opening := &invoice.Invoice{
		Entity:     types.NewEntity(),
		ID:         id.NewInvoiceID(),
		LeaseID:    l.ID,
		VendorID:   l.VendorID,
		Amount:     *l.MonthlyRent,
		AmountPaid: types.Zero(l.MonthlyRent.Currency),
		DueDate:    l.StartDate,
		Status:     invoice.StatusPending,
		Period:     invoice.PeriodOf(l.StartDate),
		Origin:     invoice.OriginOpening,
	}
	if err := e.store.CreateInvoice(ctx, opening); err != nil {
		// Undo the lease so the stall is not held by a lease with no
		// ledger. Best effort: a failed undo leaves a lease that the
		// payment fallback and renewal guards still handle.
		if derr := e.store.DeleteLease(ctx, l.ID); derr != nil {
			e.logger.Warn("failed to remove lease after opening invoice failure",
				"lease_id", l.ID,
				"error", derr,
			)
		} else if oerr := e.setOccupied(ctx, l.StallID, false); oerr != nil {
			e.logger.Warn("failed to release stall after opening invoice failure",
				"stall_id", l.StallID,
				"error", oerr,
			)
		}
		return fmt.Errorf("create opening invoice: %w", err)
	}

	e.plugins.EmitInvoiceCreated(ctx, opening)
	e.plugins.EmitLeaseCreated(ctx, l)

	e.logger.Info("lease created",
		"lease_id", l.ID,
		"vendor_id", l.VendorID,
		"stall_id", l.StallID,
		"monthly_rent", l.MonthlyRent.String(),
	)

	return nil
}

// GetLease retrieves a lease by ID.
func (e *Engine) GetLease(ctx context.Context, leaseID id.LeaseID) (*lease.Lease, error) {
	return e.store.GetLease(ctx, leaseID)
}

// ListLeases returns leases matching the filter.
func (e *Engine) ListLeases(ctx context.Context, opts lease.ListOpts) ([]*lease.Lease, error) {
	return e.store.ListLeases(ctx, opts)
}

// ListInvoices returns a lease's invoices, oldest due date first.
func (e *Engine) ListInvoices(ctx context.Context, leaseID id.LeaseID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return e.store.ListInvoices(ctx, leaseID, opts)
}

// TerminateLease terminates a lease and releases its stall. Refused
// while any invoice is still unpaid; the unpaid check and the status
// flip happen in one store guard so a racing payment cannot slip
// between them.
func (e *Engine) TerminateLease(ctx context.Context, scope Scope, leaseID id.LeaseID) error {
	l, err := e.store.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if !scope.Allows(l.MarketID) {
		return ErrOutOfScope
	}

	at := e.clock()
	if err := e.store.TerminateLease(ctx, leaseID, at); err != nil {
		return err
	}

	if err := e.setOccupied(ctx, l.StallID, false); err != nil {
		e.logger.Warn("failed to release stall",
			"stall_id", l.StallID,
			"lease_id", leaseID,
			"error", err,
		)
	}

	l.Status = lease.StatusTerminated
	l.TerminatedAt = &at
	e.plugins.EmitLeaseTerminated(ctx, l)

	e.logger.Info("lease terminated",
		"lease_id", leaseID,
		"stall_id", l.StallID,
		"vendor_id", l.VendorID,
	)

	return nil
}

// ──────────────────────────────────────────────────
// Payment Application
// ──────────────────────────────────────────────────

// PaymentInput is a manual cash payment submission.
type PaymentInput struct {
	ActorID  string
	VendorID string
	StallID  string
	Amount   types.Money
	PaidOn   time.Time
	Notes    []string
}

// PaymentResult reports where a payment landed.
type PaymentResult struct {
	Invoice       *invoice.Invoice
	Applied       types.Money
	Excess        types.Money
	Status        invoice.Status
	ReceiptNumber string
	Created       bool // true when no unpaid invoice existed and a new one was created
}

// ApplyManualPayment applies a tendered amount to the vendor's oldest
// unpaid invoice on the stall, or creates a fully paid invoice when
// none is outstanding. Exactly one invoice is mutated or created per
// call, and amount_paid never exceeds amount.
func (e *Engine) ApplyManualPayment(ctx context.Context, scope Scope, in PaymentInput) (*PaymentResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.PaidOn.IsZero() {
		return nil, ErrInvalidDate
	}

	l, err := e.store.GetActiveLease(ctx, in.VendorID, in.StallID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(l.MarketID) {
		return nil, ErrOutOfScope
	}

	inv, err := e.store.FindOldestUnpaid(ctx, l.ID)
	switch {
	case errors.Is(err, ErrInvoiceNotFound):
		return e.createPaidInvoice(ctx, l, in)
	case err != nil:
		return nil, err
	}

	if in.Amount.Currency != inv.Amount.Currency {
		return nil, fmt.Errorf("tendered currency %q does not match invoice currency %q: %w",
			in.Amount.Currency, inv.Amount.Currency, ErrInvalidAmount)
	}

	remaining := invoice.RemainingBalance(inv)
	applied := in.Amount.Min(remaining)
	excess := in.Amount.Subtract(applied)

	notes := append([]string(nil), inv.Notes...)
	notes = append(notes, in.Notes...)
	if excess.IsPositive() {
		if e.overpayment == OverpaymentReject {
			return nil, fmt.Errorf("tendered %s exceeds remaining %s: %w: %w",
				in.Amount, remaining, ErrOverpayment, ErrInvalidAmount)
		}
		notes = append(notes, fmt.Sprintf("excess of %s capped; %s applied", excess, applied))
	}

	newPaid := inv.AmountPaid.Add(applied)
	receipt := inv.ReceiptNumber
	if receipt == "" {
		receipt = id.NewReceiptID().String()
	}

	newStatus := invoice.Classify(&invoice.Invoice{Amount: inv.Amount, AmountPaid: newPaid})

	upd := invoice.PaymentUpdate{
		ExpectedPaid:  inv.AmountPaid,
		NewPaid:       newPaid,
		Status:        newStatus,
		PaymentDate:   in.PaidOn,
		Method:        invoice.MethodCash,
		ReceiptNumber: receipt,
		Notes:         notes,
	}
	if err := e.store.ApplyPayment(ctx, inv.ID, upd); err != nil {
		return nil, err
	}

	inv.AmountPaid = newPaid
	inv.Status = newStatus
	inv.PaymentDate = &in.PaidOn
	inv.Method = invoice.MethodCash
	inv.ReceiptNumber = receipt
	inv.Notes = notes

	e.plugins.EmitPaymentApplied(ctx, &plugin.PaymentEvent{
		ActorID:       in.ActorID,
		Invoice:       inv,
		Lease:         l,
		Tendered:      in.Amount,
		Applied:       applied,
		Excess:        excess,
		ReceiptNumber: receipt,
		PaidOn:        in.PaidOn,
	})

	e.logger.Info("payment applied",
		"invoice_id", inv.ID,
		"lease_id", l.ID,
		"applied", applied.String(),
		"status", newStatus,
		"receipt", receipt,
	)

	return &PaymentResult{
		Invoice:       inv,
		Applied:       applied,
		Excess:        excess,
		Status:        newStatus,
		ReceiptNumber: receipt,
	}, nil
}

// createPaidInvoice records a payment arriving with nothing outstanding:
// a fresh invoice for the tendered amount, immediately fully paid.
func (e *Engine) createPaidInvoice(ctx context.Context, l *lease.Lease, in PaymentInput) (*PaymentResult, error) {
	receipt := id.NewReceiptID().String()
	paidOn := in.PaidOn

	inv := &invoice.Invoice{
		Entity:        types.NewEntity(),
		ID:            id.NewInvoiceID(),
		LeaseID:       l.ID,
		VendorID:      l.VendorID,
		Amount:        in.Amount,
		AmountPaid:    in.Amount,
		DueDate:       in.PaidOn,
		PaymentDate:   &paidOn,
		Method:        invoice.MethodCash,
		Status:        invoice.StatusPaid,
		Period:        invoice.PeriodOf(in.PaidOn),
		Origin:        invoice.OriginManual,
		ReceiptNumber: receipt,
		Notes:         append([]string(nil), in.Notes...),
	}
	if err := e.store.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	e.plugins.EmitInvoiceCreated(ctx, inv)
	e.plugins.EmitPaymentApplied(ctx, &plugin.PaymentEvent{
		ActorID:       in.ActorID,
		Invoice:       inv,
		Lease:         l,
		Tendered:      in.Amount,
		Applied:       in.Amount,
		Excess:        types.Zero(in.Amount.Currency),
		ReceiptNumber: receipt,
		PaidOn:        in.PaidOn,
	})

	e.logger.Info("payment recorded as new invoice",
		"invoice_id", inv.ID,
		"lease_id", l.ID,
		"amount", in.Amount.String(),
		"receipt", receipt,
	)

	return &PaymentResult{
		Invoice:       inv,
		Applied:       in.Amount,
		Excess:        types.Zero(in.Amount.Currency),
		Status:        invoice.StatusPaid,
		ReceiptNumber: receipt,
		Created:       true,
	}, nil
}

// ──────────────────────────────────────────────────
// Renewal Reconciliation
// ──────────────────────────────────────────────────

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Renewed int
	Skipped int
	Failed  int
}

// Reconcile extends every qualifying lease in the caller's scope by one
// month and issues the next rent invoice. A lease qualifies when it is
// active, its billed period has lapsed, it has at least one paid
// invoice and no unpaid ones. Runs synchronously at the start of
// lease-management requests; concurrent runs are safe because each
// lease advances under a store guard. Per-lease failures are logged
// and counted, never fatal.
func (e *Engine) Reconcile(ctx context.Context, actorID string, scope Scope) (*ReconcileResult, error) {
	start := e.clock()
	result := &ReconcileResult{}

	if scope.IsEmpty() {
		return result, nil
	}

	markets := scope.MarketIDs()
	candidates, err := e.store.ListRenewalCandidates(ctx, markets, start, e.renewalBatchLimit)
	if err != nil {
		return nil, err
	}

	for _, l := range candidates {
		renewed, err := e.renewOne(ctx, l, start)
		switch {
		case err == nil && renewed:
			result.Renewed++
		case err == nil:
			result.Skipped++
		case IsConflict(err):
			// Another request got here first. Nothing was written.
			result.Skipped++
			e.logger.Debug("renewal skipped",
				"lease_id", l.ID,
				"reason", err,
			)
		default:
			result.Failed++
			e.logger.Error("renewal failed",
				"lease_id", l.ID,
				"error", err,
			)
		}
	}

	e.plugins.EmitReconcileCompleted(ctx, plugin.ReconcileEvent{
		ActorID: actorID,
		Renewed: result.Renewed,
		Skipped: result.Skipped,
		Failed:  result.Failed,
		Elapsed: e.clock().Sub(start),
		Markets: markets,
	})

	e.logger.Info("reconcile completed",
		"renewed", result.Renewed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"candidates", len(candidates),
	)

	return result, nil
}

// renewOne advances a single lease inside one store unit of work.
// Returns true when the end date moved.
func (e *Engine) renewOne(ctx context.Context, l *lease.Lease, today time.Time) (bool, error) {
	newEnd := l.NextPeriodEnd(today)
	period := invoice.PeriodOf(newEnd)

	var inv *invoice.Invoice
	exists, err := e.store.ExistsForPeriod(ctx, l.ID, period)
	if err != nil {
		return false, err
	}
	if !exists {
		rent, err := e.rentFor(ctx, l)
		if err != nil {
			return false, err
		}
		inv = &invoice.Invoice{
			Entity:     types.NewEntity(),
			ID:         id.NewInvoiceID(),
			LeaseID:    l.ID,
			VendorID:   l.VendorID,
			Amount:     rent,
			AmountPaid: types.Zero(rent.Currency),
			DueDate:    newEnd,
			Status:     invoice.StatusPending,
			Period:     period,
			Origin:     invoice.OriginRenewal,
		}
	}

	if err := e.store.RenewLease(ctx, l.ID, l.EndDate, newEnd, inv); err != nil {
		return false, err
	}

	l.EndDate = &newEnd
	if inv != nil {
		e.plugins.EmitInvoiceCreated(ctx, inv)
	}
	e.plugins.EmitLeaseRenewed(ctx, l, inv)

	return true, nil
}

// rentFor returns the lease's rent, falling back to the stall default.
func (e *Engine) rentFor(ctx context.Context, l *lease.Lease) (types.Money, error) {
	if l.MonthlyRent != nil {
		return *l.MonthlyRent, nil
	}
	info, err := e.lookupStall(ctx, l.StallID)
	if err != nil {
		return types.Money{}, err
	}
	return info.DefaultRent, nil
}

// ──────────────────────────────────────────────────
// Reapplication Eligibility
// ──────────────────────────────────────────────────

// ReapplyStatus reports whether a vendor may reapply for a stall they
// previously left. Read-only; gates the "Apply" action in hosts.
func (e *Engine) ReapplyStatus(ctx context.Context, vendorID, stallID string) (reapply.Result, error) {
	leases, err := e.store.ListTerminatedLeases(ctx, vendorID, stallID)
	if err != nil {
		return reapply.Result{}, err
	}

	recs := make([]*lease.TerminationRecord, 0, len(leases))
	for _, l := range leases {
		rec := lease.ResolveTermination(l)
		recs = append(recs, &rec)
	}

	return reapply.EvaluateAll(recs, e.cooldownDays, e.clock()), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) setOccupied(ctx context.Context, stallID string, occupied bool) error {
	if e.stalls == nil {
		return nil
	}
	return e.stalls.SetOccupied(ctx, stallID, occupied)
}

func (e *Engine) lookupStall(ctx context.Context, stallID string) (*stall.Info, error) {
	if e.stalls == nil {
		return nil, fmt.Errorf("no stall directory configured: %w", ErrStallNotFound)
	}
	info, err := e.stalls.Lookup(ctx, stallID)
	if err != nil {
		if errors.Is(err, stall.ErrNotFound) {
			return nil, ErrStallNotFound
		}
		return nil, err
	}
	return info, nil
}
