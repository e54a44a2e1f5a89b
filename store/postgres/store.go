// Package postgres implements the leasing store on PostgreSQL via the
// Grove ORM. Conditional writes replace transactions: every guarded
// mutation is a single UPDATE whose WHERE clause restates what the
// caller observed, and zero affected rows maps to a conflict sentinel.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	leasing "github.com/stallworks/leasing"
	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	leasingstore "github.com/stallworks/leasing/store"
)

// compile-time interface check
var _ leasingstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("leasing/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("leasing/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Lease Store ====================

func (s *Store) CreateLease(ctx context.Context, l *lease.Lease) error {
	m := toLeaseModel(l)
	res, err := s.pg.NewInsert(m).
		OnConflict("(stall_id) WHERE status = 'active' DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return leasing.ErrStallOccupied
	}
	return nil
}

func (s *Store) GetLease(ctx context.Context, leaseID id.LeaseID) (*lease.Lease, error) {
	m := new(leaseModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", leaseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, leasing.ErrLeaseNotFound
		}
		return nil, err
	}
	return fromLeaseModel(m)
}

func (s *Store) GetActiveLease(ctx context.Context, vendorID, stallID string) (*lease.Lease, error) {
	m := new(leaseModel)
	err := s.pg.NewSelect(m).
		Where("vendor_id = $1", vendorID).
		Where("stall_id = $2", stallID).
		Where("status = $3", string(lease.StatusActive)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, leasing.ErrNoActiveLease
		}
		return nil, err
	}
	return fromLeaseModel(m)
}

func (s *Store) ListLeases(ctx context.Context, opts lease.ListOpts) ([]*lease.Lease, error) {
	var models []leaseModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.VendorID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("vendor_id = $%d", argIdx), opts.VendorID)
	}
	if opts.StallID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("stall_id = $%d", argIdx), opts.StallID)
	}
	if opts.MarketID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("market_id = $%d", argIdx), opts.MarketID)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromLeaseModels(models)
}

func (s *Store) ListRenewalCandidates(ctx context.Context, marketIDs []string, asOf time.Time, limit int) ([]*lease.Lease, error) {
	var models []leaseModel
	q := s.pg.NewSelect(&models).
		Where("status = $1", string(lease.StatusActive)).
		Where("(end_date IS NULL OR end_date <= $2)", asOf)

	argIdx := 2
	if marketIDs != nil {
		placeholders := make([]string, len(marketIDs))
		args := make([]any, len(marketIDs))
		for i, m := range marketIDs {
			argIdx++
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args[i] = m
		}
		q = q.Where(fmt.Sprintf("market_id IN (%s)", strings.Join(placeholders, ", ")), args...)
	}

	// Candidates carry no outstanding balance and have paid at least once.
	q = q.Where(`NOT EXISTS (
		SELECT 1 FROM leasing_invoices u
		WHERE u.lease_id = leasing_leases.id AND u.paid_centavos < u.amount_centavos
	)`).
		Where(`EXISTS (
		SELECT 1 FROM leasing_invoices p
		WHERE p.lease_id = leasing_leases.id AND p.paid_centavos >= p.amount_centavos
	)`)

	if limit > 0 {
		q = q.Limit(limit)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromLeaseModels(models)
}

func (s *Store) RenewLease(ctx context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time, inv *invoice.Invoice) error {
	t := now()
	q := s.pg.NewUpdate((*leaseModel)(nil)).
		Set("end_date = $1", newEnd).
		Set("updated_at = $2", t).
		Where("id = $3", leaseID.String()).
		Where("status = $4", string(lease.StatusActive))
	if expectEnd != nil {
		q = q.Where("end_date = $5", *expectEnd)
	} else {
		q = q.Where("end_date IS NULL")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.renewMissReason(ctx, leaseID)
	}

	if inv == nil {
		return nil
	}

	m := toInvoiceModel(inv)
	ires, err := s.pg.NewInsert(m).
		OnConflict("(lease_id, period) WHERE origin = 'renewal' DO NOTHING").
		Exec(ctx)
	if err != nil {
		s.revertEndDate(ctx, leaseID, expectEnd, newEnd)
		return err
	}
	irows, err := ires.RowsAffected()
	if err != nil {
		return err
	}
	if irows == 0 {
		// The period was billed by a concurrent renewal. Put the end
		// date back so this pass reads as a clean miss.
		s.revertEndDate(ctx, leaseID, expectEnd, newEnd)
		return leasing.ErrDuplicatePeriod
	}
	return nil
}

// renewMissReason disambiguates a zero-row renewal update.
func (s *Store) renewMissReason(ctx context.Context, leaseID id.LeaseID) error {
	l, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if l.Status != lease.StatusActive {
		return leasing.ErrInvalidTransition
	}
	return leasing.ErrConflict
}

// revertEndDate undoes a renewal's end date advance. Best effort: if a
// concurrent writer moved the date again the guard misses and the
// revert is a no-op.
func (s *Store) revertEndDate(ctx context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time) {
	q := s.pg.NewUpdate((*leaseModel)(nil))
	if expectEnd != nil {
		q = q.Set("end_date = $1", *expectEnd).
			Where("id = $2", leaseID.String()).
			Where("end_date = $3", newEnd)
	} else {
		q = q.Set("end_date = NULL").
			Where("id = $1", leaseID.String()).
			Where("end_date = $2", newEnd)
	}
	_, _ = q.Exec(ctx) //nolint:errcheck // best-effort
}

func (s *Store) TerminateLease(ctx context.Context, leaseID id.LeaseID, at time.Time) error {
	t := now()
	res, err := s.pg.NewUpdate((*leaseModel)(nil)).
		Set("status = $1", string(lease.StatusTerminated)).
		Set("terminated_at = $2", at).
		Set("updated_at = $3", t).
		Where("id = $4", leaseID.String()).
		Where("status IN ($5, $6)", string(lease.StatusPending), string(lease.StatusActive)).
		Where(`NOT EXISTS (
			SELECT 1 FROM leasing_invoices u
			WHERE u.lease_id = leasing_leases.id AND u.paid_centavos < u.amount_centavos
		)`).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.terminateMissReason(ctx, leaseID)
	}
	return nil
}

// terminateMissReason disambiguates a zero-row termination update.
func (s *Store) terminateMissReason(ctx context.Context, leaseID id.LeaseID) error {
	l, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if l.Status.IsFinal() {
		return leasing.ErrInvalidTransition
	}
	unpaid, err := s.CountUnpaid(ctx, leaseID)
	if err != nil {
		return err
	}
	if unpaid > 0 {
		return leasing.ErrPendingPayments
	}
	return leasing.ErrConflict
}

func (s *Store) DeleteLease(ctx context.Context, leaseID id.LeaseID) error {
	res, err := s.pg.NewDelete((*leaseModel)(nil)).
		Where("id = $1", leaseID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return leasing.ErrLeaseNotFound
	}
	return nil
}

func (s *Store) ListTerminatedLeases(ctx context.Context, vendorID, stallID string) ([]*lease.Lease, error) {
	var models []leaseModel
	err := s.pg.NewSelect(&models).
		Where("vendor_id = $1", vendorID).
		Where("stall_id = $2", stallID).
		Where("status = $3", string(lease.StatusTerminated)).
		OrderExpr("COALESCE(terminated_at, end_date, updated_at) DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromLeaseModels(models)
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	if inv.Origin != invoice.OriginRenewal {
		_, err := s.pg.NewInsert(m).Exec(ctx)
		return err
	}

	res, err := s.pg.NewInsert(m).
		OnConflict("(lease_id, period) WHERE origin = 'renewal' DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return leasing.ErrDuplicatePeriod
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, leasing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoices(ctx context.Context, leaseID id.LeaseID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.pg.NewSelect(&models).Where("lease_id = $1", leaseID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Origin != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("origin = $%d", argIdx), string(opts.Origin))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("due_date ASC, created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) FindOldestUnpaid(ctx context.Context, leaseID id.LeaseID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("lease_id = $1", leaseID.String()).
		Where("paid_centavos < amount_centavos").
		OrderExpr("due_date ASC, created_at ASC, id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, leasing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ExistsForPeriod(ctx context.Context, leaseID id.LeaseID, period string) (bool, error) {
	var count int
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM leasing_invoices
		WHERE lease_id = $1 AND period = $2 AND origin = $3
	`, leaseID.String(), period, string(invoice.OriginRenewal)).Scan(ctx, &count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CountUnpaid(ctx context.Context, leaseID id.LeaseID) (int, error) {
	var count int
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM leasing_invoices
		WHERE lease_id = $1 AND paid_centavos < amount_centavos
	`, leaseID.String()).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ApplyPayment(ctx context.Context, invID id.InvoiceID, upd invoice.PaymentUpdate) error {
	notes, _ := json.Marshal(upd.Notes) //nolint:errcheck // best-effort
	t := now()
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("paid_centavos = $1", upd.NewPaid.Amount).
		Set("paid_currency = $2", upd.NewPaid.Currency).
		Set("status = $3", string(upd.Status)).
		Set("payment_date = $4", upd.PaymentDate).
		Set("method = $5", string(upd.Method)).
		Set("receipt_number = $6", upd.ReceiptNumber).
		Set("notes = $7", notes).
		Set("updated_at = $8", t).
		Where("id = $9", invID.String()).
		Where("paid_centavos = $10", upd.ExpectedPaid.Amount).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either the invoice is gone or another payment landed first.
		if _, err := s.GetInvoice(ctx, invID); err != nil {
			return err
		}
		return leasing.ErrConflict
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func fromLeaseModels(models []leaseModel) ([]*lease.Lease, error) {
	result := make([]*lease.Lease, len(models))
	for i := range models {
		l, err := fromLeaseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}
