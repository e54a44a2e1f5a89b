// Package mongo implements the leasing store on MongoDB via the Grove
// ORM. The same guard discipline as the SQL backends applies: partial
// unique indexes carry the idempotency keys, and every guarded
// mutation is a single conditional update whose filter restates what
// the caller observed, with zero matched documents mapping to a
// conflict sentinel.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	leasing "github.com/stallworks/leasing"
	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	leasingstore "github.com/stallworks/leasing/store"
)

// Collection name constants.
const (
	colLeases   = "leasing_leases"
	colInvoices = "leasing_invoices"
)

// compile-time interface check
var _ leasingstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the leasing collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("leasing/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		// The active-stall partial unique index rejected the insert.
		if mongo.IsDuplicateKeyError(err) {
			return leasing.ErrStallOccupied
		}
		return err
	}
	return nil
}

func (s *Store) GetLease(ctx context.Context, leaseID id.LeaseID) (*lease.Lease, error) {
	var m leaseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": leaseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, leasing.ErrLeaseNotFound
		}
		return nil, err
	}
	return fromLeaseModel(&m)
}

func (s *Store) GetActiveLease(ctx context.Context, vendorID, stallID string) (*lease.Lease, error) {
	var m leaseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"vendor_id": vendorID,
			"stall_id":  stallID,
			"status":    string(lease.StatusActive),
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, leasing.ErrNoActiveLease
		}
		return nil, err
	}
	return fromLeaseModel(&m)
}

func (s *Store) ListLeases(ctx context.Context, opts lease.ListOpts) ([]*lease.Lease, error) {
	var models []leaseModel

	filter := bson.M{}
	if opts.VendorID != "" {
		filter["vendor_id"] = opts.VendorID
	}
	if opts.StallID != "" {
		filter["stall_id"] = opts.StallID
	}
	if opts.MarketID != "" {
		filter["market_id"] = opts.MarketID
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromLeaseModels(models)
}

func (s *Store) ListRenewalCandidates(ctx context.Context, marketIDs []string, asOf time.Time, limit int) ([]*lease.Lease, error) {
	match := bson.M{
		"status": string(lease.StatusActive),
		"$or": bson.A{
			bson.M{"end_date": nil},
			bson.M{"end_date": bson.M{"$lte": asOf}},
		},
	}
	if marketIDs != nil {
		match["market_id"] = bson.M{"$in": marketIDs}
	}

	// Candidates carry no outstanding balance and have paid at least
	// once; both counts come from a lookup into the invoice collection.
	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$lookup": bson.M{
			"from":         colInvoices,
			"localField":   "_id",
			"foreignField": "lease_id",
			"as":           "ledger",
		}},
		bson.M{"$addFields": bson.M{
			"unpaid_count": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": "$ledger",
				"as":    "inv",
				"cond":  bson.M{"$lt": bson.A{"$$inv.paid_centavos", "$$inv.amount_centavos"}},
			}}},
			"paid_count": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": "$ledger",
				"as":    "inv",
				"cond":  bson.M{"$gte": bson.A{"$$inv.paid_centavos", "$$inv.amount_centavos"}},
			}}},
		}},
		bson.M{"$match": bson.M{"unpaid_count": 0, "paid_count": bson.M{"$gt": 0}}},
		bson.M{"$project": bson.M{"ledger": 0, "unpaid_count": 0, "paid_count": 0}},
		bson.M{"$sort": bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": int64(limit)})
	}

	cursor, err := s.mdb.Collection(colLeases).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var models []leaseModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, err
	}
	return fromLeaseModels(models)
}

func (s *Store) RenewLease(ctx context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time, inv *invoice.Invoice) error {
	t := now()
	res, err := s.mdb.NewUpdate((*leaseModel)(nil)).
		Filter(renewFilter(leaseID, expectEnd)).
		Set("end_date", newEnd).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		return s.renewMissReason(ctx, leaseID)
	}

	if inv == nil {
		return nil
	}

	m := toInvoiceModel(inv)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		// Put the end date back so this pass reads as a clean miss.
		s.revertEndDate(ctx, leaseID, expectEnd, newEnd)
		if mongo.IsDuplicateKeyError(err) {
			return leasing.ErrDuplicatePeriod
		}
		return err
	}
	return nil
}

// renewFilter restates the lease state the renewal observed.
func renewFilter(leaseID id.LeaseID, expectEnd *time.Time) bson.M {
	f := bson.M{
		"_id":    leaseID.String(),
		"status": string(lease.StatusActive),
	}
	if expectEnd != nil {
		f["end_date"] = *expectEnd
	} else {
		f["end_date"] = nil
	}
	return f
}

// renewMissReason disambiguates a zero-match renewal update.
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
// concurrent writer moved the date again the filter misses and the
// revert is a no-op.
func (s *Store) revertEndDate(ctx context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time) {
	var back any
	if expectEnd != nil {
		back = *expectEnd
	}
	q := s.mdb.NewUpdate((*leaseModel)(nil)).
		Filter(bson.M{"_id": leaseID.String(), "end_date": newEnd}).
		Set("end_date", back)
	_, _ = q.Exec(ctx) //nolint:errcheck // best-effort
}

func (s *Store) TerminateLease(ctx context.Context, leaseID id.LeaseID, at time.Time) error {
	// Invoices live in a separate collection, so the unpaid check runs
	// before the status flip rather than inside its filter.
	unpaid, err := s.CountUnpaid(ctx, leaseID)
	if err != nil {
		return err
	}
	if unpaid > 0 {
		return leasing.ErrPendingPayments
	}

	t := now()
	res, err := s.mdb.NewUpdate((*leaseModel)(nil)).
		Filter(bson.M{
			"_id": leaseID.String(),
			"status": bson.M{"$in": []string{
				string(lease.StatusPending),
				string(lease.StatusActive),
			}},
		}).
		Set("status", string(lease.StatusTerminated)).
		Set("terminated_at", at).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		return s.terminateMissReason(ctx, leaseID)
	}
	return nil
}

// terminateMissReason disambiguates a zero-match termination update.
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
	res, err := s.mdb.NewDelete((*leaseModel)(nil)).
		Filter(bson.M{"_id": leaseID.String()}).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.DeletedCount() == 0 {
		return leasing.ErrLeaseNotFound
	}
	return nil
}

func (s *Store) ListTerminatedLeases(ctx context.Context, vendorID, stallID string) ([]*lease.Lease, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"vendor_id": vendorID,
			"stall_id":  stallID,
			"status":    string(lease.StatusTerminated),
		}},
		// Most recently ended first.
		bson.M{"$addFields": bson.M{
			"ended_at": bson.M{"$ifNull": bson.A{
				"$terminated_at",
				bson.M{"$ifNull": bson.A{"$end_date", "$updated_at"}},
			}},
		}},
		bson.M{"$sort": bson.D{{Key: "ended_at", Value: -1}}},
		bson.M{"$project": bson.M{"ended_at": 0}},
	}

	cursor, err := s.mdb.Collection(colLeases).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var models []leaseModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, err
	}
	return fromLeaseModels(models)
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		// The renewal-period partial unique index rejected the insert.
		if inv.Origin == invoice.OriginRenewal && mongo.IsDuplicateKeyError(err) {
			return leasing.ErrDuplicatePeriod
		}
		return err
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, leasing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, leaseID id.LeaseID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{"lease_id": leaseID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Origin != "" {
		filter["origin"] = string(opts.Origin)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "due_date", Value: 1}, {Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

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
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(unpaidFilter(leaseID)).
		Sort(bson.D{
			{Key: "due_date", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, leasing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ExistsForPeriod(ctx context.Context, leaseID id.LeaseID, period string) (bool, error) {
	count, err := s.mdb.Collection(colInvoices).CountDocuments(ctx, bson.M{
		"lease_id": leaseID.String(),
		"period":   period,
		"origin":   string(invoice.OriginRenewal),
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CountUnpaid(ctx context.Context, leaseID id.LeaseID) (int, error) {
	count, err := s.mdb.Collection(colInvoices).CountDocuments(ctx, unpaidFilter(leaseID))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *Store) ApplyPayment(ctx context.Context, invID id.InvoiceID, upd invoice.PaymentUpdate) error {
	t := now()
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{
			"_id":           invID.String(),
			"paid_centavos": upd.ExpectedPaid.Amount,
		}).
		Set("paid_centavos", upd.NewPaid.Amount).
		Set("paid_currency", upd.NewPaid.Currency).
		Set("status", string(upd.Status)).
		Set("payment_date", upd.PaymentDate).
		Set("method", string(upd.Method)).
		Set("receipt_number", upd.ReceiptNumber).
		Set("notes", upd.Notes).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// unpaidFilter matches invoices whose paid amount has not reached the
// invoiced amount.
func unpaidFilter(leaseID id.LeaseID) bson.M {
	return bson.M{
		"lease_id": leaseID.String(),
		"$expr":    bson.M{"$lt": bson.A{"$paid_centavos", "$amount_centavos"}},
	}
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

// migrationIndexes returns the index definitions for the leasing
// collections. The two partial unique indexes carry the engine's
// idempotency keys: one active lease per stall, one renewal invoice
// per lease and period.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colLeases: {
			{
				Keys: bson.D{{Key: "stall_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": string(lease.StatusActive)}),
			},
			{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "stall_id", Value: 1}}},
			{Keys: bson.D{{Key: "market_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
		},
		colInvoices: {
			{
				Keys: bson.D{{Key: "lease_id", Value: 1}, {Key: "period", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"origin": string(invoice.OriginRenewal)}),
			},
			{Keys: bson.D{{Key: "lease_id", Value: 1}, {Key: "due_date", Value: 1}}},
		},
	}
}
