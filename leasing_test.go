package leasing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stallworks/leasing"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/stall"
	"github.com/stallworks/leasing/store"
	"github.com/stallworks/leasing/store/memory"
	"github.com/stallworks/leasing/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDirectory() *stall.MemoryDirectory {
	return stall.NewMemoryDirectory(
		stall.Info{ID: "stall-1", MarketID: "mkt-1", DefaultRent: types.PHP(150000)},
		stall.Info{ID: "stall-2", MarketID: "mkt-1", DefaultRent: types.PHP(200000)},
		stall.Info{ID: "stall-9", MarketID: "mkt-2", DefaultRent: types.PHP(100000)},
	)
}

func newEngine(t *testing.T, now time.Time, opts ...leasing.Option) *leasing.Engine {
	t.Helper()
	base := []leasing.Option{
		leasing.WithLogger(quietLogger()),
		leasing.WithClock(fixedClock(now)),
		leasing.WithStallDirectory(testDirectory()),
	}
	return leasing.New(memory.New(), append(base, opts...)...)
}

func createTestLease(t *testing.T, e *leasing.Engine, vendorID, stallID string, start time.Time) *lease.Lease {
	t.Helper()
	l := &lease.Lease{
		VendorID:     vendorID,
		StallID:      stallID,
		BusinessName: "Tindahan ni Aling Nena",
		StartDate:    start,
	}
	if err := e.CreateLease(context.Background(), leasing.ScopeAll(), l); err != nil {
		t.Fatalf("CreateLease: %v", err)
	}
	return l
}

func payOff(t *testing.T, e *leasing.Engine, vendorID, stallID string, amount int64, on time.Time) {
	t.Helper()
	_, err := e.ApplyManualPayment(context.Background(), leasing.ScopeAll(), leasing.PaymentInput{
		ActorID:  "treasurer-1",
		VendorID: vendorID,
		StallID:  stallID,
		Amount:   types.PHP(amount),
		PaidOn:   on,
	})
	if err != nil {
		t.Fatalf("ApplyManualPayment: %v", err)
	}
}

func TestCreateLeaseIssuesOpeningInvoice(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()

	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	if l.MarketID != "mkt-1" {
		t.Errorf("MarketID: got %q, want mkt-1", l.MarketID)
	}
	if l.MonthlyRent == nil || !l.MonthlyRent.Equal(types.PHP(150000)) {
		t.Errorf("MonthlyRent: got %v, want stall default ₱1500.00", l.MonthlyRent)
	}
	if l.Status != lease.StatusActive {
		t.Errorf("Status: got %s, want active", l.Status)
	}

	invs, err := e.ListInvoices(ctx, l.ID, invoice.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 1 {
		t.Fatalf("expected 1 opening invoice, got %d", len(invs))
	}
	opening := invs[0]
	if opening.Origin != invoice.OriginOpening {
		t.Errorf("Origin: got %s, want opening", opening.Origin)
	}
	if opening.Status != invoice.StatusPending {
		t.Errorf("Status: got %s, want pending", opening.Status)
	}
	if !opening.DueDate.Equal(l.StartDate) {
		t.Errorf("DueDate: got %v, want start date", opening.DueDate)
	}
	if opening.Period != "2024-01" {
		t.Errorf("Period: got %q, want 2024-01", opening.Period)
	}
}

func TestCreateLeaseValidation(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()

	end := date(2023, 12, 1)
	tests := []struct {
		name  string
		l     *lease.Lease
		check func(error) bool
	}{
		{
			name:  "missing vendor",
			l:     &lease.Lease{StallID: "stall-1", StartDate: date(2024, 1, 1)},
			check: leasing.IsValidation,
		},
		{
			name:  "missing stall",
			l:     &lease.Lease{VendorID: "vendor-1", StartDate: date(2024, 1, 1)},
			check: leasing.IsValidation,
		},
		{
			name:  "missing start date",
			l:     &lease.Lease{VendorID: "vendor-1", StallID: "stall-1"},
			check: leasing.IsValidation,
		},
		{
			name: "end before start",
			l: &lease.Lease{
				VendorID:  "vendor-1",
				StallID:   "stall-1",
				StartDate: date(2024, 1, 1),
				EndDate:   &end,
			},
			check: func(err error) bool { return errors.Is(err, leasing.ErrInvalidDate) },
		},
		{
			name: "unknown stall",
			l: &lease.Lease{
				VendorID:  "vendor-1",
				StallID:   "stall-404",
				StartDate: date(2024, 1, 1),
			},
			check: func(err error) bool { return errors.Is(err, leasing.ErrStallNotFound) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CreateLease(ctx, leasing.ScopeAll(), tt.l)
			if err == nil || !tt.check(err) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestCreateLeaseOutOfScope(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()

	l := &lease.Lease{
		VendorID:  "vendor-1",
		StallID:   "stall-9", // mkt-2
		StartDate: date(2024, 1, 1),
	}
	err := e.CreateLease(ctx, leasing.NewScope("mkt-1"), l)
	if !errors.Is(err, leasing.ErrOutOfScope) {
		t.Errorf("expected ErrOutOfScope, got %v", err)
	}
}

// invoiceFailStore simulates an invoice insert falling over after the
// lease row was already written.
type invoiceFailStore struct {
	store.Store
	fail bool
}

func (s *invoiceFailStore) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if s.fail {
		return errors.New("insert failed")
	}
	return s.Store.CreateInvoice(ctx, inv)
}

func TestCreateLeaseUndoneWhenOpeningInvoiceFails(t *testing.T) {
	mem := memory.New()
	fs := &invoiceFailStore{Store: mem, fail: true}
	e := leasing.New(fs,
		leasing.WithLogger(quietLogger()),
		leasing.WithClock(fixedClock(date(2024, 1, 1))),
		leasing.WithStallDirectory(testDirectory()),
	)
	ctx := context.Background()

	l := &lease.Lease{
		VendorID:  "vendor-1",
		StallID:   "stall-1",
		StartDate: date(2024, 1, 1),
	}
	if err := e.CreateLease(ctx, leasing.ScopeAll(), l); err == nil {
		t.Fatal("expected CreateLease to fail when the opening invoice cannot be written")
	}

	// The lease row was undone along with the invoice.
	if _, err := mem.GetLease(ctx, l.ID); !errors.Is(err, leasing.ErrLeaseNotFound) {
		t.Errorf("lease should have been removed, got %v", err)
	}

	// The stall is free for the next applicant.
	fs.fail = false
	next := &lease.Lease{
		VendorID:  "vendor-2",
		StallID:   "stall-1",
		StartDate: date(2024, 1, 2),
	}
	if err := e.CreateLease(ctx, leasing.ScopeAll(), next); err != nil {
		t.Fatalf("stall should be reusable after the undo: %v", err)
	}
}

func TestApplyManualPaymentExact(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()
	createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	res, err := e.ApplyManualPayment(ctx, leasing.ScopeAll(), leasing.PaymentInput{
		ActorID:  "treasurer-1",
		VendorID: "vendor-1",
		StallID:  "stall-1",
		Amount:   types.PHP(150000),
		PaidOn:   date(2024, 1, 5),
	})
	if err != nil {
		t.Fatalf("ApplyManualPayment: %v", err)
	}

	if res.Status != invoice.StatusPaid {
		t.Errorf("Status: got %s, want paid", res.Status)
	}
	if !res.Applied.Equal(types.PHP(150000)) {
		t.Errorf("Applied: got %v", res.Applied)
	}
	if !res.Excess.IsZero() {
		t.Errorf("Excess: got %v, want zero", res.Excess)
	}
	if res.ReceiptNumber == "" {
		t.Error("expected a receipt number on first money movement")
	}
	if res.Created {
		t.Error("payment landed on the opening invoice, not a new one")
	}
	if res.Invoice.Method != invoice.MethodCash {
		t.Errorf("Method: got %q, want cash", res.Invoice.Method)
	}
}

func TestApplyManualPaymentPartialThenSettle(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()
	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	first, err := e.ApplyManualPayment(ctx, leasing.ScopeAll(), leasing.PaymentInput{
		VendorID: "vendor-1",
		StallID:  "stall-1",
		Amount:   types.PHP(60000),
		PaidOn:   date(2024, 1, 5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != invoice.StatusPartial {
		t.Errorf("after partial: got %s, want partial", first.Status)
	}
	if !invoice.RemainingBalance(first.Invoice).Equal(types.PHP(90000)) {
		t.Errorf("remaining: got %v, want ₱900.00", invoice.RemainingBalance(first.Invoice))
	}

	second, err := e.ApplyManualPayment(ctx, leasing.ScopeAll(), leasing.PaymentInput{
		VendorID: "vendor-1",
		StallID:  "stall-1",
		Amount:   types.PHP(90000),
		PaidOn:   date(2024, 1, 20),
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != invoice.StatusPaid {
		t.Errorf("after settle: got %s, want paid", second.Status)
	}
	if second.ReceiptNumber != first.ReceiptNumber {
		t.Error("receipt number must stay stable across installments")
	}

	invs, _ := e.ListInvoices(ctx, l.ID, invoice.ListOpts{})
	if len(invs) != 1 {
		t.Errorf("expected both payments on one invoice, got %d invoices", len(invs))
	}
}

func TestApplyManualPaymentOverpayCap(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()
	createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	res, err := e.ApplyManualPayment(ctx, leasing.ScopeAll(), leasing.PaymentInput{
		VendorID: "vendor-1",
		StallID:  "stall-1",
		Amount:   types.PHP(200000),
		PaidOn:   date(2024, 1, 5),
	})
	if err != nil {
		t.Fatalf("ApplyManualPayment: %v", err)
	}

	if !res.Applied.Equal(types.PHP(150000)) {
		t.Errorf("Applied: got %v, want ₱1500.00", res.Applied)
	}
	if !res.Excess.Equal(types.PHP(50000)) {
		t.Errorf("Excess: got %v, want ₱500.00", res.Excess)
	}
	if res.Invoice.AmountPaid.GreaterThan(res.Invoice.Amount) {
		t.Error("amount_paid must never exceed amount")
	}

	var noted bool
	for _, n := range res.Invoice.Notes {
		if strings.Contains(n, "capped") {
			noted = true
		}
	}
	if !noted {
		t.Errorf("expected a cap note, got %v", res.Invoice.Notes)
	}
}

func TestApplyManualPaymentOverpayReject(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1), leasing.WithOverpayment(leasing.OverpaymentReject))
	ctx := context.Background()
	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	_, err := e.ApplyManualPayment(ctx, leasing.ScopeAll(), leasing.PaymentInput{
		VendorID: "vendor-1",
		StallID:  "stall-1",
		Amount:   types.PHP(200000),
		PaidOn:   date(2024, 1, 5),
	})
	if !errors.Is(err, leasing.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !errors.Is(err, leasing.ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}

	// Nothing was written.
	invs, _ := e.ListInvoices(ctx, l.ID, invoice.ListOpts{})
	if !invs[0].AmountPaid.IsZero() {
		t.Errorf("rejected payment must not mutate the invoice, AmountPaid=%v", invs[0].AmountPaid)
	}
}

func TestApplyManualPaymentNoUnpaidCreatesInvoice(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()
	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))
	payOff(t, e, "vendor-1", "stall-1", 150000, date(2024, 1, 5))

	res, err := e.ApplyManualPayment(ctx, leasing.ScopeAll(), leasing.PaymentInput{
		VendorID: "vendor-1",
		StallID:  "stall-1",
		Amount:   types.PHP(30000),
		PaidOn:   date(2024, 1, 20),
	})
	if err != nil {
		t.Fatalf("ApplyManualPayment: %v", err)
	}

	if !res.Created {
		t.Fatal("expected a new invoice when nothing is outstanding")
	}
	if res.Status != invoice.StatusPaid {
		t.Errorf("Status: got %s, want paid", res.Status)
	}
	if res.Invoice.Origin != invoice.OriginManual {
		t.Errorf("Origin: got %s, want manual", res.Invoice.Origin)
	}
	if !res.Invoice.DueDate.Equal(date(2024, 1, 20)) {
		t.Errorf("DueDate: got %v, want the payment date", res.Invoice.DueDate)
	}

	invs, _ := e.ListInvoices(ctx, l.ID, invoice.ListOpts{})
	if len(invs) != 2 {
		t.Errorf("expected 2 invoices, got %d", len(invs))
	}
}

func TestApplyManualPaymentErrors(t *testing.T) {
	e := newEngine(t, date(2024, 1, 1))
	ctx := context.Background()
	createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	tests := []struct {
		name  string
		scope leasing.Scope
		in    leasing.PaymentInput
		want  error
	}{
		{
			name:  "zero amount",
			scope: leasing.ScopeAll(),
			in:    leasing.PaymentInput{VendorID: "vendor-1", StallID: "stall-1", PaidOn: date(2024, 1, 5)},
			want:  leasing.ErrInvalidAmount,
		},
		{
			name:  "zero date",
			scope: leasing.ScopeAll(),
			in:    leasing.PaymentInput{VendorID: "vendor-1", StallID: "stall-1", Amount: types.PHP(100)},
			want:  leasing.ErrInvalidDate,
		},
		{
			name:  "no active lease",
			scope: leasing.ScopeAll(),
			in: leasing.PaymentInput{
				VendorID: "vendor-2", StallID: "stall-1",
				Amount: types.PHP(100), PaidOn: date(2024, 1, 5),
			},
			want: leasing.ErrNoActiveLease,
		},
		{
			name:  "outside scope",
			scope: leasing.NewScope("mkt-2"),
			in: leasing.PaymentInput{
				VendorID: "vendor-1", StallID: "stall-1",
				Amount: types.PHP(100), PaidOn: date(2024, 1, 5),
			},
			want: leasing.ErrOutOfScope,
		},
		{
			name:  "currency mismatch",
			scope: leasing.ScopeAll(),
			in: leasing.PaymentInput{
				VendorID: "vendor-1", StallID: "stall-1",
				Amount: types.USD(100), PaidOn: date(2024, 1, 5),
			},
			want: leasing.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ApplyManualPayment(ctx, tt.scope, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReconcileRenewsQualifyingLease(t *testing.T) {
	e := newEngine(t, date(2024, 2, 10))
	ctx := context.Background()

	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))
	payOff(t, e, "vendor-1", "stall-1", 150000, date(2024, 1, 5))

	res, err := e.Reconcile(ctx, "vendor-1", leasing.ScopeAll())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Renewed != 1 || res.Skipped != 0 || res.Failed != 0 {
		t.Fatalf("result: %+v, want 1 renewed", res)
	}

	got, err := e.GetLease(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	// No prior end date: the new period runs one month from the start date.
	wantEnd := date(2024, 2, 1)
	if got.EndDate == nil || !got.EndDate.Equal(wantEnd) {
		t.Errorf("EndDate: got %v, want %v", got.EndDate, wantEnd)
	}

	invs, _ := e.ListInvoices(ctx, l.ID, invoice.ListOpts{Origin: invoice.OriginRenewal})
	if len(invs) != 1 {
		t.Fatalf("expected 1 renewal invoice, got %d", len(invs))
	}
	renewal := invs[0]
	if !renewal.DueDate.Equal(wantEnd) {
		t.Errorf("renewal due: got %v, want the new end date", renewal.DueDate)
	}
	if renewal.Period != "2024-02" {
		t.Errorf("renewal period: got %q, want 2024-02", renewal.Period)
	}
	if renewal.Status != invoice.StatusPending {
		t.Errorf("renewal status: got %s, want pending", renewal.Status)
	}
}

func TestReconcileSkipsOwingAndCurrentLeases(t *testing.T) {
	e := newEngine(t, date(2024, 2, 10))
	ctx := context.Background()

	// Owes the opening invoice: not a candidate.
	createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	// Paid up but the billed period has not lapsed yet.
	end := date(2024, 3, 1)
	if err := e.CreateLease(ctx, leasing.ScopeAll(), &lease.Lease{
		VendorID:  "vendor-2",
		StallID:   "stall-2",
		StartDate: date(2024, 2, 1),
		EndDate:   &end,
	}); err != nil {
		t.Fatal(err)
	}
	payOff(t, e, "vendor-2", "stall-2", 200000, date(2024, 2, 5))

	res, err := e.Reconcile(ctx, "vendor-9", leasing.ScopeAll())
	if err != nil {
		t.Fatal(err)
	}
	if res.Renewed != 0 || res.Failed != 0 {
		t.Errorf("result: %+v, want nothing renewed", res)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	e := newEngine(t, date(2024, 2, 10))
	ctx := context.Background()

	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))
	payOff(t, e, "vendor-1", "stall-1", 150000, date(2024, 1, 5))

	if _, err := e.Reconcile(ctx, "vendor-1", leasing.ScopeAll()); err != nil {
		t.Fatal(err)
	}
	// The renewal invoice is now unpaid, so the lease no longer qualifies.
	res, err := e.Reconcile(ctx, "vendor-1", leasing.ScopeAll())
	if err != nil {
		t.Fatal(err)
	}
	if res.Renewed != 0 {
		t.Errorf("second pass renewed %d leases, want 0", res.Renewed)
	}

	invs, _ := e.ListInvoices(ctx, l.ID, invoice.ListOpts{Origin: invoice.OriginRenewal})
	if len(invs) != 1 {
		t.Errorf("expected exactly 1 renewal invoice, got %d", len(invs))
	}
}

func TestReconcileEmptyScope(t *testing.T) {
	e := newEngine(t, date(2024, 2, 10))

	res, err := e.Reconcile(context.Background(), "vendor-1", leasing.NewScope())
	if err != nil {
		t.Fatal(err)
	}
	if res.Renewed != 0 || res.Skipped != 0 || res.Failed != 0 {
		t.Errorf("empty scope must be a no-op, got %+v", res)
	}
}

func TestReconcileScopedToMarket(t *testing.T) {
	e := newEngine(t, date(2024, 3, 10))
	ctx := context.Background()

	createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1)) // mkt-1
	payOff(t, e, "vendor-1", "stall-1", 150000, date(2024, 1, 5))
	createTestLease(t, e, "vendor-2", "stall-9", date(2024, 1, 1)) // mkt-2
	payOff(t, e, "vendor-2", "stall-9", 100000, date(2024, 1, 5))

	res, err := e.Reconcile(ctx, "admin-1", leasing.NewScope("mkt-2"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Renewed != 1 {
		t.Errorf("expected only the mkt-2 lease renewed, got %+v", res)
	}
}

func TestTerminateLease(t *testing.T) {
	now := date(2024, 2, 1)
	e := newEngine(t, now)
	ctx := context.Background()

	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	// Refused while the opening invoice is unpaid.
	err := e.TerminateLease(ctx, leasing.ScopeAll(), l.ID)
	if !errors.Is(err, leasing.ErrPendingPayments) {
		t.Fatalf("expected ErrPendingPayments, got %v", err)
	}

	payOff(t, e, "vendor-1", "stall-1", 150000, date(2024, 1, 5))

	if err := e.TerminateLease(ctx, leasing.ScopeAll(), l.ID); err != nil {
		t.Fatalf("TerminateLease: %v", err)
	}

	got, _ := e.GetLease(ctx, l.ID)
	if got.Status != lease.StatusTerminated {
		t.Errorf("Status: got %s, want terminated", got.Status)
	}
	if got.TerminatedAt == nil || !got.TerminatedAt.Equal(now) {
		t.Errorf("TerminatedAt: got %v, want %v", got.TerminatedAt, now)
	}

	// The stall frees up for the next vendor.
	if err := e.CreateLease(ctx, leasing.ScopeAll(), &lease.Lease{
		VendorID:  "vendor-2",
		StallID:   "stall-1",
		StartDate: date(2024, 2, 1),
	}); err != nil {
		t.Errorf("stall should be free after termination: %v", err)
	}
}

func TestTerminateLeaseOutOfScope(t *testing.T) {
	e := newEngine(t, date(2024, 2, 1))
	ctx := context.Background()
	l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))

	err := e.TerminateLease(ctx, leasing.NewScope("mkt-2"), l.ID)
	if !errors.Is(err, leasing.ErrOutOfScope) {
		t.Errorf("expected ErrOutOfScope, got %v", err)
	}
}

func TestReapplyStatus(t *testing.T) {
	ctx := context.Background()
	terminate := func(e *leasing.Engine, l *lease.Lease) {
		t.Helper()
		payOff(t, e, l.VendorID, l.StallID, 150000, l.StartDate)
		if err := e.TerminateLease(ctx, leasing.ScopeAll(), l.ID); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("no history allows immediately", func(t *testing.T) {
		e := newEngine(t, date(2024, 1, 25))
		res, err := e.ReapplyStatus(ctx, "vendor-1", "stall-1")
		if err != nil {
			t.Fatal(err)
		}
		if res.Blocked {
			t.Errorf("vendor with no terminations must not be blocked: %+v", res)
		}
	})

	t.Run("cooling down", func(t *testing.T) {
		// Terminated on Jan 10 with a 30-day cooldown: allowed Feb 9.
		e := newEngine(t, date(2024, 1, 10))
		l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))
		terminate(e, l)

		later := newEngineSharingStore(t, e, date(2024, 1, 25))
		res, err := later.ReapplyStatus(ctx, "vendor-1", "stall-1")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Blocked {
			t.Fatal("expected blocked during cooldown")
		}
		if res.DaysLeft != 15 {
			t.Errorf("DaysLeft: got %d, want 15", res.DaysLeft)
		}
		if res.AllowedOn == nil || !res.AllowedOn.Equal(date(2024, 2, 9)) {
			t.Errorf("AllowedOn: got %v, want 2024-02-09", res.AllowedOn)
		}
	})

	t.Run("cooldown elapsed", func(t *testing.T) {
		e := newEngine(t, date(2024, 1, 10))
		l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))
		terminate(e, l)

		later := newEngineSharingStore(t, e, date(2024, 2, 9))
		res, err := later.ReapplyStatus(ctx, "vendor-1", "stall-1")
		if err != nil {
			t.Fatal(err)
		}
		if res.Blocked {
			t.Errorf("cooldown elapsed, must not be blocked: %+v", res)
		}
	})

	t.Run("zero cooldown blocks permanently", func(t *testing.T) {
		e := newEngine(t, date(2024, 1, 10), leasing.WithCooldown(0))
		l := createTestLease(t, e, "vendor-1", "stall-1", date(2024, 1, 1))
		terminate(e, l)

		res, err := e.ReapplyStatus(ctx, "vendor-1", "stall-1")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Blocked || res.AllowedOn != nil {
			t.Errorf("zero cooldown must block permanently: %+v", res)
		}
	})
}

// newEngineSharingStore builds an engine at a different point in time on
// top of another engine's data, via a second engine over the same store.
func newEngineSharingStore(t *testing.T, src *leasing.Engine, now time.Time) *leasing.Engine {
	t.Helper()
	return leasing.New(src.Store(),
		leasing.WithLogger(quietLogger()),
		leasing.WithClock(fixedClock(now)),
		leasing.WithStallDirectory(testDirectory()),
	)
}
