// Package memory provides an in-memory store for tests and demos.
// A single RWMutex serializes writes, so every guarded update is
// naturally atomic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stallworks/leasing"
	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
)

type Store struct {
	mu sync.RWMutex

	// Lease storage
	leases map[string]*lease.Lease

	// Invoice storage
	invoices map[string]*invoice.Invoice
}

func New() *Store {
	return &Store{
		leases:   make(map[string]*lease.Lease),
		invoices: make(map[string]*invoice.Invoice),
	}
}

// Lease Store implementation

func (s *Store) CreateLease(_ context.Context, l *lease.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.leases[l.ID.String()]; exists {
		return leasing.ErrAlreadyExists
	}
	// One active lease per stall.
	if l.Status == lease.StatusActive {
		for _, existing := range s.leases {
			if existing.StallID == l.StallID && existing.Status == lease.StatusActive {
				return leasing.ErrStallOccupied
			}
		}
	}
	s.leases[l.ID.String()] = cloneLease(l)
	return nil
}

func (s *Store) GetLease(_ context.Context, leaseID id.LeaseID) (*lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.leases[leaseID.String()]; ok {
		return cloneLease(l), nil
	}
	return nil, leasing.ErrLeaseNotFound
}

func (s *Store) GetActiveLease(_ context.Context, vendorID, stallID string) (*lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.leases {
		if l.VendorID == vendorID && l.StallID == stallID && l.Status == lease.StatusActive {
			return cloneLease(l), nil
		}
	}
	return nil, leasing.ErrNoActiveLease
}

func (s *Store) ListLeases(_ context.Context, opts lease.ListOpts) ([]*lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*lease.Lease, 0)
	for _, l := range s.leases {
		if opts.VendorID != "" && l.VendorID != opts.VendorID {
			continue
		}
		if opts.StallID != "" && l.StallID != opts.StallID {
			continue
		}
		if opts.MarketID != "" && l.MarketID != opts.MarketID {
			continue
		}
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		result = append(result, cloneLease(l))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginateLeases(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListRenewalCandidates(_ context.Context, marketIDs []string, asOf time.Time, limit int) ([]*lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make(map[string]struct{}, len(marketIDs))
	for _, m := range marketIDs {
		markets[m] = struct{}{}
	}

	result := make([]*lease.Lease, 0)
	for _, l := range s.leases {
		if !l.DueForRenewal(asOf) {
			continue
		}
		if marketIDs != nil {
			if _, ok := markets[l.MarketID]; !ok {
				continue
			}
		}
		if !s.hasPaidInvoiceLocked(l.ID) || s.countUnpaidLocked(l.ID) > 0 {
			continue
		}
		result = append(result, cloneLease(l))
	}

	// Deterministic order: oldest-created leases first.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) RenewLease(_ context.Context, leaseID id.LeaseID, expectEnd *time.Time, newEnd time.Time, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leases[leaseID.String()]
	if !ok {
		return leasing.ErrLeaseNotFound
	}
	if l.Status != lease.StatusActive {
		return leasing.ErrInvalidTransition
	}
	// CAS on the end date: a concurrent renewal already advanced it.
	if !sameTimePtr(l.EndDate, expectEnd) {
		return leasing.ErrConflict
	}
	if inv != nil {
		if s.renewalExistsLocked(leaseID, inv.Period) {
			return leasing.ErrDuplicatePeriod
		}
		if _, exists := s.invoices[inv.ID.String()]; exists {
			return leasing.ErrAlreadyExists
		}
	}

	end := newEnd
	l.EndDate = &end
	l.Touch()
	if inv != nil {
		s.invoices[inv.ID.String()] = cloneInvoice(inv)
	}
	return nil
}

func (s *Store) TerminateLease(_ context.Context, leaseID id.LeaseID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leases[leaseID.String()]
	if !ok {
		return leasing.ErrLeaseNotFound
	}
	if !l.Status.CanTransition(lease.StatusTerminated) {
		return leasing.ErrInvalidTransition
	}
	if s.countUnpaidLocked(leaseID) > 0 {
		return leasing.ErrPendingPayments
	}

	l.Status = lease.StatusTerminated
	effective := at
	l.TerminatedAt = &effective
	l.Touch()
	return nil
}

func (s *Store) DeleteLease(_ context.Context, leaseID id.LeaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leases[leaseID.String()]; !ok {
		return leasing.ErrLeaseNotFound
	}
	delete(s.leases, leaseID.String())
	return nil
}

func (s *Store) ListTerminatedLeases(_ context.Context, vendorID, stallID string) ([]*lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*lease.Lease, 0)
	for _, l := range s.leases {
		if l.VendorID == vendorID && l.StallID == stallID && l.Status == lease.StatusTerminated {
			result = append(result, cloneLease(l))
		}
	}

	// Most recently ended first.
	sort.Slice(result, func(i, j int) bool {
		return terminationTime(result[i]).After(terminationTime(result[j]))
	})
	return result, nil
}

// Invoice Store implementation

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID.String()]; exists {
		return leasing.ErrAlreadyExists
	}
	if inv.Origin == invoice.OriginRenewal && s.renewalExistsLocked(inv.LeaseID, inv.Period) {
		return leasing.ErrDuplicatePeriod
	}
	s.invoices[inv.ID.String()] = cloneInvoice(inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invID.String()]; ok {
		return cloneInvoice(inv), nil
	}
	return nil, leasing.ErrInvoiceNotFound
}

func (s *Store) ListInvoices(_ context.Context, leaseID id.LeaseID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.LeaseID.String() != leaseID.String() {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		if opts.Origin != "" && inv.Origin != opts.Origin {
			continue
		}
		result = append(result, cloneInvoice(inv))
	}

	sortInvoices(result)

	return paginateInvoices(result, opts.Offset, opts.Limit), nil
}

func (s *Store) FindOldestUnpaid(_ context.Context, leaseID id.LeaseID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.LeaseID.String() == leaseID.String() {
			candidates = append(candidates, inv)
		}
	}
	if oldest := invoice.OldestUnpaid(candidates); oldest != nil {
		return cloneInvoice(oldest), nil
	}
	return nil, leasing.ErrInvoiceNotFound
}

func (s *Store) ExistsForPeriod(_ context.Context, leaseID id.LeaseID, period string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.renewalExistsLocked(leaseID, period), nil
}

func (s *Store) CountUnpaid(_ context.Context, leaseID id.LeaseID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.countUnpaidLocked(leaseID), nil
}

func (s *Store) ApplyPayment(_ context.Context, invID id.InvoiceID, upd invoice.PaymentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[invID.String()]
	if !ok {
		return leasing.ErrInvoiceNotFound
	}
	// CAS on amount_paid: a concurrent payment already moved it.
	if !inv.AmountPaid.Equal(upd.ExpectedPaid) {
		return leasing.ErrConflict
	}

	inv.AmountPaid = upd.NewPaid
	inv.Status = upd.Status
	paidOn := upd.PaymentDate
	inv.PaymentDate = &paidOn
	inv.Method = upd.Method
	if upd.ReceiptNumber != "" {
		inv.ReceiptNumber = upd.ReceiptNumber
	}
	inv.Notes = append([]string(nil), upd.Notes...)
	inv.Touch()
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions

func (s *Store) renewalExistsLocked(leaseID id.LeaseID, period string) bool {
	for _, inv := range s.invoices {
		if inv.LeaseID.String() == leaseID.String() &&
			inv.Origin == invoice.OriginRenewal &&
			inv.Period == period {
			return true
		}
	}
	return false
}

func (s *Store) countUnpaidLocked(leaseID id.LeaseID) int {
	count := 0
	for _, inv := range s.invoices {
		if inv.LeaseID.String() == leaseID.String() && invoice.Classify(inv) != invoice.StatusPaid {
			count++
		}
	}
	return count
}

func (s *Store) hasPaidInvoiceLocked(leaseID id.LeaseID) bool {
	for _, inv := range s.invoices {
		if inv.LeaseID.String() == leaseID.String() && invoice.Classify(inv) == invoice.StatusPaid {
			return true
		}
	}
	return false
}

func terminationTime(l *lease.Lease) time.Time {
	if l.TerminatedAt != nil {
		return *l.TerminatedAt
	}
	if l.EndDate != nil {
		return *l.EndDate
	}
	return l.UpdatedAt
}

func sameTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sortInvoices(invoices []*invoice.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func paginateLeases(in []*lease.Lease, offset, limit int) []*lease.Lease {
	start := offset
	if start > len(in) {
		start = len(in)
	}
	end := start + limit
	if limit == 0 || end > len(in) {
		end = len(in)
	}
	return in[start:end]
}

func paginateInvoices(in []*invoice.Invoice, offset, limit int) []*invoice.Invoice {
	start := offset
	if start > len(in) {
		start = len(in)
	}
	end := start + limit
	if limit == 0 || end > len(in) {
		end = len(in)
	}
	return in[start:end]
}

func cloneLease(l *lease.Lease) *lease.Lease {
	cp := *l
	if l.EndDate != nil {
		end := *l.EndDate
		cp.EndDate = &end
	}
	if l.TerminatedAt != nil {
		at := *l.TerminatedAt
		cp.TerminatedAt = &at
	}
	if l.MonthlyRent != nil {
		rent := *l.MonthlyRent
		cp.MonthlyRent = &rent
	}
	return &cp
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	if inv.PaymentDate != nil {
		paid := *inv.PaymentDate
		cp.PaymentDate = &paid
	}
	cp.Notes = append([]string(nil), inv.Notes...)
	return &cp
}
