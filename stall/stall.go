// Package stall describes the narrow view of stall/market data the
// leasing engine needs. Stall CRUD lives outside this module; the
// engine only looks up rent defaults and flips occupancy.
package stall

import (
	"context"
	"errors"
	"sync"

	"github.com/stallworks/leasing/types"
)

// ErrNotFound is returned when a stall ID is unknown to the directory.
var ErrNotFound = errors.New("stall: not found")

// Info is the directory's view of one stall.
type Info struct {
	ID          string      `json:"id"`
	MarketID    string      `json:"market_id"`
	DefaultRent types.Money `json:"default_rent"`
	Occupied    bool        `json:"occupied"`
}

// Directory resolves stalls and records occupancy changes. The host
// application implements this against its own stall registry.
type Directory interface {
	// Lookup returns stall details or ErrNotFound.
	Lookup(ctx context.Context, stallID string) (*Info, error)

	// SetOccupied records whether the stall currently has a tenant.
	SetOccupied(ctx context.Context, stallID string, occupied bool) error
}

// MemoryDirectory is an in-memory Directory for tests and demos.
type MemoryDirectory struct {
	mu     sync.RWMutex
	stalls map[string]*Info
}

// NewMemoryDirectory creates a directory seeded with the given stalls.
func NewMemoryDirectory(stalls ...Info) *MemoryDirectory {
	d := &MemoryDirectory{stalls: make(map[string]*Info, len(stalls))}
	for i := range stalls {
		s := stalls[i]
		d.stalls[s.ID] = &s
	}
	return d
}

// Add inserts or replaces a stall.
func (d *MemoryDirectory) Add(info Info) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stalls[info.ID] = &info
}

// Lookup implements Directory.
func (d *MemoryDirectory) Lookup(_ context.Context, stallID string) (*Info, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.stalls[stallID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// SetOccupied implements Directory.
func (d *MemoryDirectory) SetOccupied(_ context.Context, stallID string, occupied bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stalls[stallID]
	if !ok {
		return ErrNotFound
	}
	s.Occupied = occupied
	return nil
}
