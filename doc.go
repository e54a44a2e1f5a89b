// Package leasing provides a billing and renewal engine for market-stall
// leases.
//
// Leasing is designed as a library, not a service. Import it directly into
// the host application that manages markets, stalls and vendors. It
// provides:
//
//   - An append-style invoice ledger with integer-centavo money
//   - Oldest-first manual payment application with receipt issuance
//   - A synchronous renewal reconciliation loop with per-lease isolation
//   - Termination guarded by outstanding balances
//   - Post-termination reapplication cooldown checks
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/stallworks/leasing"
//	    "github.com/stallworks/leasing/store/postgres"
//	)
//
//	// Wrap your grove database in the postgres backend
//	// (store/sqlite and store/mongo work the same way)
//	store := postgres.New(db)
//
//	// Create engine
//	e := leasing.New(store, leasing.WithStallDirectory(stalls))
//
//	// Start the engine (runs store migrations)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Core Concepts
//
// Leases bind a vendor to a stall and carry the monthly rent:
//
//	l := &lease.Lease{
//	    VendorID:  vendorID,
//	    StallID:   stallID,
//	    StartDate: today,
//	}
//	err := e.CreateLease(ctx, scope, l)
//
// Creating a lease also issues its opening invoice, due on the start
// date. Payments always land on the oldest unpaid invoice:
//
//	res, err := e.ApplyManualPayment(ctx, scope, leasing.PaymentInput{
//	    VendorID: vendorID,
//	    StallID:  stallID,
//	    Amount:   types.PHP(150000), // ₱1500.00
//	    PaidOn:   today,
//	})
//
// Reconcile extends every paid-up, lapsed lease in scope by one month
// and issues the next rent invoice. Hosts call it at the start of
// lease-management requests rather than from a scheduler:
//
//	result, err := e.Reconcile(ctx, actorID, scope)
//
// # Money
//
// All monetary calculations use integer arithmetic to avoid
// floating-point precision issues. The Money type represents amounts in
// the smallest currency unit (centavos for PHP). Invoices are paid when
// amount_paid reaches amount exactly; there is no epsilon.
//
// # Scope
//
// Every mutating operation takes a Scope naming the markets the caller
// administers. Operations on leases outside the scope fail with
// ErrOutOfScope, and Reconcile only considers leases inside it.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	lease_01h2xcejqtf2nbrexx3vqjhp41 // Lease ID
//	inv_01h455vb4pex5vsknk084sn02q   // Invoice ID
//	rcpt_01h455vb4pex5vsknk084sn02q  // Receipt number
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package leasing
