// Package invoice defines rent invoices and the balance arithmetic over them.
package invoice

import (
	"time"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/types"
)

// Status is the payment state of an invoice.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	// StatusOverdue is derived for display via Overdue. The engine never
	// writes it; stored rows carry pending/partial/paid only.
	StatusOverdue Status = "overdue"
)

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// IsUnpaid reports whether s still carries a balance.
func (s Status) IsUnpaid() bool {
	return s == StatusPending || s == StatusPartial || s == StatusOverdue
}

// Method is how a payment was tendered.
type Method string

const (
	MethodCash Method = "cash"
	MethodNone Method = ""
)

// Origin records which flow created the invoice.
type Origin string

const (
	// OriginOpening is the first month's invoice created with the lease.
	OriginOpening Origin = "opening"
	// OriginRenewal is a monthly invoice from the reconciliation loop.
	OriginRenewal Origin = "renewal"
	// OriginManual is an invoice created by a payment with no prior
	// unpaid invoice to absorb it.
	OriginManual Origin = "manual"
)

// Invoice is one month's rent obligation on a lease. Amount and
// AmountPaid are integer centavos; AmountPaid never exceeds Amount.
// Notes are append-only.
type Invoice struct {
	types.Entity
	ID            id.InvoiceID `json:"id"`
	LeaseID       id.LeaseID   `json:"lease_id"`
	VendorID      string       `json:"vendor_id"`
	Amount        types.Money  `json:"amount"`
	AmountPaid    types.Money  `json:"amount_paid"`
	DueDate       time.Time    `json:"due_date"`
	PaymentDate   *time.Time   `json:"payment_date,omitempty"`
	Method        Method       `json:"method,omitempty"`
	Status        Status       `json:"status"`
	Period        string       `json:"period"` // "YYYY-MM" of the due date
	Origin        Origin       `json:"origin"`
	ReceiptNumber string       `json:"receipt_number,omitempty"`
	Notes         []string     `json:"notes,omitempty"`
}

// PaymentUpdate is the guarded mutation a payment applies to one invoice.
// The store compares the row's amount_paid against ExpectedPaid before
// writing; a mismatch means a concurrent payment won and nothing changes.
type PaymentUpdate struct {
	ExpectedPaid  types.Money
	NewPaid       types.Money
	Status        Status
	PaymentDate   time.Time
	Method        Method
	ReceiptNumber string
	Notes         []string // full replacement, computed under the guard
}
