package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/types"
)

// SQLite stores JSON columns as TEXT; the models mirror the postgres
// ones otherwise.

type leaseModel struct {
	grove.BaseModel `grove:"table:leasing_leases"`

	ID                 string     `grove:"id,pk"`
	StallID            string     `grove:"stall_id"`
	VendorID           string     `grove:"vendor_id"`
	MarketID           string     `grove:"market_id"`
	BusinessName       string     `grove:"business_name"`
	BusinessType       string     `grove:"business_type"`
	StartDate          time.Time  `grove:"start_date"`
	EndDate            *time.Time `grove:"end_date"`
	RentAmountCentavos int64      `grove:"rent_amount_centavos"`
	RentCurrency       string     `grove:"rent_currency"`
	Status             string     `grove:"status"`
	TerminatedAt       *time.Time `grove:"terminated_at"`
	CreatedAt          time.Time  `grove:"created_at"`
	UpdatedAt          time.Time  `grove:"updated_at"`
}

func toLeaseModel(l *lease.Lease) *leaseModel {
	m := &leaseModel{
		ID:           l.ID.String(),
		StallID:      l.StallID,
		VendorID:     l.VendorID,
		MarketID:     l.MarketID,
		BusinessName: l.BusinessName,
		BusinessType: l.BusinessType,
		StartDate:    l.StartDate,
		EndDate:      l.EndDate,
		Status:       string(l.Status),
		TerminatedAt: l.TerminatedAt,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	if l.MonthlyRent != nil {
		m.RentAmountCentavos = l.MonthlyRent.Amount
		m.RentCurrency = l.MonthlyRent.Currency
	}
	return m
}

func fromLeaseModel(m *leaseModel) (*lease.Lease, error) {
	leaseID, err := id.ParseLeaseID(m.ID)
	if err != nil {
		return nil, err
	}

	var rent *types.Money
	if m.RentCurrency != "" {
		rent = &types.Money{Amount: m.RentAmountCentavos, Currency: m.RentCurrency}
	}

	return &lease.Lease{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           leaseID,
		StallID:      m.StallID,
		VendorID:     m.VendorID,
		MarketID:     m.MarketID,
		BusinessName: m.BusinessName,
		BusinessType: m.BusinessType,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		MonthlyRent:  rent,
		Status:       lease.Status(m.Status),
		TerminatedAt: m.TerminatedAt,
	}, nil
}

type invoiceModel struct {
	grove.BaseModel `grove:"table:leasing_invoices"`

	ID             string     `grove:"id,pk"`
	LeaseID        string     `grove:"lease_id"`
	VendorID       string     `grove:"vendor_id"`
	AmountCentavos int64      `grove:"amount_centavos"`
	AmountCurrency string     `grove:"amount_currency"`
	PaidCentavos   int64      `grove:"paid_centavos"`
	PaidCurrency   string     `grove:"paid_currency"`
	DueDate        time.Time  `grove:"due_date"`
	PaymentDate    *time.Time `grove:"payment_date"`
	Method         string     `grove:"method"`
	Status         string     `grove:"status"`
	Period         string     `grove:"period"`
	Origin         string     `grove:"origin"`
	ReceiptNumber  string     `grove:"receipt_number"`
	Notes          string     `grove:"notes"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	notes, _ := json.Marshal(inv.Notes) //nolint:errcheck // best-effort

	return &invoiceModel{
		ID:             inv.ID.String(),
		LeaseID:        inv.LeaseID.String(),
		VendorID:       inv.VendorID,
		AmountCentavos: inv.Amount.Amount,
		AmountCurrency: inv.Amount.Currency,
		PaidCentavos:   inv.AmountPaid.Amount,
		PaidCurrency:   inv.AmountPaid.Currency,
		DueDate:        inv.DueDate,
		PaymentDate:    inv.PaymentDate,
		Method:         string(inv.Method),
		Status:         string(inv.Status),
		Period:         inv.Period,
		Origin:         string(inv.Origin),
		ReceiptNumber:  inv.ReceiptNumber,
		Notes:          string(notes),
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	leaseID, err := id.ParseLeaseID(m.LeaseID)
	if err != nil {
		return nil, err
	}

	var notes []string
	if m.Notes != "" {
		_ = json.Unmarshal([]byte(m.Notes), &notes) //nolint:errcheck // best-effort
	}

	return &invoice.Invoice{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            invID,
		LeaseID:       leaseID,
		VendorID:      m.VendorID,
		Amount:        types.Money{Amount: m.AmountCentavos, Currency: m.AmountCurrency},
		AmountPaid:    types.Money{Amount: m.PaidCentavos, Currency: m.PaidCurrency},
		DueDate:       m.DueDate,
		PaymentDate:   m.PaymentDate,
		Method:        invoice.Method(m.Method),
		Status:        invoice.Status(m.Status),
		Period:        m.Period,
		Origin:        invoice.Origin(m.Origin),
		ReceiptNumber: m.ReceiptNumber,
		Notes:         notes,
	}, nil
}
