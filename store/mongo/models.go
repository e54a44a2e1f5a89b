package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/stallworks/leasing/id"
	"github.com/stallworks/leasing/invoice"
	"github.com/stallworks/leasing/lease"
	"github.com/stallworks/leasing/types"
)

// ==================== Lease models ====================

type leaseModel struct {
	grove.BaseModel `grove:"table:leasing_leases"`

	ID                 string     `grove:"id,pk"                bson:"_id"`
	StallID            string     `grove:"stall_id"             bson:"stall_id"`
	VendorID           string     `grove:"vendor_id"            bson:"vendor_id"`
	MarketID           string     `grove:"market_id"            bson:"market_id"`
	BusinessName       string     `grove:"business_name"        bson:"business_name"`
	BusinessType       string     `grove:"business_type"        bson:"business_type"`
	StartDate          time.Time  `grove:"start_date"           bson:"start_date"`
	EndDate            *time.Time `grove:"end_date"             bson:"end_date"`
	RentAmountCentavos int64      `grove:"rent_amount_centavos" bson:"rent_amount_centavos"`
	RentCurrency       string     `grove:"rent_currency"        bson:"rent_currency"`
	Status             string     `grove:"status"               bson:"status"`
	TerminatedAt       *time.Time `grove:"terminated_at"        bson:"terminated_at"`
	CreatedAt          time.Time  `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time  `grove:"updated_at"           bson:"updated_at"`
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

	// An empty currency means no rent was recorded on the lease.
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

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:leasing_invoices"`

	ID             string     `grove:"id,pk"            bson:"_id"`
	LeaseID        string     `grove:"lease_id"         bson:"lease_id"`
	VendorID       string     `grove:"vendor_id"        bson:"vendor_id"`
	AmountCentavos int64      `grove:"amount_centavos"  bson:"amount_centavos"`
	AmountCurrency string     `grove:"amount_currency"  bson:"amount_currency"`
	PaidCentavos   int64      `grove:"paid_centavos"    bson:"paid_centavos"`
	PaidCurrency   string     `grove:"paid_currency"    bson:"paid_currency"`
	DueDate        time.Time  `grove:"due_date"         bson:"due_date"`
	PaymentDate    *time.Time `grove:"payment_date"     bson:"payment_date"`
	Method         string     `grove:"method"           bson:"method"`
	Status         string     `grove:"status"           bson:"status"`
	Period         string     `grove:"period"           bson:"period"`
	Origin         string     `grove:"origin"           bson:"origin"`
	ReceiptNumber  string     `grove:"receipt_number"   bson:"receipt_number"`
	Notes          []string   `grove:"notes"            bson:"notes"`
	CreatedAt      time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"       bson:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
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
		Notes:          append([]string(nil), inv.Notes...),
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
		Notes:         append([]string(nil), m.Notes...),
	}, nil
}
