package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the leasing store.
var Migrations = migrate.NewGroup("leasing")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_leasing_leases",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS leasing_leases (
    id                    TEXT PRIMARY KEY,
    stall_id              TEXT NOT NULL DEFAULT '',
    vendor_id             TEXT NOT NULL DEFAULT '',
    market_id             TEXT NOT NULL DEFAULT '',
    business_name         TEXT NOT NULL DEFAULT '',
    business_type         TEXT NOT NULL DEFAULT '',
    start_date            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    end_date              TIMESTAMPTZ,
    rent_amount_centavos  BIGINT NOT NULL DEFAULT 0,
    rent_currency         TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'active',
    terminated_at         TIMESTAMPTZ,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leasing_leases_active_stall ON leasing_leases (stall_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_leasing_leases_vendor_stall ON leasing_leases (vendor_id, stall_id);
CREATE INDEX IF NOT EXISTS idx_leasing_leases_market_status ON leasing_leases (market_id, status);
CREATE INDEX IF NOT EXISTS idx_leasing_leases_renewal ON leasing_leases (status, end_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS leasing_leases`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_leasing_invoices",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS leasing_invoices (
    id                    TEXT PRIMARY KEY,
    lease_id              TEXT NOT NULL DEFAULT '',
    vendor_id             TEXT NOT NULL DEFAULT '',
    amount_centavos       BIGINT NOT NULL DEFAULT 0,
    amount_currency       TEXT NOT NULL DEFAULT '',
    paid_centavos         BIGINT NOT NULL DEFAULT 0,
    paid_currency         TEXT NOT NULL DEFAULT '',
    due_date              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    payment_date          TIMESTAMPTZ,
    method                TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'pending',
    period                TEXT NOT NULL DEFAULT '',
    origin                TEXT NOT NULL DEFAULT '',
    receipt_number        TEXT NOT NULL DEFAULT '',
    notes                 JSONB NOT NULL DEFAULT '[]',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leasing_invoices_renewal_period ON leasing_invoices (lease_id, period) WHERE origin = 'renewal';
CREATE INDEX IF NOT EXISTS idx_leasing_invoices_lease ON leasing_invoices (lease_id, due_date);
CREATE INDEX IF NOT EXISTS idx_leasing_invoices_unpaid ON leasing_invoices (lease_id) WHERE paid_centavos < amount_centavos;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS leasing_invoices`)
				return err
			},
		},
	)
}
