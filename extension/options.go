package extension

import (
	"github.com/xraph/grove"

	leasing "github.com/stallworks/leasing"
	"github.com/stallworks/leasing/plugin"
	"github.com/stallworks/leasing/stall"
	"github.com/stallworks/leasing/store"
	"github.com/stallworks/leasing/store/mongo"
	"github.com/stallworks/leasing/store/postgres"
	"github.com/stallworks/leasing/store/sqlite"
)

// Option configures the leasing Forge extension.
type Option func(*Extension)

// WithStore sets the store for the leasing engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a leasing.Option through to the underlying engine.
func WithEngineOption(opt leasing.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a leasing plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, leasing.WithPlugin(p))
	}
}

// WithStallDirectory sets the stall directory for rent defaults and
// occupancy updates.
func WithStallDirectory(d stall.Directory) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, leasing.WithStallDirectory(d))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCooldownDays sets the reapplication cooldown. Zero blocks
// reapplication permanently.
func WithCooldownDays(days int) Option {
	return func(e *Extension) { e.config.CooldownDays = &days }
}

// WithRenewalBatchLimit caps how many leases one reconcile pass processes.
func WithRenewalBatchLimit(limit int) Option {
	return func(e *Extension) { e.config.RenewalBatchLimit = limit }
}

// WithOverpaymentPolicy sets the overpayment policy ("cap" or "reject").
func WithOverpaymentPolicy(policy string) Option {
	return func(e *Extension) { e.config.OverpaymentPolicy = policy }
}

// WithPostgres wraps the given grove database in the postgres store backend.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) { e.store = postgres.New(db) }
}

// WithSQLite wraps the given grove database in the sqlite store backend.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) { e.store = sqlite.New(db) }
}

// WithMongo wraps the given grove database in the mongo store backend.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) { e.store = mongo.New(db) }
}
