// Package extension provides the Forge extension adapter for the
// leasing engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.leasing" or "leasing" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	leasing "github.com/stallworks/leasing"
	"github.com/stallworks/leasing/store"
	"github.com/stallworks/leasing/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "leasing"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Market-stall lease billing and renewal engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the leasing engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *leasing.Engine
	store      store.Store
	engineOpts []leasing.Option
}

// New creates a new leasing Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying leasing engine.
// This is nil until Register is called.
func (e *Extension) Engine() *leasing.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the leasing engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := leasing.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*leasing.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("leasing: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("leasing: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs leasing.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []leasing.Option {
	opts := make([]leasing.Option, 0, len(e.engineOpts)+3)

	if e.config.CooldownDays != nil {
		opts = append(opts, leasing.WithCooldown(*e.config.CooldownDays))
	}
	if e.config.RenewalBatchLimit > 0 {
		opts = append(opts, leasing.WithRenewalBatchLimit(e.config.RenewalBatchLimit))
	}
	if e.config.OverpaymentPolicy != "" {
		opts = append(opts, leasing.WithOverpayment(leasing.OverpaymentPolicy(e.config.OverpaymentPolicy)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("leasing: configuration is required but not found in config files; " +
				"ensure 'extensions.leasing' or 'leasing' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("leasing: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("cooldown_days", *e.config.CooldownDays),
		forge.F("renewal_batch_limit", e.config.RenewalBatchLimit),
		forge.F("overpayment_policy", e.config.OverpaymentPolicy),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.leasing" first (namespaced pattern).
	if cm.IsSet("extensions.leasing") {
		if err := cm.Bind("extensions.leasing", &cfg); err == nil {
			e.Logger().Debug("leasing: loaded config from file",
				forge.F("key", "extensions.leasing"),
			)
			return cfg, true
		}
		e.Logger().Warn("leasing: failed to bind extensions.leasing config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "leasing" key.
	if cm.IsSet("leasing") {
		if err := cm.Bind("leasing", &cfg); err == nil {
			e.Logger().Debug("leasing: loaded config from file",
				forge.F("key", "leasing"),
			)
			return cfg, true
		}
		e.Logger().Warn("leasing: failed to bind leasing config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.CooldownDays == nil {
		cfg.CooldownDays = defaults.CooldownDays
	}
	if cfg.RenewalBatchLimit == 0 {
		cfg.RenewalBatchLimit = defaults.RenewalBatchLimit
	}
	if cfg.OverpaymentPolicy == "" {
		cfg.OverpaymentPolicy = defaults.OverpaymentPolicy
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.OverpaymentPolicy == "" && programmaticConfig.OverpaymentPolicy != "" {
		yamlConfig.OverpaymentPolicy = programmaticConfig.OverpaymentPolicy
	}

	// Int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.CooldownDays == nil && programmaticConfig.CooldownDays != nil {
		yamlConfig.CooldownDays = programmaticConfig.CooldownDays
	}
	if yamlConfig.RenewalBatchLimit == 0 && programmaticConfig.RenewalBatchLimit != 0 {
		yamlConfig.RenewalBatchLimit = programmaticConfig.RenewalBatchLimit
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
