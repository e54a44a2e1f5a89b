package extension

// Config holds the leasing extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.leasing" or "leasing" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// CooldownDays is how many days a vendor must wait after a
	// termination before reapplying for the same stall (default: 30).
	// Explicitly setting 0 blocks reapplication permanently, so the
	// field is a pointer: nil means "use the default".
	CooldownDays *int `json:"cooldown_days" mapstructure:"cooldown_days" yaml:"cooldown_days"`

	// RenewalBatchLimit caps how many leases one reconcile pass
	// processes (default: 300).
	RenewalBatchLimit int `json:"renewal_batch_limit" mapstructure:"renewal_batch_limit" yaml:"renewal_batch_limit"`

	// OverpaymentPolicy is "cap" or "reject" (default: "cap").
	OverpaymentPolicy string `json:"overpayment_policy" mapstructure:"overpayment_policy" yaml:"overpayment_policy"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	cooldown := 30
	return Config{
		CooldownDays:      &cooldown,
		RenewalBatchLimit: 300,
		OverpaymentPolicy: "cap",
	}
}
