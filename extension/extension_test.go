package extension

import (
	"testing"

	"github.com/stallworks/leasing/store/memory"
)

func TestOptionWiring(t *testing.T) {
	mem := memory.New()
	e := New(
		WithStore(mem),
		WithCooldownDays(0),
		WithRenewalBatchLimit(50),
		WithOverpaymentPolicy("reject"),
		WithDisableMigrate(),
	)

	if e.store != mem {
		t.Error("WithStore did not set the store")
	}
	if !e.config.DisableMigrate {
		t.Error("WithDisableMigrate did not set the flag")
	}
	// An explicit zero cooldown is a permanent block, not "unset".
	if e.config.CooldownDays == nil || *e.config.CooldownDays != 0 {
		t.Errorf("CooldownDays = %v, want explicit 0", e.config.CooldownDays)
	}

	opts := e.buildEngineOpts()
	if len(opts) != 3 {
		t.Errorf("buildEngineOpts returned %d options, want 3 (cooldown, batch limit, overpayment)", len(opts))
	}
}

func TestMergeConfigurations(t *testing.T) {
	e := New()

	yaml := Config{RenewalBatchLimit: 100}
	prog := Config{OverpaymentPolicy: "reject", DisableMigrate: true}

	got := e.mergeConfigurations(yaml, prog)

	if got.RenewalBatchLimit != 100 {
		t.Errorf("RenewalBatchLimit = %d, want YAML value 100", got.RenewalBatchLimit)
	}
	if got.OverpaymentPolicy != "reject" {
		t.Errorf("OverpaymentPolicy = %q, want programmatic fill", got.OverpaymentPolicy)
	}
	if !got.DisableMigrate {
		t.Error("programmatic DisableMigrate flag must carry over")
	}
	if got.CooldownDays == nil || *got.CooldownDays != 30 {
		t.Errorf("CooldownDays = %v, want default 30", got.CooldownDays)
	}
}
