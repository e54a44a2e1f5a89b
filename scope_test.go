package leasing

import (
	"sort"
	"testing"
)

func TestScopeAllows(t *testing.T) {
	tests := []struct {
		name     string
		scope    Scope
		marketID string
		allowed  bool
	}{
		{"Empty scope denies", Scope{}, "mkt-1", false},
		{"Empty scope denies empty ID", Scope{}, "", false},
		{"Covered market allowed", NewScope("mkt-1", "mkt-2"), "mkt-1", true},
		{"Uncovered market denied", NewScope("mkt-1"), "mkt-2", false},
		{"Scoped denies empty ID", NewScope("mkt-1"), "", false},
		{"All allows anything", ScopeAll(), "mkt-99", true},
		{"All allows empty ID", ScopeAll(), "", true},
		{"Empty string entries ignored", NewScope(""), "mkt-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Allows(tt.marketID); got != tt.allowed {
				t.Errorf("Allows(%q): got %v, want %v", tt.marketID, got, tt.allowed)
			}
		})
	}
}

func TestScopePredicates(t *testing.T) {
	if !(Scope{}).IsEmpty() {
		t.Error("zero scope should be empty")
	}
	if !NewScope().IsEmpty() {
		t.Error("NewScope() with no markets should be empty")
	}
	if NewScope("mkt-1").IsEmpty() {
		t.Error("scoped scope should not be empty")
	}
	if ScopeAll().IsEmpty() {
		t.Error("all scope should not be empty")
	}
	if !ScopeAll().IsAll() {
		t.Error("ScopeAll should report IsAll")
	}
	if NewScope("mkt-1").IsAll() {
		t.Error("scoped scope should not report IsAll")
	}
}

func TestScopeMarketIDs(t *testing.T) {
	if got := ScopeAll().MarketIDs(); got != nil {
		t.Errorf("all scope MarketIDs: got %v, want nil", got)
	}

	ids := NewScope("mkt-2", "mkt-1").MarketIDs()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "mkt-1" || ids[1] != "mkt-2" {
		t.Errorf("MarketIDs: got %v", ids)
	}
}
