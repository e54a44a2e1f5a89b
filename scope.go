package leasing

// Scope is the set of markets a caller is authorized to act on. The
// host resolves roles and assignments itself and hands the engine a
// ready-made scope with every mutating call. Scope is an immutable
// value; the zero value allows nothing.
type Scope struct {
	all     bool
	markets map[string]struct{}
}

// NewScope builds a scope covering exactly the given market IDs.
func NewScope(marketIDs ...string) Scope {
	m := make(map[string]struct{}, len(marketIDs))
	for _, id := range marketIDs {
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return Scope{markets: m}
}

// ScopeAll returns a scope covering every market. For trusted internal
// callers only.
func ScopeAll() Scope {
	return Scope{all: true}
}

// Allows reports whether the scope covers a market. An empty scope
// allows nothing, including the empty market ID.
func (s Scope) Allows(marketID string) bool {
	if s.all {
		return true
	}
	if marketID == "" {
		return false
	}
	_, ok := s.markets[marketID]
	return ok
}

// IsEmpty reports whether the scope covers no markets at all.
func (s Scope) IsEmpty() bool {
	return !s.all && len(s.markets) == 0
}

// IsAll reports whether the scope covers every market.
func (s Scope) IsAll() bool { return s.all }

// MarketIDs returns the covered market IDs, or nil for an all-markets
// scope. The slice is a copy; mutating it does not affect the scope.
func (s Scope) MarketIDs() []string {
	if s.all {
		return nil
	}
	ids := make([]string, 0, len(s.markets))
	for id := range s.markets {
		ids = append(ids, id)
	}
	return ids
}
