package domain

// PriceRange is an inclusive price window in minor currency units.
type PriceRange struct {
	MinPrice int64 `json:"min_price"`
	MaxPrice int64 `json:"max_price"`
}

// Contains reports whether price falls within [MinPrice, MaxPrice].
func (r PriceRange) Contains(price int64) bool {
	return price >= r.MinPrice && price <= r.MaxPrice
}

// Tier is a named deal-quality price sub-range, inclusive at both ends.
// Tiers of a rule may overlap; classification resolves overlap by priority
// (lowest Start wins), not by range disjointness.
type Tier struct {
	Label string `json:"label"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// Contains reports whether price falls within [Start, End].
func (t Tier) Contains(price int64) bool {
	return price >= t.Start && price <= t.End
}

// KeywordRule is one monitored keyword with its acceptable-price gate and
// ordered tier set. AcceptableRange and Tiers are deliberately independent:
// tightening one never changes the semantics of the other. Rules are
// constructed once from configuration and immutable for the life of a cycle.
type KeywordRule struct {
	Keyword           string     `json:"keyword"`
	AcceptableRange   PriceRange `json:"acceptable_range"`
	Tiers             []Tier     `json:"tiers"`
	ExcludeKeywords   []string   `json:"exclude_keywords,omitempty"`
	BlocklistOverride []string   `json:"blocklist_override,omitempty"`
}
