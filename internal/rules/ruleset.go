// Package rules validates keyword rule configuration and compiles the
// title patterns used to filter fetched listings.
package rules

import (
	"fmt"
	"strings"

	"dealwatch/internal/domain"
)

// ConfigError reports an invalid keyword rule definition.
// It is fatal at startup: no polling may begin with a broken rule set.
type ConfigError struct {
	Keyword string // offending rule keyword, empty for set-level problems
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Keyword == "" {
		return "invalid rule config: " + e.Reason
	}
	return fmt.Sprintf("invalid rule config for keyword %q: %s", e.Keyword, e.Reason)
}

// CompiledRule pairs a validated KeywordRule with its precompiled patterns.
type CompiledRule struct {
	domain.KeywordRule

	pattern   Pattern
	excludes  []Pattern
	overrides []Pattern
}

// MatchesTitle reports whether the listing title matches the rule keyword.
func (r *CompiledRule) MatchesTitle(title string) bool {
	return r.pattern.Matches(title)
}

// Excluded reports whether the title matches any per-rule exclude pattern.
func (r *CompiledRule) Excluded(title string) bool {
	for _, p := range r.excludes {
		if p.Matches(title) {
			return true
		}
	}
	return false
}

// OverridesBlocklist reports whether the title matches an override pattern,
// exempting it from the global blocklist.
func (r *CompiledRule) OverridesBlocklist(title string) bool {
	for _, p := range r.overrides {
		if p.Matches(title) {
			return true
		}
	}
	return false
}

// RuleSet is a validated, immutable, ordered set of keyword rules.
// A new set is constructed for wholesale replacement between cycles;
// it is never mutated while a cycle is in flight.
type RuleSet struct {
	rules []CompiledRule
}

// NewRuleSet validates the rule definitions and compiles their patterns.
// Validation fails with *ConfigError on: empty or whitespace-only keyword,
// duplicate keyword, inverted acceptable range, inverted tier bounds,
// duplicate tier label, or two tiers with identical bounds.
func NewRuleSet(defs []domain.KeywordRule) (*RuleSet, error) {
	seenKeywords := make(map[string]struct{}, len(defs))
	compiled := make([]CompiledRule, 0, len(defs))

	for _, def := range defs {
		if strings.TrimSpace(def.Keyword) == "" {
			return nil, &ConfigError{Reason: "keyword must not be empty"}
		}
		if _, dup := seenKeywords[def.Keyword]; dup {
			return nil, &ConfigError{Keyword: def.Keyword, Reason: "duplicate keyword"}
		}
		seenKeywords[def.Keyword] = struct{}{}

		if err := validateRule(def); err != nil {
			return nil, err
		}

		compiled = append(compiled, CompiledRule{
			KeywordRule: def,
			pattern:     CompilePattern(def.Keyword),
			excludes:    CompilePatterns(def.ExcludeKeywords),
			overrides:   CompilePatterns(def.BlocklistOverride),
		})
	}

	return &RuleSet{rules: compiled}, nil
}

func validateRule(def domain.KeywordRule) error {
	ar := def.AcceptableRange
	if ar.MinPrice > ar.MaxPrice {
		return &ConfigError{
			Keyword: def.Keyword,
			Reason:  fmt.Sprintf("acceptable range min_price %d exceeds max_price %d", ar.MinPrice, ar.MaxPrice),
		}
	}

	labels := make(map[string]struct{}, len(def.Tiers))
	type bounds struct{ start, end int64 }
	seenBounds := make(map[bounds]struct{}, len(def.Tiers))

	for _, t := range def.Tiers {
		if t.Label == "" {
			return &ConfigError{Keyword: def.Keyword, Reason: "tier label must not be empty"}
		}
		if t.Start > t.End {
			return &ConfigError{
				Keyword: def.Keyword,
				Reason:  fmt.Sprintf("tier %q start %d exceeds end %d", t.Label, t.Start, t.End),
			}
		}
		if _, dup := labels[t.Label]; dup {
			return &ConfigError{
				Keyword: def.Keyword,
				Reason:  fmt.Sprintf("duplicate tier label %q", t.Label),
			}
		}
		labels[t.Label] = struct{}{}

		b := bounds{t.Start, t.End}
		if _, dup := seenBounds[b]; dup {
			return &ConfigError{
				Keyword: def.Keyword,
				Reason:  fmt.Sprintf("tier %q duplicates bounds [%d, %d]", t.Label, t.Start, t.End),
			}
		}
		seenBounds[b] = struct{}{}
	}

	return nil
}

// Rules returns the compiled rules in configured order.
// The returned slice must not be mutated.
func (rs *RuleSet) Rules() []CompiledRule {
	return rs.rules
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}
