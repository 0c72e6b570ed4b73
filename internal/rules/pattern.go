package rules

import (
	"regexp"
	"strings"
)

// RegexPrefix marks a configured pattern as a regular expression instead of
// a plain substring.
const RegexPrefix = "regexp::"

// Pattern matches listing text either as a case-insensitive substring or,
// when prefixed with "regexp::", as a case-insensitive regular expression.
// A pattern whose regex fails to compile degrades to substring matching on
// the raw expression rather than failing configuration load.
type Pattern struct {
	raw    string
	substr string
	re     *regexp.Regexp
}

// CompilePattern builds a Pattern from its configured form.
func CompilePattern(raw string) Pattern {
	if strings.HasPrefix(raw, RegexPrefix) {
		expr := strings.TrimPrefix(raw, RegexPrefix)
		re, err := regexp.Compile("(?i)" + expr)
		if err == nil {
			return Pattern{raw: raw, re: re}
		}
		return Pattern{raw: raw, substr: strings.ToLower(expr)}
	}
	return Pattern{raw: raw, substr: strings.ToLower(raw)}
}

// CompilePatterns builds one Pattern per configured entry, preserving order.
func CompilePatterns(raw []string) []Pattern {
	if len(raw) == 0 {
		return nil
	}
	patterns := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		patterns = append(patterns, CompilePattern(r))
	}
	return patterns
}

// Matches reports whether text matches the pattern.
func (p Pattern) Matches(text string) bool {
	if p.re != nil {
		return p.re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), p.substr)
}

// String returns the configured form of the pattern.
func (p Pattern) String() string {
	return p.raw
}

// Blocklist is an ordered set of patterns any one of which blocks a text.
type Blocklist struct {
	patterns []Pattern
}

// NewBlocklist compiles a blocklist from configured patterns.
func NewBlocklist(raw []string) Blocklist {
	return Blocklist{patterns: CompilePatterns(raw)}
}

// Blocked reports whether any blocklist pattern matches text.
// An empty blocklist blocks nothing.
func (b Blocklist) Blocked(text string) bool {
	for _, p := range b.patterns {
		if p.Matches(text) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns in the blocklist.
func (b Blocklist) Len() int {
	return len(b.patterns)
}
