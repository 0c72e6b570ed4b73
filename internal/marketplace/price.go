package marketplace

import (
	"fmt"
	"strings"
)

// ParseMinorUnits converts a decimal price string ("135.99") to minor
// currency units (13599). Parsing is exact: no float intermediate, so tier
// boundary prices never drift. At most two fraction digits are accepted.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative price %q", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("malformed price %q", s)
	}

	var units int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed price %q", s)
		}
		units = units*10 + int64(r-'0')
	}
	units *= 100

	if hasFrac {
		var cents int64
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("malformed price %q", s)
			}
			cents = cents*10 + int64(r-'0')
		}
		if len(frac) == 1 {
			cents *= 10
		}
		units += cents
	}

	return units, nil
}

// FormatMinorUnits renders minor currency units as a decimal string
// ("13599" -> "135.99"). Inverse of ParseMinorUnits for non-negative input.
func FormatMinorUnits(units int64) string {
	if units < 0 {
		return fmt.Sprintf("-%s", FormatMinorUnits(-units))
	}
	return fmt.Sprintf("%d.%02d", units/100, units%100)
}
