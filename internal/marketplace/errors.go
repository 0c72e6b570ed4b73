package marketplace

import "errors"

// Search error kinds. The poll cycle treats every search failure as "no
// listings this cycle for this keyword"; the kind only drives logging and
// metrics labels.
var (
	// ErrRateLimited is returned when the API rejects a request with 429
	// after retries are exhausted. Transient.
	ErrRateLimited = errors.New("marketplace: rate limited")

	// ErrAuth is returned when the API rejects credentials (401/403).
	// Permanent until credentials change; the cached token is discarded
	// so the next cycle re-authenticates.
	ErrAuth = errors.New("marketplace: authorization rejected")
)

// IsTransient reports whether a search error is worth retrying next cycle
// without operator intervention.
func IsTransient(err error) bool {
	return !errors.Is(err, ErrAuth)
}
