package domain

// SeenRecord is one dedup ledger entry, keyed by listing id.
// Corresponds to the seen_listings table in PostgreSQL.
type SeenRecord struct {
	ListingID  string // PRIMARY KEY
	Keyword    string // keyword rule active at the last notification
	Tier       string // last notified tier label; empty means accepted without a tier
	TierStart  int64  // Start bound of the last notified tier; 0 when Tier is empty
	NotifiedAt int64  // Unix timestamp of the last notification (seconds)
}
