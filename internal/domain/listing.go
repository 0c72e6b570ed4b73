package domain

// Listing represents one fetched marketplace item. Listings are ephemeral:
// they exist only within a single poll cycle and are never persisted.
type Listing struct {
	ID       string // stable marketplace item id, globally unique
	Title    string // listing title as returned by the search API
	Price    int64  // price in minor currency units (cents)
	Currency string // ISO currency code, pre-normalized upstream
	URL      string // item web URL (may be empty)
	Seller   string // seller username (may be empty)
	Keyword  string // keyword rule that produced this listing via search
	ListedAt int64  // Unix timestamp of the listing creation (seconds)
}
