// Package marketplace provides the listing-search collaborator: a client
// for a Browse-style marketplace search API with OAuth2 client-credentials
// authentication.
package marketplace

import (
	"context"

	"dealwatch/internal/domain"
)

// Searcher fetches candidate listings for one keyword. The window is the
// rule's acceptable range, pushed into the API query to bound result size;
// the classifier still gates every returned price.
type Searcher interface {
	Search(ctx context.Context, keyword string, window domain.PriceRange) ([]*domain.Listing, error)
}
