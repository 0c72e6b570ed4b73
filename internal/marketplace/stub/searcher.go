// Package stub provides an in-memory Searcher for tests.
package stub

import (
	"context"
	"sync"

	"dealwatch/internal/domain"
)

// Searcher returns fixed in-memory listings per keyword.
// Implements marketplace.Searcher.
type Searcher struct {
	mu       sync.Mutex
	listings map[string][]*domain.Listing
	errs     map[string]error
	calls    map[string]int
}

// NewSearcher creates an empty stub searcher.
func NewSearcher() *Searcher {
	return &Searcher{
		listings: make(map[string][]*domain.Listing),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// SetListings sets the listings returned for a keyword.
func (s *Searcher) SetListings(keyword string, listings []*domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[keyword] = listings
}

// SetError makes Search fail for a keyword.
func (s *Searcher) SetError(keyword string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[keyword] = err
}

// Search returns the configured listings or error for the keyword.
// Returns copies to prevent mutation.
func (s *Searcher) Search(_ context.Context, keyword string, _ domain.PriceRange) ([]*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[keyword]++
	if err := s.errs[keyword]; err != nil {
		return nil, err
	}

	var result []*domain.Listing
	for _, l := range s.listings[keyword] {
		listingCopy := *l
		listingCopy.Keyword = keyword
		result = append(result, &listingCopy)
	}
	return result, nil
}

// Calls returns how many times Search was invoked for a keyword.
func (s *Searcher) Calls(keyword string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[keyword]
}
