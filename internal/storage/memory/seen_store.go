package memory

import (
	"context"
	"sync"

	"dealwatch/internal/domain"
	"dealwatch/internal/storage"
)

// SeenStore is an in-memory implementation of storage.SeenStore.
// Suitable for single-process runs where the ledger may be lost on exit.
type SeenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeenRecord // keyed by listing id
}

// NewSeenStore creates a new in-memory seen store.
func NewSeenStore() *SeenStore {
	return &SeenStore{
		data: make(map[string]*domain.SeenRecord),
	}
}

// Compile-time interface check.
var _ storage.SeenStore = (*SeenStore)(nil)

// Get retrieves the record for a listing id. Returns ErrNotFound if absent.
func (s *SeenStore) Get(_ context.Context, listingID string) (*domain.SeenRecord, error) {
	if listingID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[listingID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy to prevent external mutation
	recCopy := *rec
	return &recCopy, nil
}

// ShouldNotify reports whether the classification improves on the record.
func (s *SeenStore) ShouldNotify(_ context.Context, listingID string, c domain.Classification) (bool, error) {
	if listingID == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Improves(c, s.data[listingID]), nil
}

// Record upserts the ledger entry. Idempotent.
func (s *SeenStore) Record(_ context.Context, rec *domain.SeenRecord) error {
	if rec == nil || rec.ListingID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *rec
	s.data[rec.ListingID] = &recCopy
	return nil
}

// PruneBefore deletes records last notified before cutoff.
func (s *SeenStore) PruneBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.data {
		if rec.NotifiedAt < cutoff {
			delete(s.data, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of ledger entries.
func (s *SeenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
