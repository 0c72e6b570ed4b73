package postgres

import (
	"context"
	"errors"
	"fmt"

	"dealwatch/internal/domain"
	"dealwatch/internal/storage"
)

// SeenStore implements storage.SeenStore using PostgreSQL.
// Durable across process restarts, unlike the in-memory ledger.
type SeenStore struct {
	pool *Pool
}

// NewSeenStore creates a new SeenStore.
func NewSeenStore(pool *Pool) *SeenStore {
	return &SeenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeenStore = (*SeenStore)(nil)

// Get retrieves the record for a listing id. Returns ErrNotFound if absent.
func (s *SeenStore) Get(ctx context.Context, listingID string) (*domain.SeenRecord, error) {
	if listingID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT listing_id, keyword, tier, tier_start, notified_at
		FROM seen_listings
		WHERE listing_id = $1
	`

	var rec domain.SeenRecord
	err := s.pool.QueryRow(ctx, query, listingID).Scan(
		&rec.ListingID,
		&rec.Keyword,
		&rec.Tier,
		&rec.TierStart,
		&rec.NotifiedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get seen record: %w", err)
	}
	return &rec, nil
}

// ShouldNotify reports whether the classification improves on the record.
func (s *SeenStore) ShouldNotify(ctx context.Context, listingID string, c domain.Classification) (bool, error) {
	rec, err := s.Get(ctx, listingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return domain.Improves(c, rec), nil
}

// Record upserts the ledger entry. Idempotent.
func (s *SeenStore) Record(ctx context.Context, rec *domain.SeenRecord) error {
	if rec == nil || rec.ListingID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO seen_listings (listing_id, keyword, tier, tier_start, notified_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (listing_id) DO UPDATE SET
			keyword     = EXCLUDED.keyword,
			tier        = EXCLUDED.tier,
			tier_start  = EXCLUDED.tier_start,
			notified_at = EXCLUDED.notified_at
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ListingID,
		rec.Keyword,
		rec.Tier,
		rec.TierStart,
		rec.NotifiedAt,
	)
	if err != nil {
		return fmt.Errorf("record seen listing: %w", err)
	}
	return nil
}

// PruneBefore deletes records last notified before cutoff.
func (s *SeenStore) PruneBefore(ctx context.Context, cutoff int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM seen_listings WHERE notified_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune seen listings: %w", err)
	}
	return tag.RowsAffected(), nil
}
