// Package storage defines the dedup ledger contract shared by the
// in-memory and PostgreSQL implementations.
package storage

import (
	"context"

	"dealwatch/internal/domain"
)

// SeenStore provides access to the seen_listings dedup ledger.
//
// The ledger is single-writer within one poll cycle: the cycle serializes
// the ShouldNotify/Record pair per listing id, so implementations only
// need internal consistency, not cross-call transactionality.
type SeenStore interface {
	// Get retrieves the record for a listing id.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, listingID string) (*domain.SeenRecord, error)

	// ShouldNotify reports whether the classification warrants dispatch:
	// true when no record exists for the id, or when the classification
	// strictly improves on the recorded one. Rejected classifications
	// never reach this check.
	ShouldNotify(ctx context.Context, listingID string, c domain.Classification) (bool, error)

	// Record upserts the ledger entry for rec.ListingID.
	// Idempotent: recording an identical entry leaves state unchanged.
	Record(ctx context.Context, rec *domain.SeenRecord) error

	// PruneBefore deletes records last notified before cutoff (Unix
	// seconds) and returns the number deleted. Maintenance operation,
	// never invoked from within a cycle.
	PruneBefore(ctx context.Context, cutoff int64) (int64, error)
}
