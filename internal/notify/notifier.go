// Package notify dispatches deal notifications over webhooks.
package notify

import "context"

// Payload carries one deal notification.
type Payload struct {
	Keyword   string
	ListingID string
	Title     string
	Price     int64 // minor currency units
	Currency  string
	Tier      string // tier label; empty when the price matched no tier
	URL       string
	Seller    string
}

// Notifier dispatches deal notifications. A returned error means the
// notification was not delivered and the caller must not record the
// listing as notified, so the next cycle retries it.
type Notifier interface {
	Notify(ctx context.Context, p Payload) error
}
