// Package watch orchestrates poll cycles: fetch candidate listings per
// keyword, classify prices, consult the dedup ledger, dispatch webhook
// notifications.
package watch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealwatch/internal/classify"
	"dealwatch/internal/domain"
	"dealwatch/internal/marketplace"
	"dealwatch/internal/notify"
	"dealwatch/internal/observability"
	"dealwatch/internal/rules"
	"dealwatch/internal/storage"
)

// Cycle executes one complete pass over the configured keyword rules.
//
// Fetching is parallel across keywords with per-keyword failure isolation;
// the classify/dedup/dispatch phase runs sequentially in configured order
// so the seen ledger has a single mutator per cycle.
type Cycle struct {
	rules           *rules.RuleSet
	searcher        marketplace.Searcher
	notifier        notify.Notifier
	seen            storage.SeenStore
	globalBlocklist rules.Blocklist
	sellerBlocklist rules.Blocklist
	metrics         *observability.Metrics
	logger          *log.Logger
	debug           bool
	now             func() time.Time
}

// Options contains configuration for creating a Cycle.
type Options struct {
	Rules    *rules.RuleSet        // required
	Searcher marketplace.Searcher  // required
	Notifier notify.Notifier       // required
	Seen     storage.SeenStore     // required

	GlobalBlocklist rules.Blocklist
	SellerBlocklist rules.Blocklist

	Metrics *observability.Metrics // optional
	Logger  *log.Logger            // defaults to log.Default()
	Debug   bool                   // log per-listing drop reasons
	Now     func() time.Time       // defaults to time.Now, injectable for tests
}

// New creates a new Cycle.
func New(opts Options) *Cycle {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Cycle{
		rules:           opts.Rules,
		searcher:        opts.Searcher,
		notifier:        opts.Notifier,
		seen:            opts.Seen,
		globalBlocklist: opts.GlobalBlocklist,
		sellerBlocklist: opts.SellerBlocklist,
		metrics:         opts.Metrics,
		logger:          logger,
		debug:           opts.Debug,
		now:             now,
	}
}

// Result summarizes one cycle.
type Result struct {
	CycleID         string
	ListingsFetched int
	Notified        int
	Rejected        int
	Suppressed      int // dedup ledger said no
	Filtered        int // title/blocklist filters
	FetchErrors     int
	DispatchErrors  int
}

// fetchResult holds one keyword's fetch outcome, indexed by rule order.
type fetchResult struct {
	listings []*domain.Listing
	err      error
}

// Run executes a single poll cycle. It returns a non-nil Result together
// with ctx.Err() when cancelled mid-pass; per-keyword and per-listing
// failures never abort the cycle.
func (c *Cycle) Run(ctx context.Context) (*Result, error) {
	started := c.now()
	res := &Result{CycleID: uuid.NewString()[:8]}

	ruleList := c.rules.Rules()
	fetches := c.fetchAll(ctx, ruleList)

	for i := range ruleList {
		// Cancellation takes effect between keyword iterations, never
		// mid-dispatch.
		if err := ctx.Err(); err != nil {
			c.finish(res, started, "cancelled")
			return res, err
		}

		rule := &ruleList[i]
		fetch := fetches[i]

		if fetch.err != nil {
			res.FetchErrors++
			kind := "transient"
			if !marketplace.IsTransient(fetch.err) {
				kind = "permanent"
			}
			if c.metrics != nil {
				c.metrics.FetchErrors.WithLabelValues(kind).Inc()
			}
			c.logger.Printf("[%s] Fetch failed for keyword %q (%s): %v", res.CycleID, rule.Keyword, kind, fetch.err)
			continue
		}

		res.ListingsFetched += len(fetch.listings)
		if c.metrics != nil {
			c.metrics.ListingsFetched.Add(float64(len(fetch.listings)))
		}

		for _, listing := range fetch.listings {
			c.processListing(ctx, rule, listing, res)
		}
	}

	c.finish(res, started, "ok")
	return res, nil
}

// fetchAll obtains candidate listings for every rule concurrently.
// Results are indexed by rule position; one keyword's failure never
// affects another's.
func (c *Cycle) fetchAll(ctx context.Context, ruleList []rules.CompiledRule) []fetchResult {
	results := make([]fetchResult, len(ruleList))

	var wg sync.WaitGroup
	for i := range ruleList {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rule := &ruleList[i]
			listings, err := c.searcher.Search(ctx, rule.Keyword, rule.AcceptableRange)
			results[i] = fetchResult{listings: listings, err: err}
		}(i)
	}
	wg.Wait()

	return results
}

// processListing classifies one listing and dispatches if it qualifies.
func (c *Cycle) processListing(ctx context.Context, rule *rules.CompiledRule, listing *domain.Listing, res *Result) {
	if dropped, reason := c.filtered(rule, listing); dropped {
		res.Filtered++
		c.debugf("[%s] Dropping %s: %s", res.CycleID, listing.ID, reason)
		return
	}

	classification, err := classify.Classify(rule.KeywordRule, listing.Price)
	if err != nil {
		// Malformed price data: drop the single listing, keep the cycle.
		if c.metrics != nil {
			c.metrics.ClassificationErrors.Inc()
		}
		c.logger.Printf("[%s] Dropping %s: %v", res.CycleID, listing.ID, err)
		return
	}

	if classification.Outcome == domain.OutcomeRejected {
		res.Rejected++
		if c.metrics != nil {
			c.metrics.ListingsRejected.Inc()
		}
		c.debugf("[%s] Rejected %s: price %d outside acceptable range [%d, %d]",
			res.CycleID, listing.ID, listing.Price, rule.AcceptableRange.MinPrice, rule.AcceptableRange.MaxPrice)
		return
	}

	shouldNotify, err := c.seen.ShouldNotify(ctx, listing.ID, classification)
	if err != nil {
		// Without the ledger we cannot guarantee dedup; skip and let the
		// next cycle retry.
		c.logger.Printf("[%s] Seen-store check failed for %s: %v", res.CycleID, listing.ID, err)
		return
	}
	if !shouldNotify {
		res.Suppressed++
		if c.metrics != nil {
			c.metrics.DuplicatesSuppressed.Inc()
		}
		return
	}

	payload := notify.Payload{
		Keyword:   listing.Keyword,
		ListingID: listing.ID,
		Title:     listing.Title,
		Price:     listing.Price,
		Currency:  listing.Currency,
		Tier:      classification.Tier,
		URL:       listing.URL,
		Seller:    listing.Seller,
	}

	if err := c.notifier.Notify(ctx, payload); err != nil {
		// Do not record: at-least-once semantics, the next cycle retries.
		res.DispatchErrors++
		if c.metrics != nil {
			c.metrics.DispatchErrors.Inc()
		}
		c.logger.Printf("[%s] Dispatch failed for %s: %v", res.CycleID, listing.ID, err)
		return
	}

	rec := &domain.SeenRecord{
		ListingID:  listing.ID,
		Keyword:    listing.Keyword,
		Tier:       classification.Tier,
		TierStart:  classification.TierStart,
		NotifiedAt: c.now().Unix(),
	}
	if err := c.seen.Record(ctx, rec); err != nil {
		// The notification went out; a failed record means one possible
		// repeat next cycle, which at-least-once permits.
		c.logger.Printf("[%s] Record failed for %s: %v", res.CycleID, listing.ID, err)
	}

	res.Notified++
	if c.metrics != nil {
		tierLabel := classification.Tier
		if tierLabel == "" {
			tierLabel = "no_tier"
		}
		c.metrics.NotificationsSent.WithLabelValues(tierLabel).Inc()
	}
	c.logger.Printf("[%s] Notified: %s at %d (%s, tier=%s)",
		res.CycleID, listing.ID, listing.Price, listing.Keyword, orNoTier(classification.Tier))
}

// filtered applies title and blocklist filters before classification.
func (c *Cycle) filtered(rule *rules.CompiledRule, listing *domain.Listing) (bool, string) {
	if !rule.MatchesTitle(listing.Title) {
		return true, "title does not match keyword"
	}
	if rule.Excluded(listing.Title) {
		return true, "title matches exclude keyword"
	}
	if c.globalBlocklist.Blocked(listing.Title) && !rule.OverridesBlocklist(listing.Title) {
		return true, "title matches global blocklist"
	}
	if listing.Seller != "" && c.sellerBlocklist.Blocked(listing.Seller) {
		return true, "seller is blocklisted"
	}
	return false, ""
}

func (c *Cycle) finish(res *Result, started time.Time, status string) {
	elapsed := c.now().Sub(started)
	if c.metrics != nil {
		c.metrics.CyclesTotal.WithLabelValues(status).Inc()
		c.metrics.CycleDuration.Observe(elapsed.Seconds())
		c.metrics.LastCycleUnix.Set(float64(c.now().Unix()))
	}
	c.logger.Printf("[%s] Cycle %s in %v: fetched=%d notified=%d rejected=%d suppressed=%d filtered=%d fetchErrs=%d dispatchErrs=%d",
		res.CycleID, status, elapsed.Round(time.Millisecond),
		res.ListingsFetched, res.Notified, res.Rejected, res.Suppressed, res.Filtered,
		res.FetchErrors, res.DispatchErrors)
}

func (c *Cycle) debugf(format string, args ...any) {
	if c.debug {
		c.logger.Printf(format, args...)
	}
}

func orNoTier(tier string) string {
	if tier == "" {
		return "none"
	}
	return tier
}
