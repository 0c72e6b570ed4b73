// Package classify maps listing prices to deal classifications.
package classify

import (
	"errors"

	"dealwatch/internal/domain"
)

// ErrInvalidPrice is returned for malformed (negative) price input.
// Boundary prices are never errors; they resolve to one of the three
// classification outcomes.
var ErrInvalidPrice = errors.New("invalid price: must be non-negative")

// Classify evaluates a listing price against a keyword rule.
//
// The acceptable range gates first, independent of tiers: a price outside
// [MinPrice, MaxPrice] is Rejected even if some tier contains it. Inside
// the gate, the matching tier with the lowest Start wins; ties on Start
// resolve by declaration order. All bounds are inclusive. A gated price
// matching no tier classifies as NoTier and remains notifiable.
//
// Pure function: no side effects, no I/O.
func Classify(rule domain.KeywordRule, price int64) (domain.Classification, error) {
	if price < 0 {
		return domain.Classification{}, ErrInvalidPrice
	}

	if !rule.AcceptableRange.Contains(price) {
		return domain.Classification{Outcome: domain.OutcomeRejected}, nil
	}

	best := -1
	for i, t := range rule.Tiers {
		if !t.Contains(price) {
			continue
		}
		// Strict < keeps the earlier declaration on equal Start.
		if best == -1 || t.Start < rule.Tiers[best].Start {
			best = i
		}
	}

	if best == -1 {
		return domain.Classification{Outcome: domain.OutcomeNoTier}, nil
	}

	matched := rule.Tiers[best]
	return domain.Classification{
		Outcome:   domain.OutcomeTier,
		Tier:      matched.Label,
		TierStart: matched.Start,
	}, nil
}
