package domain

// Outcome represents the result kind of classifying a listing price.
type Outcome string

const (
	// OutcomeRejected means the price fell outside the acceptable range.
	OutcomeRejected Outcome = "REJECTED"
	// OutcomeTier means the price was accepted and matched a named tier.
	OutcomeTier Outcome = "TIER"
	// OutcomeNoTier means the price was accepted but matched no tier.
	// Still eligible for notification, just without a tier label.
	OutcomeNoTier Outcome = "NO_TIER"
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	return string(o)
}

// Classification is the result of evaluating one listing price against a
// keyword rule.
type Classification struct {
	Outcome   Outcome
	Tier      string // matched tier label; empty unless Outcome is OutcomeTier
	TierStart int64  // Start bound of the matched tier; meaningful only for OutcomeTier
}

// Notifiable reports whether the classification is eligible for dispatch.
// Rejected listings never notify.
func (c Classification) Notifiable() bool {
	return c.Outcome == OutcomeTier || c.Outcome == OutcomeNoTier
}

// Improves reports whether c is strictly better than the previously
// recorded classification for the same listing. A nil record always
// improves. A named tier beats the no-tier sentinel; between named tiers,
// lower Start wins. Repeats of the recorded classification never improve.
func Improves(c Classification, rec *SeenRecord) bool {
	if rec == nil {
		return true
	}
	if c.Outcome != OutcomeTier {
		return false
	}
	if rec.Tier == "" {
		return true
	}
	return c.TierStart < rec.TierStart
}
