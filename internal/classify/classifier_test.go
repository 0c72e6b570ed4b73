package classify

import (
	"errors"
	"testing"

	"dealwatch/internal/domain"
)

func testRule() domain.KeywordRule {
	return domain.KeywordRule{
		Keyword:         "rtx 3080",
		AcceptableRange: domain.PriceRange{MinPrice: 130, MaxPrice: 170},
		Tiers: []domain.Tier{
			{Label: "fire_deal", Start: 130, End: 145},
			{Label: "great_deal", Start: 146, End: 160},
		},
	}
}

func TestClassify_RejectedOutsideAcceptableRange(t *testing.T) {
	rule := testRule()

	for _, price := range []int64{0, 129, 171, 1000} {
		c, err := Classify(rule, price)
		if err != nil {
			t.Fatalf("Classify(%d) failed: %v", price, err)
		}
		if c.Outcome != domain.OutcomeRejected {
			t.Errorf("price %d: expected REJECTED, got %s", price, c.Outcome)
		}
	}
}

func TestClassify_RangeDecoupling(t *testing.T) {
	// The tier contains the price but the acceptable range does not:
	// the gate wins, independent of tier boundaries.
	rule := domain.KeywordRule{
		Keyword:         "gpu",
		AcceptableRange: domain.PriceRange{MinPrice: 130, MaxPrice: 170},
		Tiers: []domain.Tier{
			{Label: "fire_deal", Start: 100, End: 145},
		},
	}

	c, err := Classify(rule, 120)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if c.Outcome != domain.OutcomeRejected {
		t.Errorf("expected REJECTED for price below acceptable range, got %s", c.Outcome)
	}
}

func TestClassify_AcceptableBoundsInclusive(t *testing.T) {
	rule := testRule()

	for _, price := range []int64{130, 170} {
		c, err := Classify(rule, price)
		if err != nil {
			t.Fatalf("Classify(%d) failed: %v", price, err)
		}
		if c.Outcome == domain.OutcomeRejected {
			t.Errorf("price %d on acceptable boundary should not be rejected", price)
		}
	}
}

func TestClassify_TierBoundaryInclusive(t *testing.T) {
	rule := testRule()

	c, err := Classify(rule, 145)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if c.Outcome != domain.OutcomeTier || c.Tier != "fire_deal" {
		t.Errorf("price 145 on tier end boundary: expected fire_deal, got %s (%s)", c.Tier, c.Outcome)
	}
}

func TestClassify_OverlapLowestStartWins(t *testing.T) {
	rule := domain.KeywordRule{
		Keyword:         "gpu",
		AcceptableRange: domain.PriceRange{MinPrice: 100, MaxPrice: 200},
		Tiers: []domain.Tier{
			// Declared worse-first: priority comes from Start, not order.
			{Label: "great_deal", Start: 140, End: 160},
			{Label: "fire_deal", Start: 130, End: 150},
		},
	}

	c, err := Classify(rule, 145)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if c.Tier != "fire_deal" {
		t.Errorf("overlapping tiers: expected fire_deal (lower start), got %s", c.Tier)
	}
	if c.TierStart != 130 {
		t.Errorf("expected TierStart 130, got %d", c.TierStart)
	}
}

func TestClassify_EqualStartDeclarationOrderWins(t *testing.T) {
	rule := domain.KeywordRule{
		Keyword:         "gpu",
		AcceptableRange: domain.PriceRange{MinPrice: 100, MaxPrice: 200},
		Tiers: []domain.Tier{
			{Label: "first", Start: 130, End: 150},
			{Label: "second", Start: 130, End: 160},
		},
	}

	c, err := Classify(rule, 140)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if c.Tier != "first" {
		t.Errorf("equal tier starts: expected declaration order to win, got %s", c.Tier)
	}
}

func TestClassify_NoTierStillAccepted(t *testing.T) {
	// Gap between tiers inside the acceptable range: accepted, no tier,
	// never rejected.
	rule := domain.KeywordRule{
		Keyword:         "gpu",
		AcceptableRange: domain.PriceRange{MinPrice: 100, MaxPrice: 200},
		Tiers: []domain.Tier{
			{Label: "fire_deal", Start: 100, End: 120},
			{Label: "ok_deal", Start: 180, End: 200},
		},
	}

	c, err := Classify(rule, 150)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if c.Outcome != domain.OutcomeNoTier {
		t.Errorf("expected NO_TIER, got %s", c.Outcome)
	}
	if c.Tier != "" {
		t.Errorf("NO_TIER classification should carry no label, got %q", c.Tier)
	}
	if !c.Notifiable() {
		t.Error("NO_TIER must remain notifiable")
	}
}

func TestClassify_NoTiersConfigured(t *testing.T) {
	rule := domain.KeywordRule{
		Keyword:         "gpu",
		AcceptableRange: domain.PriceRange{MinPrice: 100, MaxPrice: 200},
	}

	c, err := Classify(rule, 150)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if c.Outcome != domain.OutcomeNoTier {
		t.Errorf("expected NO_TIER with no tiers configured, got %s", c.Outcome)
	}
}

func TestClassify_NegativePrice(t *testing.T) {
	_, err := Classify(testRule(), -1)
	if !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice for negative price, got %v", err)
	}
}
