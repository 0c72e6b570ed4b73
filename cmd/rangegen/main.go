// Command rangegen derives a keyword rule block from a minimum and target
// price, splitting the window into fire/great/good/ok tiers. Output is a
// JSON fragment ready to paste into the config file's rules array.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"dealwatch/internal/domain"
	"dealwatch/internal/rules"
)

// Tier derivation constants, minor currency units.
const (
	// greatBelowTarget is how far below the target price the great tier
	// begins.
	greatBelowTarget = 1000
	// headroomCap bounds how far above the target the acceptable range
	// extends; below the cap, headroom is 5% of the target.
	headroomCap = 2500
)

func main() {
	keyword := flag.String("keyword", "", "Keyword pattern for the rule (plain or regexp::)")
	minPrice := flag.Int64("min-price", 0, "Minimum realistic price, minor units (cents)")
	targetPrice := flag.Int64("target-price", 0, "Target buy price, minor units (cents)")

	flag.Parse()

	logger := log.New(os.Stderr, "[rangegen] ", 0)

	if *keyword == "" || *minPrice <= 0 || *targetPrice <= 0 {
		logger.Fatal("Usage: rangegen --keyword <pattern> --min-price <cents> --target-price <cents>")
	}
	if *minPrice >= *targetPrice {
		logger.Fatal("min-price must be below target-price")
	}

	rule := generateRule(*keyword, *minPrice, *targetPrice)

	// A generated rule that fails its own validation is a bug here, not
	// a user error.
	if _, err := rules.NewRuleSet([]domain.KeywordRule{rule}); err != nil {
		logger.Fatalf("Generated rule failed validation: %v", err)
	}

	out, err := json.MarshalIndent(rule, "", "    ")
	if err != nil {
		logger.Fatalf("Failed to marshal rule: %v", err)
	}
	fmt.Println(string(out))
}

// generateRule splits [min, max] into four adjacent tiers around the
// target price: fire below the great band, great just under target, then
// good and ok sharing the headroom above target evenly.
func generateRule(keyword string, minPrice, targetPrice int64) domain.KeywordRule {
	headroom := targetPrice / 20
	if headroom > headroomCap {
		headroom = headroomCap
	}
	maxPrice := targetPrice + headroom

	greatStart := targetPrice - greatBelowTarget
	greatEnd := targetPrice - 1
	fireEnd := greatStart - 1
	goodStart := greatEnd + 1
	goodEnd := goodStart + (maxPrice-goodStart)/2
	okStart := goodEnd + 1

	return domain.KeywordRule{
		Keyword: keyword,
		AcceptableRange: domain.PriceRange{
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		},
		Tiers: []domain.Tier{
			{Label: "fire_deal", Start: minPrice, End: fireEnd},
			{Label: "great_deal", Start: greatStart, End: greatEnd},
			{Label: "good_deal", Start: goodStart, End: goodEnd},
			{Label: "ok_deal", Start: okStart, End: maxPrice},
		},
	}
}
