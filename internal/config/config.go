// Package config loads process configuration from a JSON file with
// environment-variable overrides for secrets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"dealwatch/internal/domain"
)

// Default configuration values.
const (
	DefaultPollIntervalSeconds = 60
	DefaultSearchURL           = "https://api.ebay.com/buy/browse/v1/item_summary/search"
	DefaultTokenURL            = "https://api.ebay.com/identity/v1/oauth2/token"
)

// Config holds all application configuration. Prices are minor currency
// units (cents). Secrets (API credentials, webhook URL, DSN) come from the
// environment, everything else from the JSON file.
type Config struct {
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	SearchURL           string `json:"search_url"`
	TokenURL            string `json:"token_url"`
	MarketplaceID       string `json:"marketplace_id"`
	SearchLimit         int    `json:"search_limit"`

	WebhookUsername string `json:"webhook_username"`
	MentionRole     int64  `json:"mention_role"`

	GlobalBlocklist []string `json:"global_blocklist"`
	SellerBlocklist []string `json:"seller_blocklist"`

	Rules []domain.KeywordRule `json:"rules"`

	// Environment-sourced, never read from the file.
	MarketClientID     string `json:"-"`
	MarketClientSecret string `json:"-"`
	WebhookURL         string `json:"-"`
	PostgresDSN        string `json:"-"`
	Debug              bool   `json:"-"`
}

// Load reads the JSON config file at path and applies env overrides.
// A .env file in the working directory is honored if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		PollIntervalSeconds: DefaultPollIntervalSeconds,
		SearchURL:           DefaultSearchURL,
		TokenURL:            DefaultTokenURL,
		MarketplaceID:       "EBAY_US",
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("poll_interval_seconds must be positive, got %d", cfg.PollIntervalSeconds)
	}

	cfg.MarketClientID = os.Getenv("MARKET_CLIENT_ID")
	cfg.MarketClientSecret = os.Getenv("MARKET_CLIENT_SECRET")
	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.Debug = getEnvBool("DEALWATCH_DEBUG", false)

	return cfg, nil
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
