package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dealwatch/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultLimit       = 50

	// tokenExpirySlack renews the OAuth token this long before the
	// server-reported expiry.
	tokenExpirySlack = 2 * time.Minute
)

// BrowseClient implements Searcher against a Browse-style search API with
// OAuth2 client-credentials authentication.
type BrowseClient struct {
	searchURL     string
	tokenURL      string
	clientID      string
	clientSecret  string
	marketplaceID string
	limit         int
	client        *http.Client
	maxRetries    int
	retryDelay    time.Duration
	maxDelay      time.Duration
	backoffMult   float64
	logger        *log.Logger

	tokenMu        sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

// ClientOption configures BrowseClient.
type ClientOption func(*BrowseClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *BrowseClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *BrowseClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *BrowseClient) {
		c.retryDelay = d
	}
}

// WithLimit sets the per-search result limit.
func WithLimit(n int) ClientOption {
	return func(c *BrowseClient) {
		c.limit = n
	}
}

// WithMarketplaceID sets the marketplace header value.
func WithMarketplaceID(id string) ClientOption {
	return func(c *BrowseClient) {
		c.marketplaceID = id
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *BrowseClient) {
		c.client = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *BrowseClient) {
		c.logger = logger
	}
}

// NewBrowseClient creates a new marketplace search client.
func NewBrowseClient(searchURL, tokenURL, clientID, clientSecret string, opts ...ClientOption) *BrowseClient {
	c := &BrowseClient{
		searchURL:     searchURL,
		tokenURL:      tokenURL,
		clientID:      clientID,
		clientSecret:  clientSecret,
		marketplaceID: "EBAY_US",
		limit:         DefaultLimit,
		client:        &http.Client{Timeout: DefaultTimeout},
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		maxDelay:      DefaultMaxDelay,
		backoffMult:   DefaultBackoffMult,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Searcher = (*BrowseClient)(nil)

// tokenResponse is the OAuth2 client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// validToken returns a cached OAuth token, fetching a new one when the
// cache is empty or about to expire.
func (c *BrowseClient) validToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiresAt) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"https://api.ebay.com/oauth/api_scope"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("token request status %d: %w", resp.StatusCode, ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("unmarshal token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpirySlack)
	return c.token, nil
}

// invalidateToken discards the cached token so the next call
// re-authenticates.
func (c *BrowseClient) invalidateToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenExpiresAt = time.Time{}
	c.tokenMu.Unlock()
}

// itemSummary mirrors one entry of the search response.
type itemSummary struct {
	ItemID string `json:"itemId"`
	Title  string `json:"title"`
	Price  struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	ItemWebURL string `json:"itemWebUrl"`
	Seller     struct {
		Username string `json:"username"`
	} `json:"seller"`
	ItemCreationDate string   `json:"itemCreationDate"`
	BuyingOptions    []string `json:"buyingOptions"`
}

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

// Search fetches fixed-price listings for a keyword, newest first, with the
// acceptable price window pushed into the API filter. Retries transient
// failures with exponential backoff; 429 counts as transient, 401/403
// invalidates the cached token and fails with ErrAuth.
func (c *BrowseClient) Search(ctx context.Context, keyword string, window domain.PriceRange) ([]*domain.Listing, error) {
	params := url.Values{
		"q":     {keyword},
		"sort":  {"newlyListed"},
		"limit": {fmt.Sprintf("%d", c.limit)},
		"filter": {fmt.Sprintf("buyingOptions:{FIXED_PRICE},price:[%s..%s],priceCurrency:USD",
			FormatMinorUnits(window.MinPrice), FormatMinorUnits(window.MaxPrice))},
	}
	reqURL := c.searchURL + "?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		token, err := c.validToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.marketplaceID)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("search request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read search response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			c.invalidateToken()
			lastErr = fmt.Errorf("search status %d: %w", resp.StatusCode, ErrAuth)
			continue
		case resp.StatusCode != http.StatusOK:
			lastErr = fmt.Errorf("search status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var sr searchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return nil, fmt.Errorf("unmarshal search response: %w", err)
		}

		return c.mapListings(keyword, sr.ItemSummaries), nil
	}

	return nil, fmt.Errorf("search %q failed after %d attempts: %w", keyword, c.maxRetries+1, lastErr)
}

// mapListings converts item summaries to domain listings, dropping entries
// without an id, without a fixed-price option, or with an unparsable price.
func (c *BrowseClient) mapListings(keyword string, items []itemSummary) []*domain.Listing {
	listings := make([]*domain.Listing, 0, len(items))
	for _, item := range items {
		if item.ItemID == "" {
			continue
		}
		if !hasFixedPrice(item.BuyingOptions) {
			continue
		}

		price, err := ParseMinorUnits(item.Price.Value)
		if err != nil {
			c.logger.Printf("Dropping listing %s: bad price %q: %v", item.ItemID, item.Price.Value, err)
			continue
		}

		var listedAt int64
		if item.ItemCreationDate != "" {
			if t, err := time.Parse(time.RFC3339, item.ItemCreationDate); err == nil {
				listedAt = t.Unix()
			}
		}

		listings = append(listings, &domain.Listing{
			ID:       item.ItemID,
			Title:    item.Title,
			Price:    price,
			Currency: item.Price.Currency,
			URL:      item.ItemWebURL,
			Seller:   item.Seller.Username,
			Keyword:  keyword,
			ListedAt: listedAt,
		})
	}
	return listings
}

// hasFixedPrice reports whether the listing can be bought outright.
// Auction-only listings are not actionable for deal alerts.
func hasFixedPrice(options []string) bool {
	for _, opt := range options {
		if opt == "FIXED_PRICE" {
			return true
		}
	}
	return false
}
