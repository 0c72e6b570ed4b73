package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Default webhook client settings.
const (
	DefaultWebhookTimeout = 10 * time.Second

	// defaultRetryAfter is used when a 429 response carries no usable
	// Retry-After hint.
	defaultRetryAfter = 2 * time.Second
)

// Embed colors per well-known tier label; unknown labels fall back to
// colorDefault. Labels are config data, not code branches: an unknown tier
// still dispatches, it just renders with the default color.
const (
	colorFire    = 0xE74C3C
	colorGreat   = 0x9B59B6
	colorGood    = 0x2ECC71
	colorOK      = 0x3498DB
	colorDefault = 0x95A5A6
)

var tierColors = map[string]int{
	"fire_deal":  colorFire,
	"great_deal": colorGreat,
	"good_deal":  colorGood,
	"ok_deal":    colorOK,
}

// WebhookClient dispatches notifications to a Discord-compatible webhook.
type WebhookClient struct {
	url      string
	username string
	roleID   int64 // role to mention; 0 disables the mention
	client   *http.Client
	logger   *log.Logger
}

// WebhookOption configures WebhookClient.
type WebhookOption func(*WebhookClient)

// WithUsername sets the webhook display username.
func WithUsername(name string) WebhookOption {
	return func(c *WebhookClient) {
		c.username = name
	}
}

// WithMentionRole sets a role id to mention in the message content.
func WithMentionRole(id int64) WebhookOption {
	return func(c *WebhookClient) {
		c.roleID = id
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(c *WebhookClient) {
		c.client = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) WebhookOption {
	return func(c *WebhookClient) {
		c.logger = logger
	}
}

// NewWebhookClient creates a webhook notifier for the given URL.
func NewWebhookClient(url string, opts ...WebhookOption) *WebhookClient {
	c := &WebhookClient{
		url:      url,
		username: "dealwatch",
		client:   &http.Client{Timeout: DefaultWebhookTimeout},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Notifier = (*WebhookClient)(nil)

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookEmbed struct {
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	Color  int    `json:"color"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	Fields []webhookField `json:"fields"`
	Footer struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type webhookMessage struct {
	Content  string         `json:"content"`
	Username string         `json:"username"`
	Embeds   []webhookEmbed `json:"embeds"`
}

// Notify posts the payload as a webhook embed. A 429 response is retried
// once after the server-indicated delay; any other non-2xx status is an
// error and the caller retries on a later cycle.
func (c *WebhookClient) Notify(ctx context.Context, p Payload) error {
	body, err := json.Marshal(c.buildMessage(p))
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return err
	}

	if resp.status == http.StatusTooManyRequests {
		delay := resp.retryAfter
		if delay <= 0 {
			delay = defaultRetryAfter
		}
		c.logger.Printf("Webhook rate limited, retrying in %v", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		resp, err = c.post(ctx, body)
		if err != nil {
			return err
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return fmt.Errorf("webhook status %d: %s", resp.status, resp.body)
	}
	return nil
}

type webhookResponse struct {
	status     int
	body       string
	retryAfter time.Duration
}

func (c *WebhookClient) post(ctx context.Context, body []byte) (*webhookResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	return &webhookResponse{
		status:     resp.StatusCode,
		body:       string(respBody),
		retryAfter: parseRetryAfter(resp, respBody),
	}, nil
}

// parseRetryAfter extracts the retry delay from a 429 response, preferring
// the JSON body ("retry_after", seconds) over the Retry-After header.
func parseRetryAfter(resp *http.Response, body []byte) time.Duration {
	var parsed struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}

func (c *WebhookClient) buildMessage(p Payload) webhookMessage {
	tierName := p.Tier
	color := colorDefault
	if tierName == "" {
		tierName = "In range (no tier)"
	} else if known, ok := tierColors[p.Tier]; ok {
		color = known
	}

	embed := webhookEmbed{
		Title: p.Title,
		URL:   p.URL,
		Color: color,
	}
	embed.Author.Name = tierName
	embed.Footer.Text = "Listing ID: " + p.ListingID

	embed.Fields = append(embed.Fields,
		webhookField{Name: "Price", Value: formatPrice(p.Price, p.Currency), Inline: true},
		webhookField{Name: "Keyword", Value: p.Keyword, Inline: true},
	)
	if p.Seller != "" {
		embed.Fields = append(embed.Fields, webhookField{Name: "Seller", Value: p.Seller, Inline: false})
	}

	content := ""
	if c.roleID != 0 {
		content = fmt.Sprintf("<@&%d>", c.roleID)
	}

	return webhookMessage{
		Content:  content,
		Username: c.username,
		Embeds:   []webhookEmbed{embed},
	}
}

// formatPrice renders minor currency units for display ("$135.99 USD").
func formatPrice(units int64, currency string) string {
	s := fmt.Sprintf("$%d.%02d", units/100, units%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}
