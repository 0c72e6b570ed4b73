package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dealwatch/internal/domain"
)

const testToken = "test-access-token"

// newTokenHandler serves a client-credentials grant and counts requests.
func newTokenHandler(t *testing.T, calls *atomic.Int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": testToken,
			"expires_in":   7200,
		})
	}
}

func searchBody(items ...map[string]any) []byte {
	b, _ := json.Marshal(map[string]any{"itemSummaries": items})
	return b
}

func testItem(id, title, price string) map[string]any {
	return map[string]any{
		"itemId":           id,
		"title":            title,
		"price":            map[string]string{"value": price, "currency": "USD"},
		"itemWebUrl":       "https://example.com/itm/" + id,
		"seller":           map[string]string{"username": "some_seller"},
		"itemCreationDate": "2026-08-30T12:00:00.000Z",
		"buyingOptions":    []string{"FIXED_PRICE"},
	}
}

func newTestClient(searchURL, tokenURL string, opts ...ClientOption) *BrowseClient {
	base := []ClientOption{
		WithRetryDelay(time.Millisecond),
		WithLogger(log.New(io.Discard, "", 0)),
	}
	return NewBrowseClient(searchURL, tokenURL, "client-id", "client-secret", append(base, opts...)...)
}

func TestBrowseClient_Search(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	var mu sync.Mutex
	var gotQuery, gotFilter, gotAuth, gotMarketplace string
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotQuery = r.URL.Query().Get("q")
		gotFilter = r.URL.Query().Get("filter")
		gotAuth = r.Header.Get("Authorization")
		gotMarketplace = r.Header.Get("X-EBAY-C-MARKETPLACE-ID")
		mu.Unlock()
		w.Write(searchBody(
			testItem("v1|111|0", "Lenovo ThinkPad T480", "135.99"),
			testItem("v1|222|0", "Lenovo ThinkPad T490", "150.00"),
		))
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL)

	listings, err := client.Search(context.Background(), "thinkpad t480", domain.PriceRange{MinPrice: 10000, MaxPrice: 20000})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}

	mu.Lock()
	defer mu.Unlock()
	if gotQuery != "thinkpad t480" {
		t.Errorf("q = %q, want %q", gotQuery, "thinkpad t480")
	}
	wantFilter := "buyingOptions:{FIXED_PRICE},price:[100.00..200.00],priceCurrency:USD"
	if gotFilter != wantFilter {
		t.Errorf("filter = %q, want %q", gotFilter, wantFilter)
	}
	if gotAuth != "Bearer "+testToken {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotMarketplace != "EBAY_US" {
		t.Errorf("marketplace header = %q, want EBAY_US", gotMarketplace)
	}

	first := listings[0]
	if first.ID != "v1|111|0" {
		t.Errorf("ID = %q", first.ID)
	}
	if first.Price != 13599 {
		t.Errorf("Price = %d, want 13599", first.Price)
	}
	if first.Keyword != "thinkpad t480" {
		t.Errorf("Keyword = %q", first.Keyword)
	}
	if first.ListedAt == 0 {
		t.Error("ListedAt not parsed")
	}
}

func TestBrowseClient_TokenCached(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(searchBody())
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL)

	for i := 0; i < 3; i++ {
		if _, err := client.Search(context.Background(), "gpu", domain.PriceRange{MaxPrice: 50000}); err != nil {
			t.Fatalf("Search %d failed: %v", i, err)
		}
	}

	if n := tokenCalls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
}

func TestBrowseClient_RetriesRateLimit(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	var searchCalls atomic.Int64
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if searchCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(searchBody(testItem("v1|333|0", "RTX 3060", "210.00")))
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL)

	listings, err := client.Search(context.Background(), "rtx 3060", domain.PriceRange{MaxPrice: 30000})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	if n := searchCalls.Load(); n != 2 {
		t.Errorf("search endpoint called %d times, want 2", n)
	}
}

func TestBrowseClient_RateLimitExhausted(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL, WithMaxRetries(1))

	_, err := client.Search(context.Background(), "gpu", domain.PriceRange{MaxPrice: 30000})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
	if !IsTransient(err) {
		t.Error("rate limit error should be transient")
	}
}

func TestBrowseClient_AuthFailureInvalidatesToken(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	var searchCalls atomic.Int64
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if searchCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(searchBody())
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL)

	if _, err := client.Search(context.Background(), "gpu", domain.PriceRange{MaxPrice: 30000}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// The 401 must discard the cached token and re-authenticate.
	if n := tokenCalls.Load(); n != 2 {
		t.Errorf("token endpoint called %d times, want 2", n)
	}
}

func TestBrowseClient_DropsUnusableItems(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	noID := testItem("", "missing id", "10.00")
	auction := testItem("v1|444|0", "auction only", "10.00")
	auction["buyingOptions"] = []string{"AUCTION"}
	badPrice := testItem("v1|555|0", "bad price", "not-a-price")
	good := testItem("v1|666|0", "keeper", "10.00")

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(searchBody(noID, auction, badPrice, good))
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL)

	listings, err := client.Search(context.Background(), "misc", domain.PriceRange{MaxPrice: 5000})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(listings) != 1 || listings[0].ID != "v1|666|0" {
		t.Fatalf("got %+v, want only v1|666|0", listings)
	}
}

func TestBrowseClient_ContextCancelled(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(newTokenHandler(t, &tokenCalls))
	defer tokenSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer searchSrv.Close()

	client := newTestClient(searchSrv.URL, tokenSrv.URL, WithRetryDelay(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Search(ctx, "gpu", domain.PriceRange{MaxPrice: 30000})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Search did not return after cancellation")
	}
}
