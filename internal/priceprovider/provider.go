// Package priceprovider implements the external USD price provider (C3):
// a CoinGecko-backed client with a TTL cache, stablecoin fast path, rate
// limiting, batching, and 429/403 backoff handling.
package priceprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
)

const (
	demoBaseURL = "https://api.coingecko.com/api/v3"
	proBaseURL  = "https://pro-api.coingecko.com/api/v3"

	demoAuthHeader = "x-cg-demo-api-key"
	proAuthHeader  = "x-cg-pro-api-key"

	defaultBatchSize = 250
	rateLimitBackoff = 5 * time.Second
)

// Tier selects the CoinGecko base URL and auth header.
type Tier string

const (
	TierDemo Tier = "demo"
	TierPro  Tier = "pro"
)

// Config configures the provider.
type Config struct {
	APIKey            string
	Tier              Tier
	CacheTTL          time.Duration
	BatchSize         int
	MaxRetries        int
	RequestsPerMinute int
	StableIDs         []string
	HTTPClient        *http.Client
}

type cacheEntry struct {
	price     float64
	timestamp time.Time
	ttl       time.Duration
}

func (e cacheEntry) isStale() bool {
	return time.Since(e.timestamp) > e.ttl
}

// Provider is the CoinGecko-backed price provider.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	baseURL    string
	authHeader string

	stableIDs map[string]struct{}

	mu    sync.Mutex
	cache map[string]cacheEntry

	rateMu       sync.Mutex
	minInterval  time.Duration
	lastRequest  time.Time

	log zerolog.Logger

	stopRefresh chan struct{}
}

// New creates a Provider from Config, applying the defaults from
// spec.md section 4.3/6.
func New(cfg Config) *Provider {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = requestsPerMinuteForTier(cfg.Tier, cfg.APIKey)
	}

	baseURL, authHeader := demoBaseURL, demoAuthHeader
	if cfg.Tier == TierPro {
		baseURL, authHeader = proBaseURL, proAuthHeader
	}

	stableIDs := make(map[string]struct{}, len(cfg.StableIDs))
	for _, id := range cfg.StableIDs {
		stableIDs[id] = struct{}{}
	}
	if len(stableIDs) == 0 {
		for _, id := range defaultStableIDs {
			stableIDs[id] = struct{}{}
		}
	}

	p := &Provider{
		cfg:         cfg,
		httpClient:  cfg.HTTPClient,
		baseURL:     baseURL,
		authHeader:  authHeader,
		stableIDs:   stableIDs,
		cache:       make(map[string]cacheEntry),
		minInterval: time.Minute / time.Duration(cfg.RequestsPerMinute),
		log:         logging.New("price-provider"),
	}
	return p
}

// NewForTest behaves like New but overrides the base URL, letting tests
// point the provider at an httptest.Server instead of the real API.
func NewForTest(cfg Config, baseURL string) *Provider {
	p := New(cfg)
	p.baseURL = baseURL
	return p
}

// defaultStableIDs are the CoinGecko ids that always resolve to 1.0.
var defaultStableIDs = []string{"usd-coin", "tether", "dai", "true-usd", "frax"}

// requestsPerMinuteForTier implements spec.md section 4.3's tiering:
// 10/min with no key, 50/min with a demo key, 100/min with a pro key.
func requestsPerMinuteForTier(tier Tier, apiKey string) int {
	switch {
	case tier == TierPro && apiKey != "":
		return 100
	case tier == TierDemo && apiKey != "":
		return 50
	default:
		return 10
	}
}

func (p *Provider) isStable(id string) bool {
	_, ok := p.stableIDs[id]
	return ok
}

// GetPrice returns the USD price for a single CoinGecko id.
func (p *Provider) GetPrice(ctx context.Context, id string) (float64, error) {
	if p.isStable(id) {
		return 1.0, nil
	}

	if price, ok := p.cached(id); ok {
		return price, nil
	}

	prices, err := p.fetchBatch(ctx, []string{id})
	if err != nil {
		// Non-recoverable failure for a non-stable id: cache 0 and return it
		// so callers don't hammer a known-bad id until the TTL expires.
		p.store(id, 0)
		return 0, err
	}
	price := prices[id]
	p.store(id, price)
	return price, nil
}

// GetPrices returns USD prices for several ids, partitioning into batches
// of at most cfg.BatchSize and issuing one request per batch (C3).
func (p *Provider) GetPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	result := make(map[string]float64, len(ids))
	var toFetch []string

	for _, id := range ids {
		if p.isStable(id) {
			result[id] = 1.0
			continue
		}
		if price, ok := p.cached(id); ok {
			result[id] = price
			continue
		}
		toFetch = append(toFetch, id)
	}

	for start := 0; start < len(toFetch); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(toFetch) {
			end = len(toFetch)
		}
		batch := toFetch[start:end]

		prices, err := p.fetchBatch(ctx, batch)
		if err != nil {
			for _, id := range batch {
				p.store(id, 0)
				result[id] = 0
			}
			continue
		}
		for _, id := range batch {
			price := prices[id]
			p.store(id, price)
			result[id] = price
		}
	}

	return result, nil
}

func (p *Provider) cached(id string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[id]
	if !ok {
		return 0, false
	}
	if entry.isStale() {
		delete(p.cache, id)
		return 0, false
	}
	return entry.price, true
}

func (p *Provider) store(id string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[id] = cacheEntry{price: price, timestamp: time.Now(), ttl: p.cfg.CacheTTL}
}

// waitForRateLimit blocks until the minimum interval between outbound
// requests has elapsed, protecting the single monotonic cursor against races.
func (p *Provider) waitForRateLimit(ctx context.Context) error {
	p.rateMu.Lock()
	wait := time.Until(p.lastRequest.Add(p.minInterval))
	if wait < 0 {
		wait = 0
	}
	p.lastRequest = time.Now().Add(wait)
	p.rateMu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type simplePriceResponse map[string]map[string]json.Number

// fetchBatch performs a single CoinGecko /simple/price request for the
// given ids, retrying on transient errors with exponential backoff and
// special-casing HTTP 429/403/400 per spec.md section 4.3/7.
func (p *Provider) fetchBatch(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	var result map[string]float64

	boff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.MaxRetries)), ctx)

	err := backoff.Retry(func() error {
		if err := p.waitForRateLimit(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := p.buildRequest(ctx, ids)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			parsed, perr := parseSimplePriceResponse(body)
			if perr != nil {
				return backoff.Permanent(perr)
			}
			result = parsed
			return nil
		case http.StatusTooManyRequests:
			p.log.Warn().Msg("price provider rate limited (429), backing off")
			time.Sleep(rateLimitBackoff)
			return fmt.Errorf("rate limited: %s", string(body))
		case http.StatusForbidden:
			p.log.Error().Str("body", string(body)).Msg("price provider returned 403")
			return backoff.Permanent(fmt.Errorf("forbidden: %s", string(body)))
		case http.StatusBadRequest:
			return backoff.Permanent(fmt.Errorf("bad request (invalid id?): %s", string(body)))
		default:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
	}, boff)

	if err != nil {
		return nil, fmt.Errorf("price provider fetch failed: %w", err)
	}
	return result, nil
}

func (p *Provider) buildRequest(ctx context.Context, ids []string) (*http.Request, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_last_updated_at", "true")

	endpoint := fmt.Sprintf("%s/simple/price?%s", p.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}
	if p.cfg.APIKey != "" {
		req.Header.Set(p.authHeader, p.cfg.APIKey)
	}
	return req, nil
}

func parseSimplePriceResponse(body []byte) (map[string]float64, error) {
	var raw simplePriceResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse price response: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for id, fields := range raw {
		usd, ok := fields["usd"]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(usd.String(), 64)
		if err != nil {
			continue
		}
		out[id] = f
	}
	return out, nil
}

// StartRefreshLoop runs a periodic task every half the cache TTL that
// observes entries at >=80% of their TTL age for diagnostics. It does not
// refresh anything itself; active refresh is caller-driven through the
// token repository's RefreshStalePrices.
func (p *Provider) StartRefreshLoop(ctx context.Context) {
	p.stopRefresh = make(chan struct{})
	interval := p.cfg.CacheTTL / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopRefresh:
				return
			case <-ticker.C:
				p.logAgingEntries()
			}
		}
	}()
}

// Stop halts the refresh loop started by StartRefreshLoop.
func (p *Provider) Stop() {
	if p.stopRefresh != nil {
		close(p.stopRefresh)
	}
}

func (p *Provider) logAgingEntries() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, entry := range p.cache {
		age := time.Since(entry.timestamp)
		if age >= entry.ttl*4/5 {
			p.log.Debug().Str("id", id).Dur("age", age).Dur("ttl", entry.ttl).Msg("price cache entry aging")
		}
	}
}
