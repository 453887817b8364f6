package priceprovider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/priceprovider"
)

func TestGetPriceStablecoinNeverHitsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := priceprovider.NewForTest(priceprovider.Config{
		Tier:              priceprovider.TierDemo,
		RequestsPerMinute: 600,
		HTTPClient:        srv.Client(),
	}, srv.URL)
	price, err := p.GetPrice(context.Background(), "usd-coin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 1.0 {
		t.Errorf("expected stablecoin price 1.0, got %v", price)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no network calls for stablecoin, got %d", calls)
	}
}

func newTestServer(t *testing.T, prices map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]map[string]float64{}
		ids := r.URL.Query().Get("ids")
		for _, id := range splitCSV(ids) {
			if p, ok := prices[id]; ok {
				resp[id] = map[string]float64{"usd": p}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func splitCSV(s string) []string {
	var out []string
	cur := ""
	for _, c := range s {
		if c == ',' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(c)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func TestGetPriceFetchesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cosmos":{"usd":10.5}}`))
	}))
	defer srv.Close()

	p := priceprovider.NewForTest(priceprovider.Config{
		Tier:              priceprovider.TierDemo,
		RequestsPerMinute: 600,
		CacheTTL:          time.Minute,
		HTTPClient:        srv.Client(),
	}, srv.URL)

	price, err := p.GetPrice(context.Background(), "cosmos")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 10.5 {
		t.Errorf("expected 10.5, got %v", price)
	}

	// second call should hit cache, not the server
	_, _ = p.GetPrice(context.Background(), "cosmos")
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected 1 network call due to caching, got %d", calls)
	}
}

func TestGetPricesBatchesRequests(t *testing.T) {
	srv := newTestServer(t, map[string]float64{"cosmos": 10, "osmosis": 1, "juno-network": 5})
	defer srv.Close()

	p := priceprovider.NewForTest(priceprovider.Config{
		Tier:              priceprovider.TierDemo,
		RequestsPerMinute: 600,
		BatchSize:         2,
		CacheTTL:          time.Minute,
		HTTPClient:        srv.Client(),
	}, srv.URL)

	prices, err := p.GetPrices(context.Background(), []string{"cosmos", "osmosis", "juno-network"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prices["cosmos"] != 10 || prices["osmosis"] != 1 || prices["juno-network"] != 5 {
		t.Errorf("unexpected prices: %+v", prices)
	}
}

func TestGetPriceCaches403AsPermanentFailureZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	p := priceprovider.NewForTest(priceprovider.Config{
		Tier:              priceprovider.TierDemo,
		RequestsPerMinute: 600,
		MaxRetries:        1,
		CacheTTL:          time.Minute,
		HTTPClient:        srv.Client(),
	}, srv.URL)

	price, err := p.GetPrice(context.Background(), "unknown-id")
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if price != 0 {
		t.Errorf("expected price 0 on failure, got %v", price)
	}
}
