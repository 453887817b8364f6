package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/config"
)

type memFileReader map[string][]byte

func (m memFileReader) ReadFile(path string) ([]byte, error) {
	body, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return body, nil
}

func unsetIbcIdxEnv() {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "IBCIDX_") {
			if idx := strings.Index(e, "="); idx != -1 {
				_ = os.Unsetenv(e[:idx])
			}
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	body := []byte(`
log_level = "debug"

[local_chain]
mainnet_id = "bbn-1"
testnet_id = "bbn-test-5"

[price_provider]
tier = "pro"
cache_ttl_minutes = 10
`)
	loader := config.NewLoader(memFileReader{"cfg.toml": body})
	cfg, err := loader.LoadFromFile("cfg.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %s", cfg.LogLevel)
	}
	if cfg.PriceProvider.Tier != config.TierPro {
		t.Errorf("expected tier pro, got %s", cfg.PriceProvider.Tier)
	}
	if cfg.PriceProvider.CacheTTLMinutes != 10 {
		t.Errorf("expected cache_ttl_minutes 10, got %d", cfg.PriceProvider.CacheTTLMinutes)
	}
	// unset fields should keep defaults
	if cfg.PriceProvider.BatchSize != 250 {
		t.Errorf("expected default batch size 250, got %d", cfg.PriceProvider.BatchSize)
	}
}

func TestLoadFromFileRejectsNonToml(t *testing.T) {
	loader := config.NewLoader(memFileReader{})
	if _, err := loader.LoadFromFile("cfg.json"); err == nil {
		t.Fatal("expected error for non-toml path")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	unsetIbcIdxEnv()
	defer unsetIbcIdxEnv()
	_ = os.Setenv("IBCIDX_MONGO_URI", "mongodb://override:27017")
	_ = os.Setenv("IBCIDX_LOG_LEVEL", "warn")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mongo.URI != "mongodb://override:27017" {
		t.Errorf("expected mongo uri override, got %s", cfg.Mongo.URI)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log level override, got %s", cfg.LogLevel)
	}
}

func TestRequestsPerMinuteForTier(t *testing.T) {
	cases := []struct {
		name     string
		cfg      config.Config
		expected int
	}{
		{"no key", config.Config{}, 10},
		{"demo key", config.Config{PriceProvider: config.PriceProviderConfig{Tier: config.TierDemo, APIKey: "x"}}, 50},
		{"pro key", config.Config{PriceProvider: config.PriceProviderConfig{Tier: config.TierPro, APIKey: "x"}}, 100},
		{"explicit override", config.Config{PriceProvider: config.PriceProviderConfig{RequestsPerMinute: 7}}, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.RequestsPerMinuteForTier(); got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}
