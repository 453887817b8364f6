package config

import (
	"strings"

	"github.com/spf13/viper"
)

// applyEnvOverrides overlays IBCIDX_-prefixed environment variables onto an
// already-loaded Config, following spec.md section 6's enumerated knobs.
// Unset environment variables leave the existing value (file or default)
// untouched, matching solver/config's viper-based override pattern.
func applyEnvOverrides(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix("IBCIDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind := []string{
		"price_provider.api_key",
		"price_provider.tier",
		"price_provider.cache_ttl_minutes",
		"price_provider.batch_size",
		"price_provider.max_retries",
		"price_provider.requests_per_minute",
		"local_chain.mainnet_id",
		"local_chain.testnet_id",
		"remote_rpc.timeout_seconds",
		"mongo.uri",
		"mongo.database",
		"server.address",
		"log_level",
	}
	for _, key := range bind {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	if v.IsSet("price_provider.api_key") {
		cfg.PriceProvider.APIKey = v.GetString("price_provider.api_key")
	}
	if v.IsSet("price_provider.tier") {
		cfg.PriceProvider.Tier = PriceProviderTier(v.GetString("price_provider.tier"))
	}
	if v.IsSet("price_provider.cache_ttl_minutes") {
		cfg.PriceProvider.CacheTTLMinutes = v.GetInt("price_provider.cache_ttl_minutes")
	}
	if v.IsSet("price_provider.batch_size") {
		cfg.PriceProvider.BatchSize = v.GetInt("price_provider.batch_size")
	}
	if v.IsSet("price_provider.max_retries") {
		cfg.PriceProvider.MaxRetries = v.GetInt("price_provider.max_retries")
	}
	if v.IsSet("price_provider.requests_per_minute") {
		cfg.PriceProvider.RequestsPerMinute = v.GetInt("price_provider.requests_per_minute")
	}
	if v.IsSet("local_chain.mainnet_id") {
		cfg.LocalChain.MainnetID = v.GetString("local_chain.mainnet_id")
	}
	if v.IsSet("local_chain.testnet_id") {
		cfg.LocalChain.TestnetID = v.GetString("local_chain.testnet_id")
	}
	if v.IsSet("remote_rpc.timeout_seconds") {
		cfg.RemoteRPC.TimeoutSeconds = v.GetInt("remote_rpc.timeout_seconds")
	}
	if v.IsSet("mongo.uri") {
		cfg.Mongo.URI = v.GetString("mongo.uri")
	}
	if v.IsSet("mongo.database") {
		cfg.Mongo.Database = v.GetString("mongo.database")
	}
	if v.IsSet("server.address") {
		cfg.Server.Address = v.GetString("server.address")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}

	return nil
}

// RequestsPerMinuteForTier resolves the effective rate limit for the
// configured tier, per spec.md section 4.3: 10/min with no key, 50/min
// with a demo key, 100/min with a pro key. An explicit RequestsPerMinute
// override always wins.
func (c *Config) RequestsPerMinuteForTier() int {
	if c.PriceProvider.RequestsPerMinute > 0 {
		return c.PriceProvider.RequestsPerMinute
	}
	switch {
	case c.PriceProvider.Tier == TierPro && c.PriceProvider.APIKey != "":
		return 100
	case c.PriceProvider.Tier == TierDemo && c.PriceProvider.APIKey != "":
		return 50
	default:
		return 10
	}
}

// ChainID returns the local chain_id for the given network.
func (c *Config) ChainID(network Network) string {
	if network == Mainnet {
		return c.LocalChain.MainnetID
	}
	return c.LocalChain.TestnetID
}
