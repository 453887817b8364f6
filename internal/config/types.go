package config

import "time"

// Network identifies which local-chain network a stream of events belongs to.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// PriceProviderTier selects the CoinGecko base URL and auth header.
type PriceProviderTier string

const (
	TierDemo PriceProviderTier = "demo"
	TierPro  PriceProviderTier = "pro"
)

// PriceProviderConfig configures the external price provider (C3).
type PriceProviderConfig struct {
	APIKey            string            `toml:"api_key" mapstructure:"api_key"`
	Tier              PriceProviderTier `toml:"tier" mapstructure:"tier"`
	CacheTTLMinutes   int               `toml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	BatchSize         int               `toml:"batch_size" mapstructure:"batch_size"`
	MaxRetries        int               `toml:"max_retries" mapstructure:"max_retries"`
	RequestsPerMinute int               `toml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// LocalChainConfig names the local chain's chain_id per network.
type LocalChainConfig struct {
	MainnetID string `toml:"mainnet_id" mapstructure:"mainnet_id"`
	TestnetID string `toml:"testnet_id" mapstructure:"testnet_id"`
}

// RemoteRPCConfig holds the timeout for the read-only remote-chain query
// client (C11). remotechain.New does not take it and always uses its own
// fixed 30s timeout.
type RemoteRPCConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// MongoConfig configures the document-store connection used by the IBC
// repositories (C5/A4).
type MongoConfig struct {
	URI      string `toml:"uri" mapstructure:"uri"`
	Database string `toml:"database" mapstructure:"database"`
}

// RegistrySyncConfig controls the optional cosmos/chain-registry bootstrapper (A5).
type RegistrySyncConfig struct {
	Enabled   bool   `toml:"enabled" mapstructure:"enabled"`
	CacheDir  string `toml:"cache_dir" mapstructure:"cache_dir"`
}

// ServerConfig configures the ambient HTTP server shell (A2).
type ServerConfig struct {
	Address         string   `toml:"address" mapstructure:"address"`
	AllowedOrigins  []string `toml:"allowed_origins" mapstructure:"allowed_origins"`
	RatePerMinute   int      `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	EnableMetrics   bool     `toml:"enable_metrics" mapstructure:"enable_metrics"`
	DevelopmentMode bool     `toml:"development_mode" mapstructure:"development_mode"`
	OTLPTracesURL   string   `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	OTLPMetricsURL  string   `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableTracing   bool     `toml:"enable_tracing" mapstructure:"enable_tracing"`
}

// Config is the top-level configuration for the indexer service.
type Config struct {
	LogLevel      string              `toml:"log_level" mapstructure:"log_level"`
	LocalChain    LocalChainConfig    `toml:"local_chain" mapstructure:"local_chain"`
	PriceProvider PriceProviderConfig `toml:"price_provider" mapstructure:"price_provider"`
	RemoteRPC     RemoteRPCConfig     `toml:"remote_rpc" mapstructure:"remote_rpc"`
	Mongo         MongoConfig         `toml:"mongo" mapstructure:"mongo"`
	RegistrySync  RegistrySyncConfig  `toml:"registry_sync" mapstructure:"registry_sync"`
	Server        ServerConfig        `toml:"server" mapstructure:"server"`
}

// CacheTTL returns the price cache TTL as a time.Duration.
func (p PriceProviderConfig) CacheTTL() time.Duration {
	if p.CacheTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.CacheTTLMinutes) * time.Minute
}

// RemoteTimeout returns the remote RPC timeout as a time.Duration.
func (r RemoteRPCConfig) RemoteTimeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Default returns the built-in defaults, matching spec.md section 6.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		LocalChain: LocalChainConfig{
			MainnetID: "bbn-1",
			TestnetID: "bbn-test-5",
		},
		PriceProvider: PriceProviderConfig{
			Tier:              TierDemo,
			CacheTTLMinutes:   5,
			BatchSize:         250,
			MaxRetries:        3,
			RequestsPerMinute: 0,
		},
		RemoteRPC: RemoteRPCConfig{
			TimeoutSeconds: 30,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "ibc_indexer",
		},
		RegistrySync: RegistrySyncConfig{
			Enabled:  false,
			CacheDir: "./.chain-registry-cache",
		},
		Server: ServerConfig{
			Address:         "0.0.0.0:8080",
			AllowedOrigins:  []string{"*"},
			RatePerMinute:   0,
			EnableMetrics:   true,
			DevelopmentMode: true,
		},
	}
}
