package token

import (
	"fmt"
	"strings"
	"sync"
)

// Metadata describes a token's static properties, independent of price (C2).
type Metadata struct {
	OriginalDenom string
	BaseDenom     string
	Symbol        string
	Decimals      int
	CoingeckoID   string
	Description   string
	IsStable      bool
}

// MetadataRegistry maps a base denom to its Metadata, with O(1) lookups.
type MetadataRegistry struct {
	mu    sync.RWMutex
	byBase map[string]Metadata
}

// seededTokens is the set of known Cosmos-family tokens this service ships
// with, keyed by base denom. Values intentionally mirror real mainnet
// denom metadata for the chains this indexer targets.
var seededTokens = map[string]Metadata{
	"ubbn": {
		Symbol: "BABY", Decimals: 6, CoingeckoID: "babylon",
		Description: "Babylon Genesis staking token",
	},
	"uatom": {
		Symbol: "ATOM", Decimals: 6, CoingeckoID: "cosmos",
		Description: "Cosmos Hub native token",
	},
	"uosmo": {
		Symbol: "OSMO", Decimals: 6, CoingeckoID: "osmosis",
		Description: "Osmosis native token",
	},
	"ujuno": {
		Symbol: "JUNO", Decimals: 6, CoingeckoID: "juno-network",
		Description: "Juno native token",
	},
	"untrn": {
		Symbol: "NTRN", Decimals: 6, CoingeckoID: "neutron-3",
		Description: "Neutron native token",
	},
	"uusdc": {
		Symbol: "USDC", Decimals: 6, CoingeckoID: "usd-coin",
		Description: "USD Coin", IsStable: true,
	},
	"uusdt": {
		Symbol: "USDT", Decimals: 6, CoingeckoID: "tether",
		Description: "Tether USD", IsStable: true,
	},
	"wbtc": {
		Symbol: "WBTC", Decimals: 8, CoingeckoID: "wrapped-bitcoin",
		Description: "Wrapped Bitcoin",
	},
	"wbtc-satoshi": {
		Symbol: "WBTC", Decimals: 8, CoingeckoID: "wrapped-bitcoin",
		Description: "Wrapped Bitcoin (satoshi unit)",
	},
	"weth-wei": {
		Symbol: "WETH", Decimals: 18, CoingeckoID: "weth",
		Description: "Wrapped Ether",
	},
	"uakt": {
		Symbol: "AKT", Decimals: 6, CoingeckoID: "akash-network",
		Description: "Akash native token",
	},
	"uscrt": {
		Symbol: "SCRT", Decimals: 6, CoingeckoID: "secret",
		Description: "Secret Network native token",
	},
	"ustrd": {
		Symbol: "STRD", Decimals: 6, CoingeckoID: "stride",
		Description: "Stride native token",
	},
	"utia": {
		Symbol: "TIA", Decimals: 6, CoingeckoID: "celestia",
		Description: "Celestia native token",
	},
}

// NewMetadataRegistry returns a registry preloaded with seededTokens.
func NewMetadataRegistry() *MetadataRegistry {
	r := &MetadataRegistry{byBase: make(map[string]Metadata, len(seededTokens))}
	for base, m := range seededTokens {
		m.BaseDenom = base
		m.OriginalDenom = base
		r.byBase[base] = m
	}
	return r
}

// RegisterMapping adds or replaces a metadata entry for a base denom.
func (r *MetadataRegistry) RegisterMapping(baseDenom string, m Metadata) {
	m.BaseDenom = baseDenom
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byBase[baseDenom] = m
}

// Lookup resolves metadata for originalDenom (which may carry an IBC
// trace prefix). Unknown denoms synthesize a default per spec.md section
// 4.2: a "u"-prefixed base of length > 1 defaults to 6 decimals with the
// upper-cased remainder as symbol; any denom containing "btc" defaults to
// 8 decimals; everything else falls back to a generic unknown-token entry.
func (r *MetadataRegistry) Lookup(originalDenom string) Metadata {
	base := ParseBaseDenom(originalDenom)

	r.mu.RLock()
	m, ok := r.byBase[base]
	r.mu.RUnlock()
	if ok {
		m.OriginalDenom = originalDenom
		return m
	}

	return defaultMetadata(originalDenom, base)
}

func defaultMetadata(originalDenom, base string) Metadata {
	lower := strings.ToLower(base)

	switch {
	case strings.HasPrefix(base, "u") && len(base) > 1:
		symbol := strings.ToUpper(base[1:])
		return Metadata{
			OriginalDenom: originalDenom,
			BaseDenom:     base,
			Symbol:        symbol,
			Decimals:      6,
			Description:   fmt.Sprintf("Unknown token: %s", symbol),
		}
	case strings.Contains(lower, "btc"):
		symbol := strings.ToUpper(base)
		return Metadata{
			OriginalDenom: originalDenom,
			BaseDenom:     base,
			Symbol:        symbol,
			Decimals:      8,
			Description:   fmt.Sprintf("Unknown token: %s", symbol),
		}
	default:
		symbol := strings.ToUpper(base)
		return Metadata{
			OriginalDenom: originalDenom,
			BaseDenom:     base,
			Symbol:        symbol,
			Decimals:      6,
			Description:   fmt.Sprintf("Unknown token: %s", symbol),
		}
	}
}
