// Package chainregistry implements the static chain_id -> display name
// mapping (C1). It is read-only from the core's perspective; the optional
// registrysync bootstrapper (A5) is the only writer.
package chainregistry

import "sync"

// Registry resolves chain_id to a human-readable chain name.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

// seed holds the well-known Cosmos-family chains this service ships with.
var seed = map[string]string{
	"bbn-1":          "Babylon Genesis",
	"bbn-test-5":     "Babylon Testnet",
	"cosmoshub-4":    "Cosmos Hub",
	"osmosis-1":      "Osmosis",
	"juno-1":         "Juno",
	"neutron-1":      "Neutron",
	"noble-1":        "Noble",
	"stride-1":       "Stride",
	"axelar-dojo-1":  "Axelar",
	"celestia":       "Celestia",
	"stargaze-1":     "Stargaze",
	"akashnet-2":     "Akash",
	"kava_2222-10":   "Kava",
	"atomone-1":      "AtomOne",
	"injective-1":    "Injective",
	"dydx-mainnet-1": "dYdX",
}

// New returns a Registry preloaded with the well-known chain set.
func New() *Registry {
	r := &Registry{names: make(map[string]string, len(seed))}
	for id, name := range seed {
		r.names[id] = name
	}
	return r
}

// Resolve returns the display name for chainID, or chainID itself when unknown.
func (r *Registry) Resolve(chainID string) string {
	if chainID == "" {
		return chainID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names[chainID]; ok {
		return name
	}
	return chainID
}

// Register adds or replaces a chain_id -> name mapping. Used by the
// registrysync bootstrapper (A5) and by tests.
func (r *Registry) Register(chainID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[chainID] = name
}

// Known reports whether chainID has a registered display name.
func (r *Registry) Known(chainID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[chainID]
	return ok
}
