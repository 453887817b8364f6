// Package registrysync optionally bootstraps internal/chainregistry from
// the upstream cosmos/chain-registry, so chain_id -> display name
// resolution covers more than the built-in seed set.
package registrysync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
)

const registrySourceURL = "github.com/cosmos/chain-registry"

// chainFile mirrors the handful of chain.json fields this service cares
// about; the upstream schema carries many more.
type chainFile struct {
	ChainName  string `json:"chain_name"`
	ChainID    string `json:"chain_id"`
	PrettyName string `json:"pretty_name"`
}

// Download fetches the chain-registry repository into dst using go-getter's
// detector/getter pipeline, the same approach used to fetch the IBC
// connection metadata subtree.
func Download(ctx context.Context, dst string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := getter.Client{
		Ctx:  ctx,
		Src:  registrySourceURL,
		Dst:  dst,
		Mode: getter.ClientModeDir,
		Detectors: []getter.Detector{
			&getter.GitHubDetector{},
		},
		Getters: map[string]getter.Getter{
			"git": &getter.GitGetter{},
		},
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download chain registry: %w", err)
	}
	return nil
}

// Apply walks the per-chain directories under root (each holding a
// chain.json) and registers every chain_id/pretty_name pair it finds.
// Malformed or missing chain.json files are skipped with a warning rather
// than aborting the whole sync.
func Apply(root string, reg *chainregistry.Registry, log zerolog.Logger) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to read registry directory: %w", err)
	}

	registered := 0
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		path := filepath.Join(root, entry.Name(), "chain.json")
		body, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("chain", entry.Name()).Msg("failed to read chain.json")
			}
			continue
		}

		var cf chainFile
		if err := json.Unmarshal(body, &cf); err != nil {
			log.Warn().Err(err).Str("chain", entry.Name()).Msg("failed to parse chain.json")
			continue
		}
		if cf.ChainID == "" {
			continue
		}

		name := cf.PrettyName
		if name == "" {
			name = cf.ChainName
		}
		if name == "" {
			continue
		}

		reg.Register(cf.ChainID, name)
		registered++
	}

	return registered, nil
}

// Bootstrap downloads the chain registry into a temp directory and applies
// it to reg in one step. Callers typically run this once at startup and
// log the outcome without treating failure as fatal: the built-in seed set
// still covers the chains this service indexes by default.
func Bootstrap(ctx context.Context, reg *chainregistry.Registry, log zerolog.Logger) error {
	dir, err := os.MkdirTemp("", "chain-registry-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := Download(ctx, dir, 0); err != nil {
		return err
	}

	count, err := Apply(dir, reg, log)
	if err != nil {
		return err
	}
	log.Info().Int("chains", count).Msg("chain registry synced")
	return nil
}
