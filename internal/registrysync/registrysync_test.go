package registrysync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
)

func writeChainFile(t *testing.T, root, dir, body string) {
	t.Helper()
	chainDir := filepath.Join(root, dir)
	if err := os.MkdirAll(chainDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(chainDir, "chain.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApplyRegistersChainsByPrettyName(t *testing.T) {
	root := t.TempDir()
	writeChainFile(t, root, "osmosis", `{"chain_name":"osmosis","chain_id":"osmosis-1","pretty_name":"Osmosis"}`)
	writeChainFile(t, root, "stride", `{"chain_name":"stride","chain_id":"stride-1"}`)

	reg := chainregistry.New()
	reg.Register("osmosis-1", "stale-name")

	count, err := Apply(root, reg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 registered chains, got %d", count)
	}
	if got := reg.Resolve("osmosis-1"); got != "Osmosis" {
		t.Errorf("expected pretty_name override, got %s", got)
	}
	if got := reg.Resolve("stride-1"); got != "stride" {
		t.Errorf("expected chain_name fallback, got %s", got)
	}
}

func TestApplySkipsUnderscoreAndDotDirs(t *testing.T) {
	root := t.TempDir()
	writeChainFile(t, root, "_IBC", `{"chain_id":"should-not-register"}`)
	writeChainFile(t, root, ".git", `{"chain_id":"also-not"}`)

	reg := chainregistry.New()
	count, err := Apply(root, reg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no chains registered, got %d", count)
	}
}

func TestApplySkipsMalformedJSON(t *testing.T) {
	root := t.TempDir()
	writeChainFile(t, root, "broken", `not json`)

	reg := chainregistry.New()
	count, err := Apply(root, reg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected malformed chain.json to be skipped, got %d", count)
	}
}
