package chainregistry_test

import (
	"testing"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
)

func TestResolveKnown(t *testing.T) {
	r := chainregistry.New()
	if got := r.Resolve("osmosis-1"); got != "Osmosis" {
		t.Errorf("expected Osmosis, got %s", got)
	}
}

func TestResolveUnknownReturnsInput(t *testing.T) {
	r := chainregistry.New()
	if got := r.Resolve("made-up-chain-1"); got != "made-up-chain-1" {
		t.Errorf("expected passthrough, got %s", got)
	}
}

func TestResolveEmpty(t *testing.T) {
	r := chainregistry.New()
	if got := r.Resolve(""); got != "" {
		t.Errorf("expected empty, got %s", got)
	}
}

func TestRegisterOverridesLookup(t *testing.T) {
	r := chainregistry.New()
	r.Register("test-chain-1", "Test Chain")
	if got := r.Resolve("test-chain-1"); got != "Test Chain" {
		t.Errorf("expected Test Chain, got %s", got)
	}
	if !r.Known("test-chain-1") {
		t.Error("expected Known to report true after Register")
	}
}
