package token_test

import (
	"testing"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/token"
)

func TestParseBaseDenomNoSlash(t *testing.T) {
	if got := token.ParseBaseDenom("ubbn"); got != "ubbn" {
		t.Errorf("expected ubbn, got %s", got)
	}
}

func TestParseBaseDenomWithTrace(t *testing.T) {
	got := token.ParseBaseDenom("transfer/channel-0/uatom")
	if got != "uatom" {
		t.Errorf("expected uatom, got %s", got)
	}
}

func TestParseBaseDenomIdempotent(t *testing.T) {
	inputs := []string{"ubbn", "transfer/channel-0/uatom", "ibc/ABCDEF1234", "a/b/c/d"}
	for _, in := range inputs {
		once := token.ParseBaseDenom(in)
		twice := token.ParseBaseDenom(once)
		if once != twice {
			t.Errorf("ParseBaseDenom not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
