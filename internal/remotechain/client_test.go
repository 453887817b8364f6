package remotechain_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/remotechain"
)

func TestQueryPacketCommitmentFoundAndNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ibc/core/channel/v1/channels/channel-0/ports/transfer/packet_commitments/7" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := remotechain.New(srv.URL)
	found, err := c.QueryPacketCommitment(context.Background(), "transfer", "channel-0", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected commitment to be found")
	}

	found, err = c.QueryPacketCommitment(context.Background(), "transfer", "channel-0", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected 404 to mean absent, not an error")
	}
}

func TestQueryPacketAcknowledgementAbsentReturnsNilNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := remotechain.New(srv.URL)
	ack, err := c.QueryPacketAcknowledgement(context.Background(), "transfer", "channel-0", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack != nil {
		t.Error("expected nil acknowledgement for 404")
	}
}

func TestQueryChannelSurfacesNonNotFoundErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := remotechain.New(srv.URL)
	_, err := c.QueryChannel(context.Background(), "transfer", "channel-0")
	if err == nil {
		t.Error("expected 500 to surface as an error")
	}
}

func TestReconstructPacketAlwaysSynthesized(t *testing.T) {
	c := remotechain.New("http://example.invalid")
	p := c.ReconstructPacket("transfer", "channel-0", "transfer", "channel-12", 7)
	if !p.Synthesized || p.Sequence != 7 {
		t.Errorf("unexpected reconstructed packet: %+v", p)
	}
}
