// Package remotechain is C11: a read-only HTTP client against a remote
// chain's standard Cosmos REST surface, used for best-effort packet
// lookups when an indexed record is incomplete.
package remotechain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
)

// Client queries a remote chain's IBC REST endpoints. 404 is treated as
// a semantic "absent", never an error; every status other than 200 is
// surfaced as an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New builds a Client against baseURL with the 30s timeout from section 5.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.New("remote-chain"),
	}
}

func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("remote chain request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("remote chain returned status %d for %s", resp.StatusCode, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return true, nil
}

// GetCurrentHeight returns the remote chain's latest block height.
func (c *Client) GetCurrentHeight(ctx context.Context) (uint64, error) {
	var resp struct {
		Block struct {
			Header struct {
				Height string `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	found, err := c.get(ctx, "/cosmos/base/tendermint/v1beta1/blocks/latest", &resp)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("remote chain: latest block not found")
	}
	var height uint64
	_, err = fmt.Sscanf(resp.Block.Header.Height, "%d", &height)
	return height, err
}

// ChannelInfo mirrors the REST channel query response shape.
type ChannelInfo struct {
	State          string `json:"state"`
	Ordering       string `json:"ordering"`
	Version        string `json:"version"`
	Counterparty   struct {
		PortID    string `json:"port_id"`
		ChannelID string `json:"channel_id"`
	} `json:"counterparty"`
}

// QueryChannel fetches a remote channel by port/channel id. Returns
// (nil, nil) if the channel does not exist on the remote chain.
func (c *Client) QueryChannel(ctx context.Context, portID, channelID string) (*ChannelInfo, error) {
	var resp struct {
		Channel ChannelInfo `json:"channel"`
	}
	path := fmt.Sprintf("/ibc/core/channel/v1/channels/%s/ports/%s", channelID, portID)
	found, err := c.get(ctx, path, &resp)
	if err != nil || !found {
		return nil, err
	}
	return &resp.Channel, nil
}

// QueryPacketCommitment reports whether a commitment exists for the
// given sequence; a 404 means no commitment (false, nil).
func (c *Client) QueryPacketCommitment(ctx context.Context, portID, channelID string, sequence uint64) (bool, error) {
	path := fmt.Sprintf("/ibc/core/channel/v1/channels/%s/ports/%s/packet_commitments/%d", channelID, portID, sequence)
	found, err := c.get(ctx, path, nil)
	return found, err
}

// QueryPacketAcknowledgement returns the base64-decoded acknowledgement
// bytes, or nil if none exists (404).
func (c *Client) QueryPacketAcknowledgement(ctx context.Context, portID, channelID string, sequence uint64) ([]byte, error) {
	var resp struct {
		Acknowledgement string `json:"acknowledgement"`
	}
	path := fmt.Sprintf("/ibc/core/channel/v1/channels/%s/ports/%s/packet_acks/%d", channelID, portID, sequence)
	found, err := c.get(ctx, path, &resp)
	if err != nil || !found || resp.Acknowledgement == "" {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.Acknowledgement)
}

// QueryPacketReceipt reports whether the destination has a receipt for
// the sequence (i.e. whether the packet was received).
func (c *Client) QueryPacketReceipt(ctx context.Context, portID, channelID string, sequence uint64) (bool, error) {
	path := fmt.Sprintf("/ibc/core/channel/v1/channels/%s/ports/%s/packet_receipts/%d", channelID, portID, sequence)
	found, err := c.get(ctx, path, nil)
	return found, err
}

// QueryUnreceivedPackets returns which of the given sequences have not
// yet been received on the destination.
func (c *Client) QueryUnreceivedPackets(ctx context.Context, portID, channelID string, sequences []uint64) ([]uint64, error) {
	var resp struct {
		Sequences []string `json:"sequences"`
	}
	seqList := ""
	for i, s := range sequences {
		if i > 0 {
			seqList += ","
		}
		seqList += fmt.Sprint(s)
	}
	path := fmt.Sprintf("/ibc/core/channel/v1/channels/%s/ports/%s/packet_commitments/%s/unreceived_packets", channelID, portID, seqList)
	found, err := c.get(ctx, path, &resp)
	if err != nil || !found {
		return nil, err
	}
	out := make([]uint64, 0, len(resp.Sequences))
	for _, s := range resp.Sequences {
		var n uint64
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// QueryNextSequenceReceive returns the next sequence number the
// destination expects to receive on an ordered channel.
func (c *Client) QueryNextSequenceReceive(ctx context.Context, portID, channelID string) (uint64, error) {
	var resp struct {
		NextSequenceReceive string `json:"next_sequence_receive"`
	}
	path := fmt.Sprintf("/ibc/core/channel/v1/channels/%s/ports/%s/next_sequence", channelID, portID)
	found, err := c.get(ctx, path, &resp)
	if err != nil || !found {
		return 0, err
	}
	var n uint64
	_, err = fmt.Sscanf(resp.NextSequenceReceive, "%d", &n)
	return n, err
}

// UnreceivedPacketProof is a best-effort container; this client performs
// read-only metadata lookups and never produces Merkle proofs (section 1
// non-goals), so ProofBytes is always empty and Height is populated only
// from the latest block query.
type UnreceivedPacketProof struct {
	Height     uint64
	ProofBytes []byte
	Ordered    bool
}

// GetUnreceivedPacketProof returns the current height for proof
// construction context; actual proof bytes are out of scope (section 1).
func (c *Client) GetUnreceivedPacketProof(ctx context.Context, isOrdered bool) (UnreceivedPacketProof, error) {
	height, err := c.GetCurrentHeight(ctx)
	if err != nil {
		return UnreceivedPacketProof{}, err
	}
	return UnreceivedPacketProof{Height: height, Ordered: isOrdered}, nil
}

// ReconstructedPacket is a minimal, best-effort synthesized packet used
// when the real packet data cannot be recovered from recent blocks.
type ReconstructedPacket struct {
	Sequence           uint64
	SourcePort         string
	SourceChannel      string
	DestinationPort    string
	DestinationChannel string
	Synthesized        bool
}

// ReconstructPacket attempts to recover packet routing data; since this
// client does not scan raw blocks, it always returns the minimal
// synthesized form with Synthesized=true.
func (c *Client) ReconstructPacket(sourcePort, sourceChannel, destinationPort, destinationChannel string, sequence uint64) ReconstructedPacket {
	return ReconstructedPacket{
		Sequence:           sequence,
		SourcePort:         sourcePort,
		SourceChannel:      sourceChannel,
		DestinationPort:    destinationPort,
		DestinationChannel: destinationChannel,
		Synthesized:        true,
	}
}
