package ibc

import (
	"context"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
)

// ChainInfo is a resolved counterparty chain identity.
type ChainInfo struct {
	ChainID   string
	ChainName string
}

// ChannelLookup is the narrow slice of C5 the resolver needs: looking up
// a channel, then its connection, then its client.
type ChannelLookup interface {
	GetChannel(ctx context.Context, channelID, portID string, network Network) (*Channel, error)
	GetConnection(ctx context.Context, connectionID string, network Network) (*Connection, error)
	GetClient(ctx context.Context, clientID string, network Network) (*Client, error)
}

// ChainResolver implements C6: walking Channel -> Connection -> Client to
// name the counterparty chain, and classifying transfer direction.
type ChainResolver struct {
	lookup   ChannelLookup
	registry *chainregistry.Registry
	log      zerolog.Logger
}

// NewChainResolver builds a resolver over the given repository lookup and
// chain-name registry.
func NewChainResolver(lookup ChannelLookup, registry *chainregistry.Registry) *ChainResolver {
	return &ChainResolver{lookup: lookup, registry: registry, log: logging.New("chain-resolver")}
}

// LocalChainID returns the local chain id for a network, per section 4.6.
func LocalChainID(network Network) string {
	if network == Mainnet {
		return "bbn-1"
	}
	return "bbn-test-5"
}

// ResolveChannel walks channel -> connection -> client -> chain_id and
// names the result via the chain registry. A missing link yields a nil
// result and a logged warning, never an error.
func (r *ChainResolver) ResolveChannel(ctx context.Context, channelID, portID string, network Network) *ChainInfo {
	channel, err := r.lookup.GetChannel(ctx, channelID, portID, network)
	if err != nil || channel == nil {
		r.log.Warn().Str("channel_id", channelID).Str("port_id", portID).Msg("chain resolution: channel not found")
		return nil
	}

	connection, err := r.lookup.GetConnection(ctx, channel.ConnectionID, network)
	if err != nil || connection == nil {
		r.log.Warn().Str("connection_id", channel.ConnectionID).Msg("chain resolution: connection not found")
		return nil
	}

	client, err := r.lookup.GetClient(ctx, connection.ClientID, network)
	if err != nil || client == nil {
		r.log.Warn().Str("client_id", connection.ClientID).Msg("chain resolution: client not found")
		return nil
	}

	return &ChainInfo{ChainID: client.ChainID, ChainName: r.registry.Resolve(client.ChainID)}
}

var localChannelPattern = regexp.MustCompile(`^channel-(\d+)$`)

// looksLocal applies the local-looking channel-id heuristic from
// section 4.6: "channel-<n>" with n < 100.
func looksLocal(channelID string) bool {
	m := localChannelPattern.FindStringSubmatch(channelID)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return n < 100
}

// direction is the classified flow of a transfer event.
type direction int

const (
	directionOutbound direction = iota
	directionInbound
)

// classifyDirection implements section 4.6's direction classification:
// send_packet is outbound, recv_packet is inbound; otherwise fall back to
// the local-looking-channel heuristic, defaulting to outbound on a tie.
func classifyDirection(eventType, srcChannel, dstChannel string) direction {
	switch eventType {
	case "send_packet":
		return directionOutbound
	case "recv_packet":
		return directionInbound
	}

	srcLocal, dstLocal := looksLocal(srcChannel), looksLocal(dstChannel)
	switch {
	case srcLocal && !dstLocal:
		return directionOutbound
	case dstLocal && !srcLocal:
		return directionInbound
	default:
		return directionOutbound
	}
}

// TransferChainInfo holds both sides of a resolved transfer's chain identity.
type TransferChainInfo struct {
	SourceChainID        string
	SourceChainName      string
	DestinationChainID   string
	DestinationChainName string
}

// GetTransferChainInfo implements section 4.6's getTransferChainInfo:
// classifies direction, then fills the local side from network and the
// remote side by walking the local channel to its counterparty client.
// Unresolved sides are left blank; conservative fallbacks are the event
// processor's responsibility, not the resolver's.
func (r *ChainResolver) GetTransferChainInfo(ctx context.Context, eventType, srcChannel, srcPort, dstChannel, dstPort string, network Network) TransferChainInfo {
	localID := LocalChainID(network)
	localName := r.registry.Resolve(localID)

	var info TransferChainInfo
	switch classifyDirection(eventType, srcChannel, dstChannel) {
	case directionOutbound:
		info.SourceChainID = localID
		info.SourceChainName = localName
		if resolved := r.ResolveChannel(ctx, srcChannel, srcPort, network); resolved != nil {
			info.DestinationChainID = resolved.ChainID
			info.DestinationChainName = resolved.ChainName
		}
	case directionInbound:
		info.DestinationChainID = localID
		info.DestinationChainName = localName
		if resolved := r.ResolveChannel(ctx, dstChannel, dstPort, network); resolved != nil {
			info.SourceChainID = resolved.ChainID
			info.SourceChainName = resolved.ChainName
		}
	}
	return info
}

// ApplyFallbacks fills unresolved chain sides with the conservative
// fallback from section 4.6: "external-chain" for the unresolved remote
// side, or the local chain by network when the local side itself is blank.
func ApplyFallbacks(info TransferChainInfo, network Network, registry *chainregistry.Registry) TransferChainInfo {
	localID := LocalChainID(network)
	if info.SourceChainID == "" {
		if info.DestinationChainID == localID {
			info.SourceChainID = "external-chain"
			info.SourceChainName = "external-chain"
		} else {
			info.SourceChainID = localID
			info.SourceChainName = registry.Resolve(localID)
		}
	}
	if info.DestinationChainID == "" {
		if info.SourceChainID == localID {
			info.DestinationChainID = "external-chain"
			info.DestinationChainName = "external-chain"
		} else {
			info.DestinationChainID = localID
			info.DestinationChainName = registry.Resolve(localID)
		}
	}
	return info
}
