package ibc

import "context"

// ClientRepository persists Client records keyed by (client_id, network).
type ClientRepository interface {
	UpsertClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, clientID string, network Network) (*Client, error)
}

// ConnectionRepository persists Connection records keyed by
// (connection_id, network).
type ConnectionRepository interface {
	UpsertConnection(ctx context.Context, c Connection) error
	GetConnection(ctx context.Context, connectionID string, network Network) (*Connection, error)
}

// ChannelRepository persists Channel records keyed by
// (channel_id, port_id, network).
type ChannelRepository interface {
	UpsertChannel(ctx context.Context, c Channel) error
	GetChannel(ctx context.Context, channelID, portID string, network Network) (*Channel, error)
	ListChannelsByNetwork(ctx context.Context, network Network) ([]Channel, error)
}

// PacketRepository persists Packet records keyed by PacketKey.
type PacketRepository interface {
	UpsertPacket(ctx context.Context, p Packet) error
	GetPacket(ctx context.Context, key PacketKey) (*Packet, error)
	GetPacketBySource(ctx context.Context, sourcePort, sourceChannel string, sequence uint64, network Network) (*Packet, error)
}

// TransferRepository persists Transfer records keyed by packet_id, with
// a secondary lookup by the most recent tx_hash within a network.
type TransferRepository interface {
	UpsertTransfer(ctx context.Context, t Transfer) error
	GetTransferByPacketID(ctx context.Context, packetID string, network Network) (*Transfer, error)
	GetTransferByTxHash(ctx context.Context, txHash string, network Network) (*Transfer, error)
}

// RelayerRepository persists Relayer records keyed by (address, network).
type RelayerRepository interface {
	UpsertRelayer(ctx context.Context, r Relayer) error
	GetRelayer(ctx context.Context, address string, network Network) (*Relayer, error)
}

// MetricRepository persists MetricSample rollups.
type MetricRepository interface {
	UpsertMetricSample(ctx context.Context, m MetricSample) error
}

// Store aggregates every narrow repository the event processor needs.
// Concrete implementations (internal/ibc/mongostore) wire a single
// document-store client to all of them.
type Store interface {
	ClientRepository
	ConnectionRepository
	ChannelRepository
	PacketRepository
	TransferRepository
	RelayerRepository
	MetricRepository
}
