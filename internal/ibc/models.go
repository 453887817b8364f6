// Package ibc implements the packet-lifecycle core: packet identity,
// chain resolution, transfer state transitions, and the event processor
// that ties them together over a stream of on-chain events.
package ibc

import "time"

// Network selects which local chain id/name the core resolves against.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ConnectionState mirrors the IBC connection handshake states.
type ConnectionState string

const (
	ConnectionInit     ConnectionState = "INIT"
	ConnectionTryOpen  ConnectionState = "TRYOPEN"
	ConnectionOpen     ConnectionState = "OPEN"
)

// ChannelState mirrors the IBC channel handshake/lifecycle states.
type ChannelState string

const (
	ChannelInit     ChannelState = "INIT"
	ChannelTryOpen  ChannelState = "TRYOPEN"
	ChannelOpen     ChannelState = "OPEN"
	ChannelClosed   ChannelState = "CLOSED"
)

// ChannelOrdering is the IBC channel ordering guarantee.
type ChannelOrdering string

const (
	Ordered   ChannelOrdering = "ORDERED"
	Unordered ChannelOrdering = "UNORDERED"
)

// PacketStatus is the lifecycle status of a Packet (source-side view).
type PacketStatus string

const (
	PacketSent         PacketStatus = "SENT"
	PacketReceived     PacketStatus = "RECEIVED"
	PacketAcknowledged PacketStatus = "ACKNOWLEDGED"
	PacketTimeout      PacketStatus = "TIMEOUT"
)

// TransferStatus is the lifecycle status of a Transfer.
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferReceived  TransferStatus = "RECEIVED"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferFailed    TransferStatus = "FAILED"
	TransferTimeout   TransferStatus = "TIMEOUT"
)

// Client tracks a light client of a counterparty chain.
type Client struct {
	ClientID         string    `bson:"client_id" json:"client_id"`
	Network          Network   `bson:"network" json:"network"`
	ClientType       string    `bson:"client_type" json:"client_type"`
	ChainID          string    `bson:"chain_id" json:"chain_id"`
	LatestHeight     uint64    `bson:"latest_height" json:"latest_height"`
	Frozen           bool      `bson:"frozen" json:"frozen"`
	ConnectionCount  int       `bson:"connection_count" json:"connection_count"`
	LastUpdate       time.Time `bson:"last_update" json:"last_update"`
}

// Connection references exactly one Client.
type Connection struct {
	ConnectionID           string          `bson:"connection_id" json:"connection_id"`
	Network                Network         `bson:"network" json:"network"`
	ClientID               string          `bson:"client_id" json:"client_id"`
	CounterpartyConnection string          `bson:"counterparty_connection_id" json:"counterparty_connection_id"`
	CounterpartyClientID   string          `bson:"counterparty_client_id" json:"counterparty_client_id"`
	CounterpartyChainID    string          `bson:"counterparty_chain_id" json:"counterparty_chain_id"`
	State                  ConnectionState `bson:"state" json:"state"`
	DelayPeriod            uint64          `bson:"delay_period" json:"delay_period"`
	ChannelCount           int             `bson:"channel_count" json:"channel_count"`
	LastActivity           time.Time       `bson:"last_activity" json:"last_activity"`
}

// Channel references exactly one Connection and carries analytics rollups.
type Channel struct {
	ChannelID              string          `bson:"channel_id" json:"channel_id"`
	PortID                 string          `bson:"port_id" json:"port_id"`
	Network                Network         `bson:"network" json:"network"`
	ConnectionID           string          `bson:"connection_id" json:"connection_id"`
	CounterpartyChannelID  string          `bson:"counterparty_channel_id" json:"counterparty_channel_id"`
	CounterpartyPortID     string          `bson:"counterparty_port_id" json:"counterparty_port_id"`
	State                  ChannelState    `bson:"state" json:"state"`
	Ordering               ChannelOrdering `bson:"ordering" json:"ordering"`
	Version                string          `bson:"version" json:"version"`
	PacketCount            int64           `bson:"packet_count" json:"packet_count"`
	SuccessCount           int64           `bson:"success_count" json:"success_count"`
	FailureCount           int64           `bson:"failure_count" json:"failure_count"`
	TimeoutCount           int64           `bson:"timeout_count" json:"timeout_count"`
	AvgCompletionTimeMs    float64         `bson:"avg_completion_time_ms" json:"avg_completion_time_ms"`
	TotalTokensTransferred map[string]string `bson:"total_tokens_transferred" json:"total_tokens_transferred"`
	ActiveRelayers         []string        `bson:"active_relayers" json:"active_relayers"`
}

// TimeoutHeight is the IBC revision-scoped timeout height.
type TimeoutHeight struct {
	RevisionNumber uint64 `bson:"revision_number" json:"revision_number"`
	RevisionHeight uint64 `bson:"revision_height" json:"revision_height"`
}

// PacketKey is the natural uniqueness tuple for a Packet (section 3).
type PacketKey struct {
	Sequence            uint64
	SourcePort          string
	SourceChannel       string
	DestinationPort     string
	DestinationChannel  string
	Network             Network
}

// Packet is keyed by PacketKey across all observations; reingest upserts.
type Packet struct {
	Sequence           uint64         `bson:"sequence" json:"sequence"`
	SourcePort         string         `bson:"source_port" json:"source_port"`
	SourceChannel      string         `bson:"source_channel" json:"source_channel"`
	DestinationPort    string         `bson:"destination_port" json:"destination_port"`
	DestinationChannel string         `bson:"destination_channel" json:"destination_channel"`
	Network            Network        `bson:"network" json:"network"`

	DataHex           string        `bson:"data_hex" json:"data_hex"`
	TimeoutHeight     TimeoutHeight `bson:"timeout_height" json:"timeout_height"`
	TimeoutTimestamp  uint64        `bson:"timeout_timestamp" json:"timeout_timestamp"`
	Status            PacketStatus  `bson:"status" json:"status"`

	SendTxHash    string     `bson:"send_tx_hash,omitempty" json:"send_tx_hash,omitempty"`
	SendTimestamp *time.Time `bson:"send_timestamp,omitempty" json:"send_timestamp,omitempty"`

	ReceiveTxHash    string     `bson:"receive_tx_hash,omitempty" json:"receive_tx_hash,omitempty"`
	ReceiveTimestamp *time.Time `bson:"receive_timestamp,omitempty" json:"receive_timestamp,omitempty"`

	AckTxHash    string     `bson:"ack_tx_hash,omitempty" json:"ack_tx_hash,omitempty"`
	AckTimestamp *time.Time `bson:"ack_timestamp,omitempty" json:"ack_timestamp,omitempty"`

	TimeoutTxHash    string     `bson:"timeout_tx_hash,omitempty" json:"timeout_tx_hash,omitempty"`
	TimeoutTimestampObserved *time.Time `bson:"timeout_timestamp_observed,omitempty" json:"timeout_timestamp_observed,omitempty"`

	RelayerAddress    string  `bson:"relayer_address,omitempty" json:"relayer_address,omitempty"`
	CompletionTimeMs  *int64  `bson:"completion_time_ms,omitempty" json:"completion_time_ms,omitempty"`

	SourceChainID      string `bson:"source_chain_id,omitempty" json:"source_chain_id,omitempty"`
	DestinationChainID string `bson:"destination_chain_id,omitempty" json:"destination_chain_id,omitempty"`
}

// Key returns the packet's natural uniqueness tuple.
func (p Packet) Key() PacketKey {
	return PacketKey{
		Sequence:           p.Sequence,
		SourcePort:         p.SourcePort,
		SourceChannel:      p.SourceChannel,
		DestinationPort:    p.DestinationPort,
		DestinationChannel: p.DestinationChannel,
		Network:            p.Network,
	}
}

// Transfer is 1:1 with a Packet, referenced by its synthesized packet id.
type Transfer struct {
	PacketID string  `bson:"packet_id" json:"packet_id"`
	Network  Network `bson:"network" json:"network"`

	Sender   string `bson:"sender" json:"sender"`
	Receiver string `bson:"receiver" json:"receiver"`
	Amount   string `bson:"amount" json:"amount"`
	Denom    string `bson:"denom" json:"denom"`
	Memo     string `bson:"memo,omitempty" json:"memo,omitempty"`

	Status  TransferStatus `bson:"status" json:"status"`
	Success bool           `bson:"success" json:"success"`

	TokenSymbol        string `bson:"token_symbol,omitempty" json:"token_symbol,omitempty"`
	TokenDisplayAmount string `bson:"token_display_amount,omitempty" json:"token_display_amount,omitempty"`

	SourceChainID      string `bson:"source_chain_id,omitempty" json:"source_chain_id,omitempty"`
	SourceChainName    string `bson:"source_chain_name,omitempty" json:"source_chain_name,omitempty"`
	DestinationChainID string `bson:"destination_chain_id,omitempty" json:"destination_chain_id,omitempty"`
	DestinationChainName string `bson:"destination_chain_name,omitempty" json:"destination_chain_name,omitempty"`

	SourceChannelID      string `bson:"source_channel_id" json:"source_channel_id"`
	DestinationChannelID string `bson:"destination_channel_id" json:"destination_channel_id"`

	SendTime time.Time `bson:"send_time" json:"send_time"`

	TxHash string `bson:"tx_hash,omitempty" json:"tx_hash,omitempty"`

	CompletionTxHash      string     `bson:"completion_tx_hash,omitempty" json:"completion_tx_hash,omitempty"`
	CompletionHeight      uint64     `bson:"completion_height,omitempty" json:"completion_height,omitempty"`
	CompletionTimestamp   *time.Time `bson:"completion_timestamp,omitempty" json:"completion_timestamp,omitempty"`

	TimeoutTxHash      string     `bson:"timeout_tx_hash,omitempty" json:"timeout_tx_hash,omitempty"`
	TimeoutHeight      uint64     `bson:"timeout_height,omitempty" json:"timeout_height,omitempty"`
	TimeoutTimestamp   *time.Time `bson:"timeout_timestamp,omitempty" json:"timeout_timestamp,omitempty"`

	Error string `bson:"error,omitempty" json:"error,omitempty"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChannelVolumeRecord is a relayer's per-channel denom volume breakdown.
type ChannelVolumeRecord struct {
	ChannelID     string            `bson:"channel_id" json:"channel_id"`
	VolumesByDenom map[string]string `bson:"volumes_by_denom" json:"volumes_by_denom"`
}

// Relayer tracks an off-chain relaying agent's activity and performance.
type Relayer struct {
	Address string  `bson:"address" json:"address"`
	Network Network `bson:"network" json:"network"`

	TotalPackets      int64   `bson:"total_packets" json:"total_packets"`
	SuccessfulPackets int64   `bson:"successful_packets" json:"successful_packets"`
	FailedPackets     int64   `bson:"failed_packets" json:"failed_packets"`
	AvgRelayTimeMs    float64 `bson:"avg_relay_time_ms" json:"avg_relay_time_ms"`

	VolumesByChain map[string]map[string]string `bson:"volumes_by_chain" json:"volumes_by_chain"`
	VolumesByDenom map[string]string            `bson:"volumes_by_denom" json:"volumes_by_denom"`

	ActiveChannels []ChannelVolumeRecord `bson:"active_channels" json:"active_channels"`
	ChainsServed   []string              `bson:"chains_served" json:"chains_served"`
}

// MetricPeriod is the rollup window for a MetricSample.
type MetricPeriod string

const (
	PeriodHourly MetricPeriod = "hourly"
	PeriodDaily  MetricPeriod = "daily"
	PeriodWeekly MetricPeriod = "weekly"
)

// MetricType names the entity a MetricSample rolls up.
type MetricType string

const (
	MetricChannel MetricType = "channel"
	MetricRelayer MetricType = "relayer"
	MetricChain   MetricType = "chain"
)

// DenomAmount pairs a denom with a string-encoded base-unit amount.
type DenomAmount struct {
	Denom  string `bson:"denom" json:"denom"`
	Amount string `bson:"amount" json:"amount"`
}

// MetricSample is a periodic rollup keyed by (metric_type, reference_id,
// timestamp, period, network).
type MetricSample struct {
	MetricType      MetricType    `bson:"metric_type" json:"metric_type"`
	ReferenceID     string        `bson:"reference_id" json:"reference_id"`
	Timestamp       time.Time     `bson:"timestamp" json:"timestamp"`
	Period          MetricPeriod  `bson:"period" json:"period"`
	Network         Network       `bson:"network" json:"network"`
	Count           int64         `bson:"count" json:"count"`
	AvgCompletionMs float64       `bson:"avg_completion_ms" json:"avg_completion_ms"`
	Volumes         []DenomAmount `bson:"volumes" json:"volumes"`
}
