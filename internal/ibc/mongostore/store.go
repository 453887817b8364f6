// Package mongostore is the concrete persistence backend for the C5
// repository interfaces, backed by go.mongodb.org/mongo-driver. One
// collection per entity, uniqueness indexes matching section 6.
package mongostore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/ibc"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
)

const (
	collClients     = "clients"
	collConnections = "connections"
	collChannels    = "channels"
	collPackets     = "packets"
	collTransfers   = "transfers"
	collRelayers    = "relayers"
	collMetrics     = "metric_samples"
)

// Store is the mongo-driver-backed implementation of ibc.Store.
type Store struct {
	db  *mongo.Database
	log zerolog.Logger
}

// Connect dials MongoDB and returns a Store bound to the given database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{db: client.Database(database), log: logging.New("mongostore")}, nil
}

// EnsureIndexes creates the uniqueness and secondary indexes named in
// section 6. Safe to call repeatedly; mongo is idempotent on existing
// index specs.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collClients: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "network", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "chain_id", Value: 1}}},
		},
		collConnections: {
			{Keys: bson.D{{Key: "connection_id", Value: 1}, {Key: "network", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collChannels: {
			{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "port_id", Value: 1}, {Key: "network", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collPackets: {
			{Keys: bson.D{
				{Key: "sequence", Value: 1},
				{Key: "source_port", Value: 1},
				{Key: "source_channel", Value: 1},
				{Key: "destination_port", Value: 1},
				{Key: "destination_channel", Value: 1},
				{Key: "network", Value: 1},
			}, Options: options.Index().SetUnique(true)},
		},
		collTransfers: {
			{Keys: bson.D{{Key: "packet_id", Value: 1}, {Key: "network", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tx_hash", Value: 1}, {Key: "network", Value: 1}}},
		},
		collRelayers: {
			{Keys: bson.D{{Key: "address", Value: 1}, {Key: "network", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collMetrics: {
			{Keys: bson.D{
				{Key: "metric_type", Value: 1},
				{Key: "reference_id", Value: 1},
				{Key: "timestamp", Value: -1},
				{Key: "period", Value: 1},
				{Key: "network", Value: 1},
			}, Options: options.Index().SetUnique(true)},
		},
	}

	for collName, models := range specs {
		if _, err := s.db.Collection(collName).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", collName, err)
		}
	}
	return nil
}

func upsertFilter() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}

// UpsertClient implements ibc.ClientRepository.
func (s *Store) UpsertClient(ctx context.Context, c ibc.Client) error {
	filter := bson.D{{Key: "client_id", Value: c.ClientID}, {Key: "network", Value: c.Network}}
	_, err := s.db.Collection(collClients).ReplaceOne(ctx, filter, c, upsertFilter())
	return err
}

// GetClient implements ibc.ClientRepository.
func (s *Store) GetClient(ctx context.Context, clientID string, network ibc.Network) (*ibc.Client, error) {
	var out ibc.Client
	filter := bson.D{{Key: "client_id", Value: clientID}, {Key: "network", Value: network}}
	err := s.db.Collection(collClients).FindOne(ctx, filter).Decode(&out)
	return decodeOptional(&out, err)
}

// UpsertConnection implements ibc.ConnectionRepository.
func (s *Store) UpsertConnection(ctx context.Context, c ibc.Connection) error {
	filter := bson.D{{Key: "connection_id", Value: c.ConnectionID}, {Key: "network", Value: c.Network}}
	_, err := s.db.Collection(collConnections).ReplaceOne(ctx, filter, c, upsertFilter())
	return err
}

// GetConnection implements ibc.ConnectionRepository.
func (s *Store) GetConnection(ctx context.Context, connectionID string, network ibc.Network) (*ibc.Connection, error) {
	var out ibc.Connection
	filter := bson.D{{Key: "connection_id", Value: connectionID}, {Key: "network", Value: network}}
	err := s.db.Collection(collConnections).FindOne(ctx, filter).Decode(&out)
	return decodeOptional(&out, err)
}

// UpsertChannel implements ibc.ChannelRepository.
func (s *Store) UpsertChannel(ctx context.Context, c ibc.Channel) error {
	filter := bson.D{{Key: "channel_id", Value: c.ChannelID}, {Key: "port_id", Value: c.PortID}, {Key: "network", Value: c.Network}}
	_, err := s.db.Collection(collChannels).ReplaceOne(ctx, filter, c, upsertFilter())
	return err
}

// GetChannel implements ibc.ChannelRepository.
func (s *Store) GetChannel(ctx context.Context, channelID, portID string, network ibc.Network) (*ibc.Channel, error) {
	var out ibc.Channel
	filter := bson.D{{Key: "channel_id", Value: channelID}, {Key: "port_id", Value: portID}, {Key: "network", Value: network}}
	err := s.db.Collection(collChannels).FindOne(ctx, filter).Decode(&out)
	return decodeOptional(&out, err)
}

// ListChannelsByNetwork implements ibc.ChannelRepository.
func (s *Store) ListChannelsByNetwork(ctx context.Context, network ibc.Network) ([]ibc.Channel, error) {
	filter := bson.D{{Key: "network", Value: network}}
	cursor, err := s.db.Collection(collChannels).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ibc.Channel
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertPacket implements ibc.PacketRepository.
func (s *Store) UpsertPacket(ctx context.Context, p ibc.Packet) error {
	filter := packetKeyFilter(p.Key())
	_, err := s.db.Collection(collPackets).ReplaceOne(ctx, filter, p, upsertFilter())
	return err
}

// GetPacket implements ibc.PacketRepository.
func (s *Store) GetPacket(ctx context.Context, key ibc.PacketKey) (*ibc.Packet, error) {
	var out ibc.Packet
	err := s.db.Collection(collPackets).FindOne(ctx, packetKeyFilter(key)).Decode(&out)
	return decodeOptional(&out, err)
}

// GetPacketBySource implements ibc.PacketRepository, looking a packet up by
// its source-side triple alone (the destination side is not always known
// to a caller, e.g. a REST client).
func (s *Store) GetPacketBySource(ctx context.Context, sourcePort, sourceChannel string, sequence uint64, network ibc.Network) (*ibc.Packet, error) {
	var out ibc.Packet
	filter := bson.D{
		{Key: "sequence", Value: sequence},
		{Key: "source_port", Value: sourcePort},
		{Key: "source_channel", Value: sourceChannel},
		{Key: "network", Value: network},
	}
	err := s.db.Collection(collPackets).FindOne(ctx, filter).Decode(&out)
	return decodeOptional(&out, err)
}

func packetKeyFilter(key ibc.PacketKey) bson.D {
	return bson.D{
		{Key: "sequence", Value: key.Sequence},
		{Key: "source_port", Value: key.SourcePort},
		{Key: "source_channel", Value: key.SourceChannel},
		{Key: "destination_port", Value: key.DestinationPort},
		{Key: "destination_channel", Value: key.DestinationChannel},
		{Key: "network", Value: key.Network},
	}
}

// UpsertTransfer implements ibc.TransferRepository.
func (s *Store) UpsertTransfer(ctx context.Context, t ibc.Transfer) error {
	filter := bson.D{{Key: "packet_id", Value: t.PacketID}, {Key: "network", Value: t.Network}}
	_, err := s.db.Collection(collTransfers).ReplaceOne(ctx, filter, t, upsertFilter())
	return err
}

// GetTransferByPacketID implements ibc.TransferRepository.
func (s *Store) GetTransferByPacketID(ctx context.Context, packetID string, network ibc.Network) (*ibc.Transfer, error) {
	var out ibc.Transfer
	filter := bson.D{{Key: "packet_id", Value: packetID}, {Key: "network", Value: network}}
	err := s.db.Collection(collTransfers).FindOne(ctx, filter).Decode(&out)
	return decodeOptional(&out, err)
}

// GetTransferByTxHash implements ibc.TransferRepository, returning the
// most recently updated transfer for the tx hash within a network.
func (s *Store) GetTransferByTxHash(ctx context.Context, txHash string, network ibc.Network) (*ibc.Transfer, error) {
	var out ibc.Transfer
	filter := bson.D{{Key: "tx_hash", Value: txHash}, {Key: "network", Value: network}}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	err := s.db.Collection(collTransfers).FindOne(ctx, filter, opts).Decode(&out)
	return decodeOptional(&out, err)
}

// UpsertRelayer implements ibc.RelayerRepository.
func (s *Store) UpsertRelayer(ctx context.Context, r ibc.Relayer) error {
	filter := bson.D{{Key: "address", Value: r.Address}, {Key: "network", Value: r.Network}}
	_, err := s.db.Collection(collRelayers).ReplaceOne(ctx, filter, r, upsertFilter())
	return err
}

// GetRelayer implements ibc.RelayerRepository.
func (s *Store) GetRelayer(ctx context.Context, address string, network ibc.Network) (*ibc.Relayer, error) {
	var out ibc.Relayer
	filter := bson.D{{Key: "address", Value: address}, {Key: "network", Value: network}}
	err := s.db.Collection(collRelayers).FindOne(ctx, filter).Decode(&out)
	return decodeOptional(&out, err)
}

// UpsertMetricSample implements ibc.MetricRepository.
func (s *Store) UpsertMetricSample(ctx context.Context, m ibc.MetricSample) error {
	filter := bson.D{
		{Key: "metric_type", Value: m.MetricType},
		{Key: "reference_id", Value: m.ReferenceID},
		{Key: "timestamp", Value: m.Timestamp},
		{Key: "period", Value: m.Period},
		{Key: "network", Value: m.Network},
	}
	_, err := s.db.Collection(collMetrics).ReplaceOne(ctx, filter, m, upsertFilter())
	return err
}

func decodeOptional[T any](out *T, err error) (*T, error) {
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Disconnect closes the underlying mongo client, respecting ctx's deadline.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
