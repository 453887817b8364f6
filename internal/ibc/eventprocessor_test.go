package ibc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/token"
)

type fakeStore struct {
	mu          sync.Mutex
	channels    map[string]Channel
	connections map[string]Connection
	clients     map[string]Client
	packets     map[PacketKey]Packet
	transfers   map[string]Transfer // by packet_id
	relayers    map[string]Relayer
	metrics     []MetricSample
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels:    map[string]Channel{},
		connections: map[string]Connection{},
		clients:     map[string]Client{},
		packets:     map[PacketKey]Packet{},
		transfers:   map[string]Transfer{},
		relayers:    map[string]Relayer{},
	}
}

func (f *fakeStore) UpsertClient(ctx context.Context, c Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[string(c.Network)+"/"+c.ClientID] = c
	return nil
}
func (f *fakeStore) GetClient(ctx context.Context, clientID string, network Network) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[string(network)+"/"+clientID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
func (f *fakeStore) UpsertConnection(ctx context.Context, c Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections[string(c.Network)+"/"+c.ConnectionID] = c
	return nil
}
func (f *fakeStore) GetConnection(ctx context.Context, connectionID string, network Network) (*Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.connections[string(network)+"/"+connectionID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
func (f *fakeStore) UpsertChannel(ctx context.Context, c Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channelKey(c.ChannelID, c.PortID, c.Network)] = c
	return nil
}
func (f *fakeStore) GetChannel(ctx context.Context, channelID, portID string, network Network) (*Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[channelKey(channelID, portID, network)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
func (f *fakeStore) ListChannelsByNetwork(ctx context.Context, network Network) ([]Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Channel
	for _, c := range f.channels {
		if c.Network == network {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertPacket(ctx context.Context, p Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packets[p.Key()] = p
	return nil
}
func (f *fakeStore) GetPacket(ctx context.Context, key PacketKey) (*Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packets[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
func (f *fakeStore) GetPacketBySource(ctx context.Context, sourcePort, sourceChannel string, sequence uint64, network Network) (*Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, p := range f.packets {
		if k.SourcePort == sourcePort && k.SourceChannel == sourceChannel && k.Sequence == sequence && k.Network == network {
			return &p, nil
		}
	}
	return nil, nil
}
func (f *fakeStore) UpsertTransfer(ctx context.Context, t Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[t.PacketID+"/"+string(t.Network)] = t
	return nil
}
func (f *fakeStore) GetTransferByPacketID(ctx context.Context, packetID string, network Network) (*Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transfers[packetID+"/"+string(network)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}
func (f *fakeStore) GetTransferByTxHash(ctx context.Context, txHash string, network Network) (*Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *Transfer
	for _, t := range f.transfers {
		if t.TxHash == txHash && t.Network == network {
			tc := t
			if best == nil || tc.UpdatedAt.After(best.UpdatedAt) {
				best = &tc
			}
		}
	}
	return best, nil
}
func (f *fakeStore) UpsertRelayer(ctx context.Context, r Relayer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relayers[string(r.Network)+"/"+r.Address] = r
	return nil
}
func (f *fakeStore) GetRelayer(ctx context.Context, address string, network Network) (*Relayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.relayers[string(network)+"/"+address]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
func (f *fakeStore) UpsertMetricSample(ctx context.Context, m MetricSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, m)
	return nil
}

func newTestProcessor(store *fakeStore) *EventProcessor {
	registry := chainregistry.New()
	resolver := NewChainResolver(store, registry)
	tokens := token.NewService(token.NewMetadataRegistry(), nil)
	return NewEventProcessor(store, resolver, tokens, registry, nil)
}

func sendPacketEvent() Event {
	return Event{Type: "send_packet", Attributes: []Attribute{
		{Key: "packet_sequence", Value: "7"},
		{Key: "packet_src_port", Value: "transfer"},
		{Key: "packet_src_channel", Value: "channel-0"},
		{Key: "packet_dst_port", Value: "transfer"},
		{Key: "packet_dst_channel", Value: "channel-12"},
		{Key: "packet_data", Value: `{"sender":"bbn1a","receiver":"cosmos1b","denom":"ubbn","amount":"1000000"}`},
	}}
}

func TestScenarioSendThenAckOk(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Second)

	if err := p.Process(ctx, sendPacketEvent(), EventContext{TxHash: "txA", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("send_packet processing failed: %v", err)
	}

	ackEvent := Event{Type: "acknowledge_packet", Attributes: []Attribute{
		{Key: "packet_sequence", Value: "7"},
		{Key: "packet_src_port", Value: "transfer"},
		{Key: "packet_src_channel", Value: "channel-0"},
		{Key: "packet_dst_port", Value: "transfer"},
		{Key: "packet_dst_channel", Value: "channel-12"},
		{Key: "packet_ack", Value: `{"result":"AQ=="}`},
	}}
	if err := p.Process(ctx, ackEvent, EventContext{TxHash: "txAck", Height: 110, Timestamp: t1, Network: Mainnet}); err != nil {
		t.Fatalf("acknowledge_packet processing failed: %v", err)
	}

	packetID := CreatePacketID("transfer", "channel-0", "7")
	tr, err := store.GetTransferByPacketID(ctx, packetID, Mainnet)
	if err != nil || tr == nil {
		t.Fatalf("expected transfer to exist, err=%v", err)
	}
	if tr.Status != TransferCompleted || !tr.Success {
		t.Errorf("expected COMPLETED/success, got %+v", tr)
	}
	if tr.Sender != "bbn1a" || tr.Receiver != "cosmos1b" || tr.Denom != "ubbn" || tr.Amount != "1000000" {
		t.Errorf("unexpected transfer fields: %+v", tr)
	}
	if tr.TokenSymbol != "BABY" || tr.TokenDisplayAmount != "1" {
		t.Errorf("unexpected formatting: symbol=%s display=%s", tr.TokenSymbol, tr.TokenDisplayAmount)
	}
	if !tr.SendTime.Equal(t0) {
		t.Errorf("expected send_time=%v, got %v", t0, tr.SendTime)
	}
	if tr.CompletionTimestamp == nil || !tr.CompletionTimestamp.Equal(t1) {
		t.Errorf("expected completion_timestamp=%v, got %v", t1, tr.CompletionTimestamp)
	}

	pkt, err := store.GetPacketBySource(ctx, "transfer", "channel-0", 7, Mainnet)
	if err != nil || pkt == nil {
		t.Fatalf("expected a packet record alongside the transfer, err=%v", err)
	}
	if pkt.SendTxHash != "txA" || pkt.SendTimestamp == nil || !pkt.SendTimestamp.Equal(t0) {
		t.Errorf("unexpected packet send fields: %+v", pkt)
	}
}

func TestScenarioAckWithError(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()
	t0 := time.Now()

	if err := p.Process(ctx, sendPacketEvent(), EventContext{TxHash: "txA", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("send_packet failed: %v", err)
	}

	ackErr := Event{Type: "acknowledge_packet", Attributes: []Attribute{
		{Key: "packet_sequence", Value: "7"},
		{Key: "packet_src_port", Value: "transfer"},
		{Key: "packet_src_channel", Value: "channel-0"},
		{Key: "packet_dst_port", Value: "transfer"},
		{Key: "packet_dst_channel", Value: "channel-12"},
		{Key: "packet_ack_error", Value: "insufficient funds"},
	}}
	if err := p.Process(ctx, ackErr, EventContext{TxHash: "txAck", Height: 110, Timestamp: t0.Add(time.Second), Network: Mainnet}); err != nil {
		t.Fatalf("ack processing failed: %v", err)
	}

	packetID := CreatePacketID("transfer", "channel-0", "7")
	tr, _ := store.GetTransferByPacketID(ctx, packetID, Mainnet)
	if tr == nil || tr.Status != TransferFailed || tr.Success || tr.Error != "insufficient funds" {
		t.Errorf("unexpected transfer: %+v", tr)
	}
}

func TestScenarioTimeout(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()
	t0 := time.Now()

	if err := p.Process(ctx, sendPacketEvent(), EventContext{TxHash: "txA", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("send_packet failed: %v", err)
	}

	timeoutEvent := Event{Type: "timeout_packet", Attributes: []Attribute{
		{Key: "packet_sequence", Value: "7"},
		{Key: "packet_src_port", Value: "transfer"},
		{Key: "packet_src_channel", Value: "channel-0"},
		{Key: "packet_dst_port", Value: "transfer"},
		{Key: "packet_dst_channel", Value: "channel-12"},
	}}
	if err := p.Process(ctx, timeoutEvent, EventContext{TxHash: "txTimeout", Height: 120, Timestamp: t0.Add(time.Minute), Network: Mainnet}); err != nil {
		t.Fatalf("timeout processing failed: %v", err)
	}

	packetID := CreatePacketID("transfer", "channel-0", "7")
	tr, _ := store.GetTransferByPacketID(ctx, packetID, Mainnet)
	if tr == nil || tr.Status != TransferTimeout || tr.Success || tr.Error != "Packet timed out" {
		t.Errorf("unexpected transfer: %+v", tr)
	}
}

func TestScenarioFungibleEnrichmentSameTx(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()
	t0 := time.Now()

	if err := p.Process(ctx, sendPacketEvent(), EventContext{TxHash: "txX", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("send_packet failed: %v", err)
	}

	ftp := Event{Type: "fungible_token_packet", Attributes: []Attribute{
		{Key: "success", Value: "true"},
		{Key: "denom", Value: "ubbn"},
		{Key: "amount", Value: "500"},
	}}
	if err := p.Process(ctx, ftp, EventContext{TxHash: "txX", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("fungible_token_packet failed: %v", err)
	}

	packetID := CreatePacketID("transfer", "channel-0", "7")
	tr, _ := store.GetTransferByPacketID(ctx, packetID, Mainnet)
	if tr == nil {
		t.Fatal("expected existing transfer to be updated, not absent")
	}
	if tr.Amount != "500" || !tr.Success || tr.Status != TransferCompleted {
		t.Errorf("unexpected enriched transfer: %+v", tr)
	}
	if len(store.transfers) != 1 {
		t.Errorf("expected no duplicate transfer, got %d", len(store.transfers))
	}
}

func TestScenarioFungibleSuccessSOHSentinel(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()
	t0 := time.Now()

	if err := p.Process(ctx, sendPacketEvent(), EventContext{TxHash: "txS", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("send_packet failed: %v", err)
	}

	ftp := Event{Type: "fungible_token_packet", Attributes: []Attribute{
		{Key: "success", Value: ""},
		{Key: "denom", Value: "ubbn"},
		{Key: "amount", Value: "500"},
	}}
	if err := p.Process(ctx, ftp, EventContext{TxHash: "txS", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("fungible_token_packet failed: %v", err)
	}

	packetID := CreatePacketID("transfer", "channel-0", "7")
	tr, _ := store.GetTransferByPacketID(ctx, packetID, Mainnet)
	if tr == nil || !tr.Success || tr.Status != TransferCompleted {
		t.Errorf("expected SOH sentinel to mean success, got %+v", tr)
	}
}

func TestScenarioFungibleMissingSuccessAttributeIsNotSuccess(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()
	t0 := time.Now()

	if err := p.Process(ctx, sendPacketEvent(), EventContext{TxHash: "txM", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("send_packet failed: %v", err)
	}

	ftp := Event{Type: "fungible_token_packet", Attributes: []Attribute{
		{Key: "denom", Value: "ubbn"},
		{Key: "amount", Value: "500"},
	}}
	if err := p.Process(ctx, ftp, EventContext{TxHash: "txM", Height: 100, Timestamp: t0, Network: Mainnet}); err != nil {
		t.Fatalf("fungible_token_packet failed: %v", err)
	}

	packetID := CreatePacketID("transfer", "channel-0", "7")
	tr, _ := store.GetTransferByPacketID(ctx, packetID, Mainnet)
	if tr == nil {
		t.Fatal("expected existing transfer to be updated, not absent")
	}
	if tr.Success || tr.Status == TransferCompleted {
		t.Errorf("expected a missing success attribute to not mean success, got %+v", tr)
	}
}

func TestScenarioFungibleWithoutPriorTransfer(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store)
	ctx := context.Background()

	ftp := Event{Type: "fungible_token_packet", Attributes: []Attribute{
		{Key: "success", Value: "true"},
		{Key: "denom", Value: "ubbn"},
		{Key: "amount", Value: "500"},
	}}
	if err := p.Process(ctx, ftp, EventContext{TxHash: "txY", Height: 100, Timestamp: time.Now(), Network: Mainnet}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.transfers) != 0 {
		t.Errorf("expected no record created, got %d", len(store.transfers))
	}
}

func TestScenarioChainResolutionWalk(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	_ = store.UpsertChannel(ctx, Channel{ChannelID: "channel-0", PortID: "transfer", Network: Mainnet, ConnectionID: "connection-0"})
	_ = store.UpsertConnection(ctx, Connection{ConnectionID: "connection-0", Network: Mainnet, ClientID: "07-tendermint-0"})
	_ = store.UpsertClient(ctx, Client{ClientID: "07-tendermint-0", Network: Mainnet, ChainID: "osmosis-1"})

	registry := chainregistry.New()
	resolver := NewChainResolver(store, registry)
	info := resolver.ResolveChannel(ctx, "channel-0", "transfer", Mainnet)
	if info == nil || info.ChainID != "osmosis-1" || info.ChainName != "Osmosis" {
		t.Errorf("unexpected resolution: %+v", info)
	}
}
