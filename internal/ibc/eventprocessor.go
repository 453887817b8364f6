package ibc

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/chainregistry"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/metrics"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/token"
)

// EventContext carries the metadata accompanying a raw event, per
// section 6's event input shape.
type EventContext struct {
	TxHash    string
	Height    uint64
	Timestamp time.Time
	Network   Network
}

// EventProcessor implements C10: it dispatches events by type, calling
// into the packet-identity (C7), chain-resolution (C6), token-formatting
// (C8) and transfer-status (C9) collaborators, then persists via Store (C5).
type EventProcessor struct {
	store    Store
	resolver *ChainResolver
	txCtx    *TxContext
	tokens   *token.Service
	registry *chainregistry.Registry
	metrics  *metrics.Recorder
	locks    *keyedMutex
	log      zerolog.Logger
}

// NewEventProcessor wires the collaborators the processor needs. rec may
// be nil, in which case no instruments are recorded.
func NewEventProcessor(store Store, resolver *ChainResolver, tokens *token.Service, registry *chainregistry.Registry, rec *metrics.Recorder) *EventProcessor {
	return &EventProcessor{
		store:    store,
		resolver: resolver,
		txCtx:    NewTxContext(),
		tokens:   tokens,
		registry: registry,
		metrics:  rec,
		locks:    newKeyedMutex(64),
		log:      logging.New("event-processor"),
	}
}

// Process handles a single event, recovering locally around every
// operation: one bad event never halts the stream (section 7). Events
// sharing a packet key are serialized against each other so a send_packet
// and its later acknowledge_packet never race on the same transfer.
func (p *EventProcessor) Process(ctx context.Context, ev Event, evCtx EventContext) error {
	unlock := p.locks.Lock(packetLockKey(ev, evCtx))
	defer unlock()

	var err error
	switch ev.Type {
	case "fungible_token_packet":
		err = p.handleFungibleTokenPacket(ctx, ev, evCtx)
	case "send_packet":
		err = p.handleSendOrRecv(ctx, ev, evCtx, true)
	case "recv_packet":
		err = p.handleSendOrRecv(ctx, ev, evCtx, false)
	case "acknowledge_packet":
		err = p.handleAcknowledge(ctx, ev, evCtx)
	case "timeout_packet":
		err = p.handleTimeout(ctx, ev, evCtx)
	default:
		p.log.Debug().Str("event_type", ev.Type).Msg("unrecognized event type, ignoring")
		return nil
	}

	if p.metrics != nil {
		if err != nil {
			p.metrics.RecordEventFailed(ctx, metrics.EventType(ev.Type))
		} else {
			p.metrics.RecordEventProcessed(ctx, metrics.EventType(ev.Type))
		}
	}
	return err
}

// packetLockKey derives the best available lock key for an event: the
// packet's source channel/sequence when attributes carry them, otherwise
// the transaction hash, so unrelated transactions never contend.
func packetLockKey(ev Event, evCtx EventContext) string {
	m := flattenAttributes(ev.Attributes)
	if seq, ok := attr(m, "packet_sequence", "sequence"); ok {
		if ch, ok := attr(m, "packet_src_channel", "src_channel", "source_channel"); ok {
			return string(evCtx.Network) + "/" + ch + "/" + seq
		}
	}
	return string(evCtx.Network) + "/tx/" + evCtx.TxHash
}

func (p *EventProcessor) handleFungibleTokenPacket(ctx context.Context, ev Event, evCtx EventContext) error {
	m := flattenAttributes(ev.Attributes)

	existing, err := p.store.GetTransferByTxHash(ctx, evCtx.TxHash, evCtx.Network)
	if err != nil {
		p.log.Warn().Err(err).Str("tx_hash", evCtx.TxHash).Msg("fungible_token_packet: lookup failed")
		return nil
	}
	if existing == nil {
		// No correlatable transfer: skip silently, per section 4.10.
		return nil
	}

	updated := *existing
	if v, ok := attr(m, "denom"); ok && v != "" {
		updated.Denom = v
	}
	if v, ok := attr(m, "amount"); ok && v != "" {
		updated.Amount = v
	}
	if v, ok := attr(m, "sender"); ok && v != "" {
		updated.Sender = v
	}
	if v, ok := attr(m, "receiver"); ok && v != "" {
		updated.Receiver = v
	}
	if v, ok := attr(m, "memo"); ok {
		updated.Memo = v
	}

	success, _ := attr(m, "success")
	updated.Success = success == "true" || success == "\u0001"
	if updated.Success {
		updated.Status = TransferCompleted
		ts := evCtx.Timestamp
		updated.CompletionTimestamp = &ts
	}
	updated.UpdatedAt = evCtx.Timestamp

	return p.store.UpsertTransfer(ctx, updated)
}

func (p *EventProcessor) handleSendOrRecv(ctx context.Context, ev Event, evCtx EventContext, isSend bool) error {
	eventType := "recv_packet"
	if isSend {
		eventType = "send_packet"
	}

	info, ok := HandlePacketEvent(p.txCtx, evCtx.TxHash, Event{Type: eventType, Attributes: ev.Attributes})
	if !ok {
		p.log.Warn().Str("event_type", eventType).Str("tx_hash", evCtx.TxHash).Msg("malformed packet event: missing routing attributes")
		return nil
	}

	m := flattenAttributes(ev.Attributes)
	chainInfo := p.resolver.GetTransferChainInfo(ctx, eventType, info.SourceChannel, info.SourcePort, info.DestinationChannel, info.DestinationPort, evCtx.Network)
	chainInfo = ApplyFallbacks(chainInfo, evCtx.Network, p.registry)

	rawData, _ := attr(m, "packet_data", "data")
	var transferData token.TransferData
	if rawData != "" {
		if parsed, err := token.ParseTransferData(rawData); err == nil {
			transferData = parsed
		} else {
			p.log.Warn().Err(err).Msg("failed to parse packet transfer data")
		}
	}

	symbol := token.ExtractTokenSymbol(transferData.Denom)
	displayAmount, err := token.FormatTokenAmount(transferData.Amount, symbol)
	if err != nil {
		displayAmount = ""
	}

	status := TransferPending
	if !isSend {
		status = TransferReceived
	}

	t := Transfer{
		PacketID:             info.PacketID(),
		Network:              evCtx.Network,
		Sender:               transferData.Sender,
		Receiver:             transferData.Receiver,
		Amount:               transferData.Amount,
		Denom:                transferData.Denom,
		Memo:                 transferData.Memo,
		Status:               status,
		TokenSymbol:          symbol,
		TokenDisplayAmount:   displayAmount,
		SourceChainID:        chainInfo.SourceChainID,
		SourceChainName:      chainInfo.SourceChainName,
		DestinationChainID:   chainInfo.DestinationChainID,
		DestinationChainName: chainInfo.DestinationChainName,
		SourceChannelID:      info.SourceChannel,
		DestinationChannelID: info.DestinationChannel,
		SendTime:             evCtx.Timestamp,
		TxHash:               evCtx.TxHash,
		UpdatedAt:            evCtx.Timestamp,
	}

	if err := p.upsertPacketForEvent(ctx, info, evCtx, chainInfo, isSend); err != nil {
		return err
	}

	return p.store.UpsertTransfer(ctx, t)
}

// upsertPacketForEvent persists the Packet entity a Transfer references,
// merging onto whatever observation already exists so a recv_packet never
// clobbers fields a send_packet already recorded, and vice versa.
func (p *EventProcessor) upsertPacketForEvent(ctx context.Context, info PacketInfo, evCtx EventContext, chainInfo TransferChainInfo, isSend bool) error {
	sequence, err := strconv.ParseUint(info.Sequence, 10, 64)
	if err != nil {
		p.log.Warn().Err(err).Str("sequence", info.Sequence).Msg("packet event: non-numeric sequence")
		return nil
	}

	key := PacketKey{
		Sequence:           sequence,
		SourcePort:         info.SourcePort,
		SourceChannel:      info.SourceChannel,
		DestinationPort:    info.DestinationPort,
		DestinationChannel: info.DestinationChannel,
		Network:            evCtx.Network,
	}

	packet := Packet{
		Sequence:           sequence,
		SourcePort:         info.SourcePort,
		SourceChannel:      info.SourceChannel,
		DestinationPort:    info.DestinationPort,
		DestinationChannel: info.DestinationChannel,
		Network:            evCtx.Network,
	}
	if existing, err := p.store.GetPacket(ctx, key); err != nil {
		p.log.Warn().Err(err).Msg("packet lookup failed, recording a fresh observation")
	} else if existing != nil {
		packet = *existing
	}

	packet.SourceChainID = chainInfo.SourceChainID
	packet.DestinationChainID = chainInfo.DestinationChainID

	ts := evCtx.Timestamp
	if isSend {
		packet.Status = PacketSent
		packet.SendTxHash = evCtx.TxHash
		packet.SendTimestamp = &ts
	} else {
		packet.Status = PacketReceived
		packet.ReceiveTxHash = evCtx.TxHash
		packet.ReceiveTimestamp = &ts
	}

	return p.store.UpsertPacket(ctx, packet)
}

func (p *EventProcessor) handleAcknowledge(ctx context.Context, ev Event, evCtx EventContext) error {
	info, ok := HandlePacketEvent(p.txCtx, evCtx.TxHash, Event{Type: "acknowledge_packet", Attributes: ev.Attributes})
	if !ok {
		p.log.Warn().Str("tx_hash", evCtx.TxHash).Msg("malformed acknowledge_packet event")
		return nil
	}

	existing, err := p.store.GetTransferByPacketID(ctx, info.PacketID(), evCtx.Network)
	if err != nil {
		p.log.Debug().Err(err).Str("packet_id", info.PacketID()).Msg("acknowledge_packet: transfer lookup failed")
		return nil
	}
	if existing == nil {
		p.log.Debug().Str("packet_id", info.PacketID()).Msg("acknowledge_packet: no matching transfer")
		return nil
	}

	m := flattenAttributes(ev.Attributes)
	ok2 := IsSuccessfulAcknowledgement(m)
	var errMsg string
	if !ok2 {
		if v, found := attr(m, "packet_ack_error", "error"); found {
			errMsg = v
		}
	}

	updated := UpdateTransferForAcknowledgement(*existing, evCtx.TxHash, evCtx.Height, evCtx.Timestamp, ok2, errMsg)
	p.recordCompletionLatency(ctx, updated)
	return p.store.UpsertTransfer(ctx, updated)
}

func (p *EventProcessor) recordCompletionLatency(ctx context.Context, t Transfer) {
	if p.metrics == nil || t.SendTime.IsZero() {
		return
	}
	end := t.SendTime
	if t.CompletionTimestamp != nil {
		end = *t.CompletionTimestamp
	} else if t.TimeoutTimestamp != nil {
		end = *t.TimeoutTimestamp
	}
	p.metrics.RecordPacketCompletion(ctx, end.Sub(t.SendTime).Seconds(), string(t.Status))
}

func (p *EventProcessor) handleTimeout(ctx context.Context, ev Event, evCtx EventContext) error {
	info, ok := HandlePacketEvent(p.txCtx, evCtx.TxHash, Event{Type: "timeout_packet", Attributes: ev.Attributes})
	if !ok {
		p.log.Warn().Str("tx_hash", evCtx.TxHash).Msg("malformed timeout_packet event")
		return nil
	}

	existing, err := p.store.GetTransferByPacketID(ctx, info.PacketID(), evCtx.Network)
	if err != nil {
		p.log.Debug().Err(err).Str("packet_id", info.PacketID()).Msg("timeout_packet: transfer lookup failed")
		return nil
	}
	if existing == nil {
		p.log.Debug().Str("packet_id", info.PacketID()).Msg("timeout_packet: no matching transfer")
		return nil
	}

	updated := UpdateTransferForTimeout(*existing, evCtx.TxHash, evCtx.Height, evCtx.Timestamp)
	p.recordCompletionLatency(ctx, updated)
	return p.store.UpsertTransfer(ctx, updated)
}
