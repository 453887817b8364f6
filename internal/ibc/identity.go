package ibc

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
)

// Attribute is a single key/value pair from a raw chain event.
type Attribute struct {
	Key   string
	Value string
}

// Event is the recognized raw input shape: a type tag plus attributes.
type Event struct {
	Type       string
	Attributes []Attribute
}

// flattenAttributes keeps the last occurrence per key, per section 4.7.
func flattenAttributes(attrs []Attribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

// PacketInfo is the routing identity extracted from an event.
type PacketInfo struct {
	SourcePort         string
	SourceChannel      string
	Sequence           string
	DestinationPort    string
	DestinationChannel string
}

// PacketID returns the synthesized, stable fingerprint for this routing
// identity, as produced by CreatePacketID.
func (p PacketInfo) PacketID() string {
	return CreatePacketID(p.SourcePort, p.SourceChannel, p.Sequence)
}

// CreatePacketID returns the first 24 hex characters of
// MD5("<port>/<channel>/<sequence>"), the packet's stable foreign key.
func CreatePacketID(port, channel, sequence string) string {
	input := fmt.Sprintf("%s/%s/%s", port, channel, sequence)
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:24]
}

// createPacketIDFallback is the 32-bit polynomial rolling hash fallback
// described in section 4.7, for environments without crypto/md5. Not used
// by CreatePacketID directly; kept for parity with the documented fallback.
func createPacketIDFallback(port, channel, sequence string) string {
	input := fmt.Sprintf("%s/%s/%s", port, channel, sequence)
	var h int32
	for _, c := range input {
		h = (h << 5) - h + c
	}
	hexStr := fmt.Sprintf("%x", uint32(h))
	for len(hexStr) < 24 {
		hexStr += "0"
	}
	return hexStr[:24]
}

func attr(m map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// extractPacketInfo implements section 4.7's attribute reconciliation:
// try the packet_* and bare keys, with a transfer-module msg_index
// fallback for sequence when the event lacks full routing attributes.
func extractPacketInfo(eventType string, m map[string]string) (PacketInfo, bool) {
	srcPort, hasSrcPort := attr(m, "packet_src_port", "source_port")
	srcChannel, hasSrcChannel := attr(m, "packet_src_channel", "source_channel")
	sequence, hasSequence := attr(m, "packet_sequence", "sequence")
	dstPort, hasDstPort := attr(m, "packet_dst_port", "destination_port")
	dstChannel, hasDstChannel := attr(m, "packet_dst_channel", "destination_channel")

	if !hasSequence && eventType == "fungible_token_packet" {
		if idx, ok := attr(m, "msg_index"); ok {
			sequence, hasSequence = idx, true
		}
		if !hasSrcPort {
			srcPort, hasSrcPort = "transfer", true
		}
		if !hasDstPort {
			dstPort, hasDstPort = "transfer", true
		}
	}

	if !hasSrcPort || !hasSrcChannel || !hasSequence || !hasDstPort || !hasDstChannel {
		return PacketInfo{}, false
	}

	return PacketInfo{
		SourcePort:         srcPort,
		SourceChannel:      srcChannel,
		Sequence:           sequence,
		DestinationPort:    dstPort,
		DestinationChannel: dstChannel,
	}, true
}

// txContextEntry is the per-transaction memory of the last packet seen.
type txContextEntry struct {
	lastPacketInfo PacketInfo
	lastEventType  string
	seq            uint64
}

// TxContext is the bounded tx_hash -> last-packet-info map from section
// 4.7, letting a fungible_token_packet event inherit the identity of an
// earlier send_packet/recv_packet in the same transaction. Capped at 1000
// entries; exceeding the cap drops the oldest 500 by insertion order.
type TxContext struct {
	mu      sync.Mutex
	entries map[string]txContextEntry
	order   []string
	seq     uint64
}

const (
	txContextCap        = 1000
	txContextEvictCount = 500
)

// NewTxContext creates an empty per-transaction context map.
func NewTxContext() *TxContext {
	return &TxContext{entries: make(map[string]txContextEntry)}
}

// Record stores the packet info seen for a transaction, evicting the
// oldest 500 entries (by insertion order) if the cap is exceeded.
func (c *TxContext) Record(txHash string, info PacketInfo, eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[txHash]; !exists {
		c.order = append(c.order, txHash)
	}
	c.seq++
	c.entries[txHash] = txContextEntry{lastPacketInfo: info, lastEventType: eventType, seq: c.seq}

	if len(c.entries) > txContextCap {
		evict := c.order[:txContextEvictCount]
		c.order = c.order[txContextEvictCount:]
		for _, h := range evict {
			delete(c.entries, h)
		}
	}
}

// Lookup returns the last recorded packet info for a transaction, if any.
func (c *TxContext) Lookup(txHash string) (PacketInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[txHash]
	if !ok {
		return PacketInfo{}, false
	}
	return e.lastPacketInfo, true
}

var packetEventTypes = map[string]bool{
	"send_packet":         true,
	"recv_packet":         true,
	"acknowledge_packet":  true,
	"timeout_packet":      true,
}

// HandlePacketEvent implements section 4.7's handlePacketEvent dispatch:
// routing events are extracted and recorded in the tx context;
// fungible_token_packet falls back to the tx context when attributes are
// incomplete; everything else yields no packet info.
func HandlePacketEvent(txCtx *TxContext, txHash string, ev Event) (PacketInfo, bool) {
	m := flattenAttributes(ev.Attributes)

	switch {
	case packetEventTypes[ev.Type]:
		info, ok := extractPacketInfo(ev.Type, m)
		if !ok {
			return PacketInfo{}, false
		}
		txCtx.Record(txHash, info, ev.Type)
		return info, true

	case ev.Type == "fungible_token_packet":
		if info, ok := extractPacketInfo(ev.Type, m); ok {
			return info, true
		}
		return txCtx.Lookup(txHash)

	default:
		return PacketInfo{}, false
	}
}
