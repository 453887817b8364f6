package ibc

import "testing"

func TestCreatePacketIDDeterministic(t *testing.T) {
	a := CreatePacketID("transfer", "channel-0", "7")
	b := CreatePacketID("transfer", "channel-0", "7")
	if a != b {
		t.Errorf("expected deterministic id, got %s != %s", a, b)
	}
	if len(a) != 24 {
		t.Errorf("expected 24 hex chars, got %d", len(a))
	}
}

func TestCreatePacketIDCollisionFreeAcrossSamples(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := CreatePacketID("transfer", "channel-0", itoa(i))
		if seen[id] {
			t.Fatalf("collision detected at i=%d", i)
		}
		seen[id] = true
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func TestExtractPacketInfoFallsBackToMsgIndex(t *testing.T) {
	m := map[string]string{"msg_index": "0", "packet_src_channel": "channel-0", "packet_dst_channel": "channel-12"}
	info, ok := extractPacketInfo("fungible_token_packet", m)
	if !ok {
		t.Fatal("expected fallback extraction to succeed")
	}
	if info.SourcePort != "transfer" || info.DestinationPort != "transfer" || info.Sequence != "0" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestExtractPacketInfoMissingRequiredFields(t *testing.T) {
	_, ok := extractPacketInfo("send_packet", map[string]string{"packet_src_port": "transfer"})
	if ok {
		t.Error("expected extraction to fail with incomplete attributes")
	}
}

func TestTxContextRecordAndLookup(t *testing.T) {
	ctx := NewTxContext()
	info := PacketInfo{SourcePort: "transfer", SourceChannel: "channel-0", Sequence: "1", DestinationPort: "transfer", DestinationChannel: "channel-12"}
	ctx.Record("txA", info, "send_packet")

	got, ok := ctx.Lookup("txA")
	if !ok || got != info {
		t.Errorf("expected recorded info back, got %+v ok=%v", got, ok)
	}

	_, ok = ctx.Lookup("txUnknown")
	if ok {
		t.Error("expected no entry for unknown tx hash")
	}
}

func TestTxContextEvictsOldestOnOverflow(t *testing.T) {
	ctx := NewTxContext()
	for i := 0; i < txContextCap+10; i++ {
		ctx.Record("tx"+itoa(i), PacketInfo{Sequence: itoa(i)}, "send_packet")
	}
	if _, ok := ctx.Lookup("tx0"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := ctx.Lookup("tx" + itoa(txContextCap+9)); !ok {
		t.Error("expected most recent entry to remain")
	}
}

func TestHandlePacketEventFungibleFallsBackToTxContext(t *testing.T) {
	txCtx := NewTxContext()
	sendEvent := Event{Type: "send_packet", Attributes: []Attribute{
		{Key: "packet_src_port", Value: "transfer"},
		{Key: "packet_src_channel", Value: "channel-0"},
		{Key: "packet_sequence", Value: "7"},
		{Key: "packet_dst_port", Value: "transfer"},
		{Key: "packet_dst_channel", Value: "channel-12"},
	}}
	info, ok := HandlePacketEvent(txCtx, "txX", sendEvent)
	if !ok {
		t.Fatal("expected send_packet extraction to succeed")
	}

	ftpEvent := Event{Type: "fungible_token_packet", Attributes: []Attribute{
		{Key: "success", Value: "true"},
	}}
	inherited, ok := HandlePacketEvent(txCtx, "txX", ftpEvent)
	if !ok {
		t.Fatal("expected fungible_token_packet to inherit tx context")
	}
	if inherited.PacketID() != info.PacketID() {
		t.Errorf("expected inherited packet id to match send_packet's")
	}
}

func TestHandlePacketEventFungibleWithoutContextReturnsNothing(t *testing.T) {
	txCtx := NewTxContext()
	ftpEvent := Event{Type: "fungible_token_packet", Attributes: []Attribute{{Key: "success", Value: "true"}}}
	_, ok := HandlePacketEvent(txCtx, "txY", ftpEvent)
	if ok {
		t.Error("expected no packet info without prior tx context or full attributes")
	}
}
