package ibc

import (
	"testing"
	"time"
)

func TestIsSuccessfulAcknowledgementExplicitError(t *testing.T) {
	if IsSuccessfulAcknowledgement(map[string]string{"packet_ack_error": "insufficient funds"}) {
		t.Error("expected explicit error attribute to mean failure")
	}
}

func TestIsSuccessfulAcknowledgementParsesJSONError(t *testing.T) {
	if IsSuccessfulAcknowledgement(map[string]string{"packet_ack": `{"error":"boom"}`}) {
		t.Error("expected json error field to mean failure")
	}
	if IsSuccessfulAcknowledgement(map[string]string{"packet_ack": `{"code":5}`}) {
		t.Error("expected json code field to mean failure")
	}
	if IsSuccessfulAcknowledgement(map[string]string{"packet_ack": `{"result":"error"}`}) {
		t.Error("expected result=error to mean failure")
	}
}

func TestIsSuccessfulAcknowledgementSuccessCase(t *testing.T) {
	if !IsSuccessfulAcknowledgement(map[string]string{"packet_ack": `{"result":"AQ=="}`}) {
		t.Error("expected successful ack to parse as true")
	}
}

func TestIsSuccessfulAcknowledgementUnparseableSniffsError(t *testing.T) {
	if IsSuccessfulAcknowledgement(map[string]string{"packet_ack": "not json but contains error text"}) {
		t.Error("expected substring sniff to catch 'error'")
	}
	if !IsSuccessfulAcknowledgement(map[string]string{"packet_ack": "not json, all good"}) {
		t.Error("expected unparseable non-error text to be treated as success")
	}
}

func TestUpdateTransferForAcknowledgementSuccess(t *testing.T) {
	t0 := time.Now()
	tr := Transfer{Status: TransferPending}
	updated := UpdateTransferForAcknowledgement(tr, "txHash", 110, t0, true, "")
	if updated.Status != TransferCompleted || !updated.Success {
		t.Errorf("unexpected transfer: %+v", updated)
	}
	if tr.Status != TransferPending {
		t.Error("expected original transfer to remain unmutated")
	}
}

func TestUpdateTransferForAcknowledgementFailure(t *testing.T) {
	tr := Transfer{Status: TransferPending}
	updated := UpdateTransferForAcknowledgement(tr, "txHash", 110, time.Now(), false, "insufficient funds")
	if updated.Status != TransferFailed || updated.Success || updated.Error != "insufficient funds" {
		t.Errorf("unexpected transfer: %+v", updated)
	}
}

func TestUpdateTransferForTimeout(t *testing.T) {
	tr := Transfer{Status: TransferPending}
	updated := UpdateTransferForTimeout(tr, "txHash", 110, time.Now())
	if updated.Status != TransferTimeout || updated.Success || updated.Error != "Packet timed out" {
		t.Errorf("unexpected transfer: %+v", updated)
	}
}
