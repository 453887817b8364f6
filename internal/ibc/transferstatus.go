package ibc

import (
	"encoding/json"
	"strings"
	"time"
)

// IsSuccessfulAcknowledgement implements section 4.9's success oracle:
// an explicit error attribute always means failure; a parseable
// acknowledgement payload is inspected for error/code/result markers;
// an unparseable payload falls back to substring sniffing; anything else
// is treated as success.
func IsSuccessfulAcknowledgement(attrs map[string]string) bool {
	if v, ok := attr(attrs, "packet_ack_error", "error"); ok && v != "" {
		return false
	}

	raw, ok := attr(attrs, "packet_ack", "acknowledgement")
	if !ok || raw == "" {
		return true
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		lower := strings.ToLower(raw)
		return !strings.Contains(lower, "error")
	}

	if _, hasError := payload["error"]; hasError {
		return false
	}
	if _, hasCode := payload["code"]; hasCode {
		return false
	}
	if result, ok := payload["result"].(string); ok && result == "error" {
		return false
	}
	return true
}

// UpdateTransferForAcknowledgement returns a new Transfer reflecting an
// acknowledgement outcome; it never mutates t.
func UpdateTransferForAcknowledgement(t Transfer, txHash string, height uint64, ts time.Time, ok bool, errMsg string) Transfer {
	out := t
	if ok {
		out.Status = TransferCompleted
		out.Success = true
		out.Error = ""
	} else {
		out.Status = TransferFailed
		out.Success = false
		out.Error = errMsg
	}
	out.CompletionTxHash = txHash
	out.CompletionHeight = height
	tsCopy := ts
	out.CompletionTimestamp = &tsCopy
	out.UpdatedAt = ts
	return out
}

// UpdateTransferForTimeout returns a new Transfer reflecting a timeout.
func UpdateTransferForTimeout(t Transfer, txHash string, height uint64, ts time.Time) Transfer {
	out := t
	out.Status = TransferTimeout
	out.Success = false
	out.TimeoutTxHash = txHash
	out.TimeoutHeight = height
	tsCopy := ts
	out.TimeoutTimestamp = &tsCopy
	out.Error = "Packet timed out"
	out.UpdatedAt = ts
	return out
}
