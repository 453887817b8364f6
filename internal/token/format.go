package token

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// ExtractTokenSymbol derives a display symbol straight from a denom string,
// without going through the metadata registry (C8). Used where a quick
// label is needed (e.g. building a Transfer) before full metadata
// resolution happens.
func ExtractTokenSymbol(denom string) string {
	switch {
	case denom == "ubbn":
		return "BABY"
	case strings.HasPrefix(denom, "ibc/"):
		return "IBC"
	case strings.Contains(denom, "/"):
		last := denom[strings.LastIndex(denom, "/")+1:]
		if strings.HasPrefix(last, "u") {
			last = strings.TrimPrefix(last, "u")
		} else {
			last = strings.TrimPrefix(last, "a")
		}
		return strings.ToUpper(last)
	default:
		return strings.ToUpper(denom)
	}
}

// DecimalsForSymbol returns the scaling exponent used for display
// formatting of well-known symbols, per spec.md section 4.8: 6 for most
// Cosmos tokens, 8 for BTC/WBTC, 18 for ETH/WETH.
func DecimalsForSymbol(symbol string) int {
	switch strings.ToUpper(symbol) {
	case "BTC", "WBTC":
		return 8
	case "ETH", "WETH":
		return 18
	default:
		return 6
	}
}

// FormatTokenAmount scales a base-unit integer amount string by the given
// symbol's decimals using big.Int arithmetic (never float) and trims
// trailing fractional zeros, per spec.md section 4.8. The empty fractional
// part is dropped entirely rather than left as a trailing ".".
func FormatTokenAmount(amount string, symbol string) (string, error) {
	return formatBaseUnits(amount, DecimalsForSymbol(symbol))
}

// formatBaseUnits scales amount (a base-10 integer string, optionally
// negative) by 10^-decimals using big.Int division and remainder, so the
// conversion never touches floating point.
func formatBaseUnits(amount string, decimals int) (string, error) {
	neg := strings.HasPrefix(amount, "-")
	trimmed := strings.TrimPrefix(amount, "-")
	if trimmed == "" {
		return "", fmt.Errorf("empty amount")
	}

	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return "", fmt.Errorf("invalid integer amount: %q", amount)
	}

	if decimals <= 0 {
		out := value.String()
		if neg {
			out = "-" + out
		}
		return out, nil
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	remainder := new(big.Int)
	whole.QuoRem(value, divisor, remainder)

	fracStr := remainder.String()
	if len(fracStr) < decimals {
		fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")

	result := whole.String()
	if fracStr != "" {
		result = result + "." + fracStr
	}
	if neg && result != "0" {
		result = "-" + result
	}
	return result, nil
}

// ParseTransferData normalizes the transfer-module event payload, either a
// JSON-encoded string or an already-decoded map, into a TransferData value
// (C8). Unknown/missing fields are left as the zero value; memo is optional.
type TransferData struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
	Memo     string `json:"memo,omitempty"`
}

// ParseTransferData accepts either a JSON string or a map[string]any (as
// decoded from one) and returns the normalized TransferData.
func ParseTransferData(raw any) (TransferData, error) {
	switch v := raw.(type) {
	case string:
		var td TransferData
		if err := json.Unmarshal([]byte(v), &td); err != nil {
			return TransferData{}, fmt.Errorf("failed to parse transfer data json: %w", err)
		}
		return td, nil
	case []byte:
		var td TransferData
		if err := json.Unmarshal(v, &td); err != nil {
			return TransferData{}, fmt.Errorf("failed to parse transfer data json: %w", err)
		}
		return td, nil
	case map[string]any:
		return TransferData{
			Sender:   stringField(v, "sender"),
			Receiver: stringField(v, "receiver"),
			Denom:    stringField(v, "denom"),
			Amount:   stringField(v, "amount"),
			Memo:     stringField(v, "memo"),
		}, nil
	case TransferData:
		return v, nil
	default:
		return TransferData{}, fmt.Errorf("unsupported transfer data type %T", raw)
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
