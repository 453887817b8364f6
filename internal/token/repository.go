package token

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/logging"
)

// PriceFetcher is the narrow surface the token repository needs from the
// external price provider (C3), kept as an interface here so this package
// never imports priceprovider directly.
type PriceFetcher interface {
	GetPrice(ctx context.Context, id string) (float64, error)
	GetPrices(ctx context.Context, ids []string) (map[string]float64, error)
}

// Service composes the metadata registry with price lookups and exposes
// the conversion/formatting operations of C4. It caches resolved Token
// values by base denom; reads are far more frequent than writes, matching
// the RWMutex-guarded cache in the pack's tokens usecase.
type Service struct {
	metadata *MetadataRegistry
	prices   PriceFetcher

	mu    sync.RWMutex
	cache map[string]Token

	log zerolog.Logger
}

// NewService creates a Service backed by the given metadata registry and
// price fetcher. prices may be nil, in which case tokens never carry a price.
func NewService(metadata *MetadataRegistry, prices PriceFetcher) *Service {
	return &Service{
		metadata: metadata,
		prices:   prices,
		cache:    make(map[string]Token),
		log:      logging.New("token-service"),
	}
}

// GetToken resolves denom to its base form, serves a cached Token if
// present, and otherwise builds one from metadata and kicks off an
// asynchronous price fetch (if the token has a coingeckoId) that updates
// the cache once it resolves. The returned Token never blocks on network I/O.
func (s *Service) GetToken(ctx context.Context, denom string) Token {
	base := ParseBaseDenom(denom)

	s.mu.RLock()
	cached, ok := s.cache[base]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	meta := s.metadata.Lookup(denom)
	tok := Token{Metadata: meta}

	// Stablecoins resolve to 1.0 immediately; no need to wait on a network
	// round trip, and this keeps the "stable tokens always price at 1.0"
	// invariant true even if the async price fetch below never completes.
	if meta.IsStable {
		tok = tok.WithPrice(Price{Price: 1.0, LastUpdated: time.Now(), Source: PriceSourceHardcoded})
	}

	s.mu.Lock()
	s.cache[base] = tok
	s.mu.Unlock()

	if s.prices != nil && meta.CoingeckoID != "" && !meta.IsStable {
		go s.fetchPriceAsync(base, meta)
	}

	return tok
}

func (s *Service) fetchPriceAsync(base string, meta Metadata) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	price, err := s.prices.GetPrice(ctx, meta.CoingeckoID)
	if err != nil {
		s.log.Warn().Err(err).Str("denom", base).Msg("async price fetch failed")
		return
	}

	source := PriceSourceExternal
	if meta.IsStable {
		source = PriceSourceHardcoded
	}

	s.mu.Lock()
	existing, ok := s.cache[base]
	if !ok {
		existing = Token{Metadata: meta}
	}
	s.cache[base] = existing.WithPrice(Price{Price: price, LastUpdated: time.Now(), Source: source})
	s.mu.Unlock()
}

// RefreshStalePrices collects every cached token with a coingeckoId whose
// price is missing or older than ttl, issues a single batched price
// request for all of them, and updates the cache (C4).
func (s *Service) RefreshStalePrices(ctx context.Context, ttl time.Duration) error {
	if s.prices == nil {
		return nil
	}

	s.mu.RLock()
	type staleEntry struct {
		base string
		meta Metadata
	}
	var stale []staleEntry
	for base, tok := range s.cache {
		if tok.Metadata.CoingeckoID == "" {
			continue
		}
		if tok.Price == nil || tok.Price.IsStale(ttl) {
			stale = append(stale, staleEntry{base: base, meta: tok.Metadata})
		}
	}
	s.mu.RUnlock()

	if len(stale) == 0 {
		return nil
	}

	ids := make([]string, len(stale))
	for i, e := range stale {
		ids[i] = e.meta.CoingeckoID
	}

	prices, err := s.prices.GetPrices(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to refresh stale prices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range stale {
		price, ok := prices[e.meta.CoingeckoID]
		if !ok {
			continue
		}
		source := PriceSourceExternal
		if e.meta.IsStable {
			source = PriceSourceHardcoded
		}
		existing := s.cache[e.base]
		s.cache[e.base] = existing.WithPrice(Price{Price: price, LastUpdated: time.Now(), Source: source})
	}
	return nil
}

// RegisterMapping forwards to the underlying metadata registry and evicts
// any cached Token for that base denom so the next GetToken rebuilds it.
func (s *Service) RegisterMapping(baseDenom string, m Metadata) {
	s.metadata.RegisterMapping(baseDenom, m)
	s.mu.Lock()
	delete(s.cache, baseDenom)
	s.mu.Unlock()
}

// UsdBreakdownItem is one line of a ConvertBatchToUsd result.
type UsdBreakdownItem struct {
	Denom      string
	Symbol     string
	Amount     string
	UsdValue   decimal.Decimal
	HasPrice   bool
	Percentage decimal.Decimal
}

// UsdConversion is the result of ConvertBatchToUsd.
type UsdConversion struct {
	Total      decimal.Decimal
	Breakdown  []UsdBreakdownItem
}

// ConvertToUsd converts a base-unit amount of denom to USD, using exact
// decimal arithmetic derived from big.Int scaling (never float).
func (s *Service) ConvertToUsd(ctx context.Context, amountBaseUnits, denom string) (decimal.Decimal, bool, error) {
	tok := s.GetToken(ctx, denom)
	scaled, err := scaledDecimal(amountBaseUnits, tok.Metadata.Decimals)
	if err != nil {
		return decimal.Zero, false, err
	}
	if !tok.HasPrice() {
		return decimal.Zero, false, nil
	}
	usd := scaled.Mul(decimal.NewFromFloat(tok.Price.Price))
	return usd, true, nil
}

// ConvertBatchToUsd converts several (denom, amount) pairs to USD and
// returns the total plus a per-denom breakdown ordered by usdValue
// descending with each item's percentage share of the total (C4).
func (s *Service) ConvertBatchToUsd(ctx context.Context, items map[string]string) UsdConversion {
	breakdown := make([]UsdBreakdownItem, 0, len(items))
	total := decimal.Zero

	for denom, amount := range items {
		tok := s.GetToken(ctx, denom)
		scaled, err := scaledDecimal(amount, tok.Metadata.Decimals)
		if err != nil {
			s.log.Warn().Err(err).Str("denom", denom).Msg("skipping unparseable amount in batch conversion")
			continue
		}

		item := UsdBreakdownItem{
			Denom:  denom,
			Symbol: tok.Metadata.Symbol,
			Amount: amount,
		}
		if tok.HasPrice() {
			item.UsdValue = scaled.Mul(decimal.NewFromFloat(tok.Price.Price))
			item.HasPrice = true
			total = total.Add(item.UsdValue)
		}
		breakdown = append(breakdown, item)
	}

	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].UsdValue.GreaterThan(breakdown[j].UsdValue)
	})

	if !total.IsZero() {
		for i := range breakdown {
			breakdown[i].Percentage = breakdown[i].UsdValue.Div(total).Mul(decimal.NewFromInt(100))
		}
	}

	return UsdConversion{Total: total, Breakdown: breakdown}
}

// scaledDecimal converts a base-unit integer-string amount to a
// decimal.Decimal scaled by 10^-decimals. decimal.NewFromBigInt builds the
// value directly from the big.Int coefficient and an exponent, so this
// never routes through float64.
func scaledDecimal(amount string, decimals int) (decimal.Decimal, error) {
	neg := strings.HasPrefix(amount, "-")
	trimmed := strings.TrimPrefix(amount, "-")
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid integer amount: %q", amount)
	}
	d := decimal.NewFromBigInt(value, -int32(decimals))
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatAmount scales amountBaseUnits by decimals and renders it for
// display: thousands are grouped with commas, trailing fractional zeros
// are collapsed, values under 0.01 (but non-zero) use scientific notation
// with 2 significant digits, and zero renders as "0" (C4).
func (s *Service) FormatAmount(amountBaseUnits string, decimals int) (string, error) {
	d, err := scaledDecimal(amountBaseUnits, decimals)
	if err != nil {
		return "", err
	}
	if d.IsZero() {
		return "0", nil
	}

	abs := d.Abs()
	threshold := decimal.RequireFromString("0.01")
	if abs.LessThan(threshold) {
		return formatScientific(d), nil
	}

	plain := d.StringFixed(int32(decimals))
	plain = trimTrailingFractionalZeros(plain)
	return groupThousands(plain), nil
}

// FormatUsd renders a USD decimal with a "$" prefix and 2 decimal places.
func (s *Service) FormatUsd(amount decimal.Decimal) string {
	return "$" + groupThousands(amount.StringFixed(2))
}

func trimTrailingFractionalZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// groupThousands inserts comma separators into the integer portion of a
// plain decimal string, leaving any fractional part untouched.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart := s
	fracPart := ""
	if idx := strings.Index(s, "."); idx != -1 {
		intPart = s[:idx]
		fracPart = s[idx:]
	}

	var grouped strings.Builder
	n := len(intPart)
	for i, digit := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	result := grouped.String() + fracPart
	if neg {
		result = "-" + result
	}
	return result
}

// formatScientific renders a non-zero decimal under 0.01 in magnitude
// using scientific notation with 2 significant digits, e.g. "1.2e-6".
// It works entirely off the decimal's integer coefficient and exponent,
// never converting through float64.
func formatScientific(d decimal.Decimal) string {
	neg := d.IsNegative()
	abs := d.Abs()

	coeff := abs.Coefficient()
	exp := int(abs.Exponent())
	digits := strings.TrimLeft(coeff.String(), "0")
	if digits == "" {
		return "0"
	}

	// value = digits * 10^exp; the most significant digit sits at
	// position len(digits)-1+exp relative to the decimal point.
	firstDigitExp := len(digits) - 1 + exp

	mantissaDigits := digits
	if len(mantissaDigits) > 2 {
		mantissaDigits = roundToTwoSigFigs(mantissaDigits, &firstDigitExp)
	}
	for len(mantissaDigits) < 2 {
		mantissaDigits += "0"
	}

	mantissa := mantissaDigits[:1] + "." + mantissaDigits[1:]
	mantissa = trimTrailingFractionalZeros(mantissa)

	out := mantissa + "e" + strconv.Itoa(firstDigitExp)
	if neg {
		out = "-" + out
	}
	return out
}

// roundToTwoSigFigs rounds a run of decimal digits to its first two
// significant digits, adjusting firstDigitExp if rounding carries a digit
// (e.g. "995" rounds to "10", bumping the exponent by one).
func roundToTwoSigFigs(digits string, firstDigitExp *int) string {
	keep := digits[:2]
	roundUp := digits[2] >= '5'
	if !roundUp {
		return keep
	}
	n := new(big.Int)
	n.SetString(keep, 10)
	n.Add(n, big.NewInt(1))
	rounded := n.String()
	if len(rounded) > 2 {
		*firstDigitExp++
		rounded = rounded[:2]
	}
	return rounded
}
