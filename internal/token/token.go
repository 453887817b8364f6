package token

import "time"

// PriceSource records where a Token's price came from.
type PriceSource string

const (
	PriceSourceExternal  PriceSource = "external"
	PriceSourceHardcoded PriceSource = "hardcoded"
	PriceSourceFallback  PriceSource = "fallback"
)

// Price is the optional price half of a Token.
type Price struct {
	Price       float64
	LastUpdated time.Time
	Source      PriceSource
}

// IsStale reports whether the price is older than ttl.
func (p Price) IsStale(ttl time.Duration) bool {
	if p.LastUpdated.IsZero() {
		return true
	}
	return time.Since(p.LastUpdated) > ttl
}

// Token is an immutable value object combining Metadata with an optional
// Price (spec.md section 3). Every "update" operation below returns a new
// Token rather than mutating the receiver, so callers already holding an
// older Token never observe a change out from under them; a shared cache
// swaps its stored reference atomically instead of mutating in place.
type Token struct {
	Metadata Metadata
	Price    *Price
}

// WithMetadata returns a new Token with updated metadata and the same price.
func (t Token) WithMetadata(m Metadata) Token {
	return Token{Metadata: m, Price: t.Price}
}

// WithPrice returns a new Token with an updated price and the same metadata.
func (t Token) WithPrice(p Price) Token {
	return Token{Metadata: t.Metadata, Price: &p}
}

// HasPrice reports whether the token carries pricing information.
func (t Token) HasPrice() bool {
	return t.Price != nil
}
