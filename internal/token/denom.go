package token

import "strings"

// ParseBaseDenom normalizes a denomination to its base key (C2).
//
// Rules, in order: if the input contains "/", the last segment is the
// base (this also strips an "ibc/<hash>" trace down to nothing useful on
// its own, so callers that need the origin denom resolve it through the
// metadata registry instead); otherwise the whole input is already the
// base. ParseBaseDenom is idempotent: ParseBaseDenom(ParseBaseDenom(d))
// always equals ParseBaseDenom(d).
func ParseBaseDenom(denom string) string {
	if idx := strings.LastIndex(denom, "/"); idx != -1 {
		return denom[idx+1:]
	}
	return denom
}
