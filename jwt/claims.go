package jwt

import "time"

// Claims defines a public type used by authsess APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	// Registered claims (RFC 7519 §4.1). Zero values mean the claim was
	// absent from the payload.
	Subject   string
	Issuer    string
	Audience  string
	ID        string
	ExpiresAt time.Time
	IssuedAt  time.Time
	NotBefore time.Time

	// Custom holds every non-registered claim, stringified. Numbers are
	// rendered without exponent notation, booleans as "true"/"false",
	// and nested objects or arrays as compact JSON.
	Custom map[string]string
}

// Expired reports whether the token is expired at the given instant.
// A token without an exp claim never expires. The boundary is inclusive:
// a token is expired at exactly its expiry instant.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// NotYetValid reports whether the token's nbf window has not opened at the
// given instant. A token without an nbf claim is immediately valid.
func (c *Claims) NotYetValid(now time.Time) bool {
	if c == nil || c.NotBefore.IsZero() {
		return false
	}
	return now.Before(c.NotBefore)
}

// TemporallyValid reports whether the token is inside its validity window
// at the given instant: not expired and not before nbf.
func (c *Claims) TemporallyValid(now time.Time) bool {
	return !c.Expired(now) && !c.NotYetValid(now)
}
