package credential

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// expiryOf reads the exp claim of a JWT without verifying its signature.
// The signature belongs to the remote service; the client only needs the
// expiry to bound how long it keeps the token around.
func expiryOf(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// retentionFor returns how long a pair should be kept. Zero means no limit.
func retentionFor(pair Pair, now time.Time) time.Duration {
	exp, ok := expiryOf(pair.Refresh)
	if !ok {
		exp, ok = expiryOf(pair.Access)
	}
	if !ok {
		return 0
	}
	ttl := exp.Sub(now)
	if ttl <= 0 {
		// already expired; keep briefly so the remote service gets to reject it
		return time.Second
	}
	return ttl
}
