package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether a persisted credential is already past its
// expiry. The claim is read without signature verification: the client holds
// no signing key, and the check is only an optimization to fail hydration
// closed instead of booting into a session the backend will reject with the
// first 401. Opaque (non-JWT) tokens carry no local expiry and are treated
// as live.
func TokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
