package ports

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access-token payload: the stable name claim, the per-issuance
// token identifier (jti), and one entry per assigned role, in store order.
type Claims struct {
	Username string   `json:"name"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService signs and validates access tokens and generates the opaque
// refresh tokens paired with them.
type TokenService interface {
	// Issue signs a time-bounded access token from the claim set and returns
	// the token string with its materialized expiry.
	Issue(claims *Claims) (string, time.Time, error)
	// ParseExpired validates signature, algorithm, issuer and audience but
	// deliberately not the validity window, so an expired token can still be
	// exchanged during refresh. Returns domain.ErrMalformedToken on any
	// cryptographic or structural failure.
	ParseExpired(token string) (*Claims, error)
	// NewRefreshToken produces a cryptographically random opaque string.
	NewRefreshToken() (string, error)
}
