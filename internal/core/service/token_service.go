package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/panelapi/panel-api/internal/core/domain"
	"github.com/panelapi/panel-api/internal/core/ports"
)

const refreshTokenBytes = 32

// TokenService signs HS256 access tokens and mints opaque refresh tokens.
type TokenService struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

func NewTokenService(secret, issuer, audience string, accessTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &TokenService{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
	}
}

// NewClaims builds the claim set for one issuance: the username claim, a fresh
// jti so two tokens minted in the same instant stay distinguishable, and one
// role entry per assigned role in the order supplied.
func NewClaims(username string, roles []string) *ports.Claims {
	return &ports.Claims{
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: uuid.NewString(),
		},
	}
}

// Issue signs the claim set with the configured key and stamps issuer,
// audience and expiry. The expiry is returned alongside the token so callers
// never re-parse what they just minted.
func (s *TokenService) Issue(claims *ports.Claims) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("issue token: signing key not configured")
	}

	now := time.Now().UTC()
	expiry := now.Add(s.accessTTL)

	claims.Issuer = s.issuer
	claims.Audience = jwt.ClaimStrings{s.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiry)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return signed, expiry, nil
}

// ParseExpired verifies signature, algorithm, issuer and audience but skips
// the validity window, so a cryptographically sound but expired access token
// can still be exchanged during refresh.
func (s *TokenService) ParseExpired(token string) (*ports.Claims, error) {
	claims := &ports.Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !tkn.Valid {
		return nil, domain.ErrMalformedToken
	}

	// WithoutClaimsValidation also disables issuer/audience checks, so they
	// are re-applied by hand.
	if claims.Issuer != s.issuer || !containsAudience(claims.Audience, s.audience) {
		return nil, domain.ErrMalformedToken
	}
	if claims.Username == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrMalformedToken
	}
	return claims, nil
}

// NewRefreshToken returns a random opaque string. The token is not a JWT and
// carries no claims; entropy exhaustion is the only failure mode and is fatal
// for the caller.
func (s *TokenService) NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
