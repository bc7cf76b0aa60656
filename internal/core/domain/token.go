package domain

import "time"

// TokenRecord is the single live refresh-token row for a user. A new login
// overwrites the previous record in place; the design is intentionally not
// multi-device aware.
type TokenRecord struct {
	Username           string    `json:"username"`
	RefreshToken       string    `json:"refresh_token"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry"`
}

// Expired reports whether the record's refresh token is past its validity window.
func (r *TokenRecord) Expired(now time.Time) bool {
	return !r.RefreshTokenExpiry.After(now)
}

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Name         string
	Username     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenPair is the outcome of a refresh exchange: a new access token plus the
// rotated refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
