package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshGuard records refresh tokens already consumed by a rotation so the
// same token cannot be exchanged a second time. Only a hash of the token is
// kept; keys expire with the refresh window since a token older than that is
// rejected by the record check anyway.
type RefreshGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRefreshGuard(client *redis.Client, ttl time.Duration) *RefreshGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RefreshGuard{client: client, ttl: ttl}
}

// IsUsed reports whether the token has already been exchanged.
func (g *RefreshGuard) IsUsed(ctx context.Context, refreshToken string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(refreshToken)).Result()
	if err != nil {
		return false, fmt.Errorf("refresh guard check: %w", err)
	}
	return n > 0, nil
}

// MarkUsed records the token as exchanged (expires after the refresh window).
func (g *RefreshGuard) MarkUsed(ctx context.Context, refreshToken string) error {
	return g.client.Set(ctx, g.key(refreshToken), "1", g.ttl).Err()
}

func (g *RefreshGuard) key(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return "refresh_used:" + hex.EncodeToString(sum[:])
}
