package ports

import (
	"context"

	"github.com/panelapi/panel-api/internal/core/domain"
)

// TokenRecordStore persists the one-record-per-username refresh-token state.
// Writes take effect immediately; any store error is a persistence failure
// that must abort the enclosing operation.
type TokenRecordStore interface {
	// FindByUsername returns domain.ErrRefreshTokenInvalid when no record exists.
	FindByUsername(ctx context.Context, username string) (*domain.TokenRecord, error)
	Add(ctx context.Context, record *domain.TokenRecord) error
	Update(ctx context.Context, record *domain.TokenRecord) error
}

// RefreshGuard marks refresh tokens consumed by a rotation so the same token
// cannot be exchanged twice, closing the window between two concurrent
// refresh calls racing on one record.
type RefreshGuard interface {
	IsUsed(ctx context.Context, refreshToken string) (bool, error)
	MarkUsed(ctx context.Context, refreshToken string) error
}
