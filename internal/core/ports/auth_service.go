package ports

import (
	"context"

	"github.com/panelapi/panel-api/internal/core/domain"
)

// RegisterInput carries the fields required to create a new identity.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Name     string
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.LoginResult, error)
	Register(ctx context.Context, input RegisterInput) error
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
	Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.TokenPair, error)
}
