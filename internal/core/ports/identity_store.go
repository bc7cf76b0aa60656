package ports

import (
	"context"

	"github.com/panelapi/panel-api/internal/core/domain"
)

// IdentityStore is the persistence capability the auth core needs for users
// and roles. The store owns password hashing: plaintext passwords cross this
// boundary, hashes never leave it.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// CheckPassword verifies a plaintext password against the stored hash.
	// Returns domain.ErrInvalidCredentials on mismatch.
	CheckPassword(ctx context.Context, username, password string) error
	// Create persists a new identity, hashing the supplied password.
	// Returns domain.ErrUserExists when the username is taken.
	Create(ctx context.Context, user *domain.User, password string) (*domain.User, error)
	// ChangePassword re-verifies the current password and replaces the hash.
	// Returns domain.ErrPasswordChange when the new password fails policy.
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error

	GetRoles(ctx context.Context, username string) ([]string, error)
	AddToRole(ctx context.Context, username, role string) error
	RoleExists(ctx context.Context, role string) (bool, error)
	CreateRole(ctx context.Context, role string) error
}
