package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/panelapi/panel-api/internal/core/domain"
	"github.com/panelapi/panel-api/internal/core/ports"
)

// AuthService composes credential verification, token issuance and
// refresh-record rotation into the user-facing login, registration,
// password-change and refresh operations.
type AuthService struct {
	identity   ports.IdentityStore
	records    ports.TokenRecordStore
	tokens     ports.TokenService
	guard      ports.RefreshGuard
	refreshTTL time.Duration
	log        zerolog.Logger
}

func NewAuthService(
	identity ports.IdentityStore,
	records ports.TokenRecordStore,
	tokens ports.TokenService,
	guard ports.RefreshGuard,
	refreshTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &AuthService{
		identity:   identity,
		records:    records,
		tokens:     tokens,
		guard:      guard,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// Login verifies the credentials, issues a signed access token and rotates the
// user's refresh record. The refresh upsert is the only durable write and
// happens last: if it fails, the already-minted access token is discarded
// rather than returned without a matching record.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.identity.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.identity.CheckPassword(ctx, username, password); err != nil {
		return nil, err
	}

	roles, err := s.identity.GetRoles(ctx, username)
	if err != nil {
		return nil, err
	}

	access, expiry, err := s.tokens.Issue(NewClaims(user.Username, roles))
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.upsertRefreshRecord(ctx, user.Username, refresh); err != nil {
		return nil, err
	}

	s.log.Info().Str("username", user.Username).Msg("user logged in")

	return &domain.LoginResult{
		Name:         user.Name,
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiry,
	}, nil
}

// upsertRefreshRecord creates or overwrites the single refresh record for a
// username. Overwriting is a rotation: the previous token stops working the
// moment the update lands. Two concurrent logins for one user race
// last-write-wins; the store's unique index keeps exactly one record either way.
func (s *AuthService) upsertRefreshRecord(ctx context.Context, username, refreshToken string) error {
	expiry := time.Now().UTC().Add(s.refreshTTL)

	record, err := s.records.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, domain.ErrRefreshTokenInvalid):
		return s.records.Add(ctx, &domain.TokenRecord{
			Username:           username,
			RefreshToken:       refreshToken,
			RefreshTokenExpiry: expiry,
		})
	case err != nil:
		return err
	}

	record.RefreshToken = refreshToken
	record.RefreshTokenExpiry = expiry
	return s.records.Update(ctx, record)
}

// Register creates a new identity and assigns the default User role, creating
// the role lazily on first use. The Admin role is never assigned here;
// privileged provisioning is out-of-band on purpose.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) error {
	if input.Username == "" || input.Password == "" {
		return domain.ErrInvalidCredentials
	}

	if _, err := s.identity.FindByUsername(ctx, input.Username); err == nil {
		return domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:  input.Username,
		Name:      input.Name,
		Email:     input.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.identity.Create(ctx, user, input.Password)
	if err != nil {
		return err
	}

	exists, err := s.identity.RoleExists(ctx, domain.RoleUser)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.identity.CreateRole(ctx, domain.RoleUser); err != nil {
			return err
		}
	}
	if err := s.identity.AddToRole(ctx, created.Username, domain.RoleUser); err != nil {
		return err
	}

	s.log.Info().Str("username", created.Username).Msg("user registered")
	return nil
}

// ChangePassword verifies the current password before any mutation; every
// failure path leaves the stored hash untouched.
func (s *AuthService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if username == "" || currentPassword == "" || newPassword == "" {
		return domain.ErrInvalidCredentials
	}

	if _, err := s.identity.FindByUsername(ctx, username); err != nil {
		return err
	}

	if err := s.identity.CheckPassword(ctx, username, currentPassword); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return domain.ErrInvalidCurrentPassword
		}
		return err
	}

	if err := s.identity.ChangePassword(ctx, username, currentPassword, newPassword); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Msg("password changed")
	return nil
}

// Refresh exchanges an expired-but-authentic access token plus the live
// refresh token for a fresh pair. The presented refresh token must match the
// stored record, be within its window, and not have been consumed by an
// earlier rotation. Roles are taken from the expired token's claims.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, domain.ErrMalformedToken
	}

	claims, err := s.tokens.ParseExpired(accessToken)
	if err != nil {
		return nil, err
	}

	record, err := s.records.FindByUsername(ctx, claims.Username)
	if err != nil {
		return nil, err
	}
	if record.RefreshToken != refreshToken || record.Expired(time.Now().UTC()) {
		return nil, domain.ErrRefreshTokenInvalid
	}

	used, err := s.guard.IsUsed(ctx, refreshToken)
	if err != nil {
		s.log.Warn().Err(err).Str("username", claims.Username).Msg("refresh guard check failed, relying on stored record")
	} else if used {
		return nil, domain.ErrRefreshTokenInvalid
	}

	access, expiry, err := s.tokens.Issue(NewClaims(claims.Username, claims.Roles))
	if err != nil {
		return nil, err
	}

	newRefresh, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	record.RefreshToken = newRefresh
	record.RefreshTokenExpiry = time.Now().UTC().Add(s.refreshTTL)
	if err := s.records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("rotate refresh record: %w", err)
	}

	if err := s.guard.MarkUsed(ctx, refreshToken); err != nil {
		s.log.Warn().Err(err).Str("username", claims.Username).Msg("failed to mark refresh token used")
	}

	s.log.Info().Str("username", claims.Username).Msg("access token refreshed")

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresAt:    expiry,
	}, nil
}
