package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/panelapi/panel-api/internal/core/domain"
	"github.com/panelapi/panel-api/internal/core/ports"
)

// stubIdentityStore keeps users and plaintext passwords in memory. Hashing is
// the store's concern, so the stub simply compares plaintext.
type stubIdentityStore struct {
	users     map[string]*domain.User
	passwords map[string]string
	roleNames map[string]bool
}

func newStubIdentityStore() *stubIdentityStore {
	return &stubIdentityStore{
		users:     make(map[string]*domain.User),
		passwords: make(map[string]string),
		roleNames: make(map[string]bool),
	}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

func (s *stubIdentityStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *stubIdentityStore) CheckPassword(_ context.Context, username, password string) error {
	stored, ok := s.passwords[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	if stored != password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (s *stubIdentityStore) Create(_ context.Context, user *domain.User, password string) (*domain.User, error) {
	if _, exists := s.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	u := cloneUser(user)
	u.ID = user.Username
	s.users[u.Username] = u
	s.passwords[u.Username] = password
	return cloneUser(u), nil
}

func (s *stubIdentityStore) ChangePassword(_ context.Context, username, currentPassword, newPassword string) error {
	if s.passwords[username] != currentPassword {
		return domain.ErrInvalidCurrentPassword
	}
	if len(newPassword) < 6 {
		return domain.ErrPasswordChange
	}
	s.passwords[username] = newPassword
	return nil
}

func (s *stubIdentityStore) GetRoles(_ context.Context, username string) ([]string, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return append([]string(nil), u.Roles...), nil
}

func (s *stubIdentityStore) AddToRole(_ context.Context, username, role string) error {
	u, ok := s.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (s *stubIdentityStore) RoleExists(_ context.Context, role string) (bool, error) {
	return s.roleNames[role], nil
}

func (s *stubIdentityStore) CreateRole(_ context.Context, role string) error {
	s.roleNames[role] = true
	return nil
}

// stubTokenRecordStore holds at most one record per username and can be told
// to fail writes.
type stubTokenRecordStore struct {
	records    map[string]*domain.TokenRecord
	failWrites bool
}

func newStubTokenRecordStore() *stubTokenRecordStore {
	return &stubTokenRecordStore{records: make(map[string]*domain.TokenRecord)}
}

func (s *stubTokenRecordStore) FindByUsername(_ context.Context, username string) (*domain.TokenRecord, error) {
	r, ok := s.records[username]
	if !ok {
		return nil, domain.ErrRefreshTokenInvalid
	}
	clone := *r
	return &clone, nil
}

func (s *stubTokenRecordStore) Add(_ context.Context, record *domain.TokenRecord) error {
	if s.failWrites {
		return domain.ErrPersistence
	}
	clone := *record
	s.records[record.Username] = &clone
	return nil
}

func (s *stubTokenRecordStore) Update(_ context.Context, record *domain.TokenRecord) error {
	if s.failWrites {
		return domain.ErrPersistence
	}
	clone := *record
	s.records[record.Username] = &clone
	return nil
}

type stubRefreshGuard struct {
	used map[string]bool
	err  error
}

func newStubRefreshGuard() *stubRefreshGuard {
	return &stubRefreshGuard{used: make(map[string]bool)}
}

func (g *stubRefreshGuard) IsUsed(_ context.Context, token string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.used[token], nil
}

func (g *stubRefreshGuard) MarkUsed(_ context.Context, token string) error {
	if g.err != nil {
		return g.err
	}
	g.used[token] = true
	return nil
}

type authFixture struct {
	identity *stubIdentityStore
	records  *stubTokenRecordStore
	guard    *stubRefreshGuard
	tokens   *TokenService
	svc      *AuthService
}

func newAuthFixture(t *testing.T, accessTTL time.Duration) *authFixture {
	t.Helper()
	identity := newStubIdentityStore()
	records := newStubTokenRecordStore()
	guard := newStubRefreshGuard()
	tokens := newTestTokenService(accessTTL)
	svc := NewAuthService(identity, records, tokens, guard, 24*time.Hour, zerolog.Nop())
	return &authFixture{identity: identity, records: records, guard: guard, tokens: tokens, svc: svc}
}

func (f *authFixture) register(t *testing.T, username, password string) {
	t.Helper()
	err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: username,
		Password: password,
		Email:    username + "@example.com",
		Name:     username,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	result, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", result)
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry not in the future: %v", result.ExpiresAt)
	}
	if result.Username != "alice" {
		t.Fatalf("unexpected username: %q", result.Username)
	}

	claims, err := f.tokens.ParseExpired(result.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Username != "alice" {
		t.Fatalf("token names wrong user: %q", claims.Username)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != domain.RoleUser {
		t.Fatalf("token carries wrong roles: %v", claims.Roles)
	}

	record, err := f.records.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("no refresh record after login: %v", err)
	}
	if record.RefreshToken != result.RefreshToken {
		t.Fatalf("stored refresh token differs from returned one")
	}
	if record.Expired(time.Now()) {
		t.Fatalf("fresh record already expired: %v", record.RefreshTokenExpiry)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	if _, err := f.svc.Login(context.Background(), "alice", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(f.records.records) != 0 {
		t.Fatalf("failed login left a refresh record behind")
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, time.Hour)

	if _, err := f.svc.Login(context.Background(), "ghost", "pass"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	f := newAuthFixture(t, time.Hour)

	if _, err := f.svc.Login(context.Background(), "", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_RotatesRefreshRecord(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	first, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Fatalf("two logins produced the same refresh token")
	}

	record, err := f.records.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("record lookup: %v", err)
	}
	if record.RefreshToken != second.RefreshToken {
		t.Fatalf("store does not hold the most recent refresh token")
	}
	if len(f.records.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(f.records.records))
	}
}

func TestAuthService_Login_PersistenceFailureAborts(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")
	f.records.failWrites = true

	result, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if result != nil {
		t.Fatalf("access token returned despite failed refresh-record write")
	}
}

func TestAuthService_Register_AssignsUserRole(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	if !f.identity.roleNames[domain.RoleUser] {
		t.Fatalf("User role was not created lazily")
	}
	user, err := f.identity.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !user.HasRole(domain.RoleUser) {
		t.Fatalf("registered user missing User role: %v", user.Roles)
	}
	if user.HasRole(domain.RoleAdmin) {
		t.Fatalf("registration must never assign Admin")
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "bob", "Secret1!")

	err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: "bob",
		Password: "Other2!",
		Email:    "bob2@example.com",
		Name:     "Bob",
	})
	if err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if f.identity.passwords["bob"] != "Secret1!" {
		t.Fatalf("duplicate registration mutated stored credentials")
	}
}

func TestAuthService_ChangePassword_WrongCurrent(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "carol", "Secret1!")

	err := f.svc.ChangePassword(context.Background(), "carol", "wrong", "NewPass1!")
	if err != domain.ErrInvalidCurrentPassword {
		t.Fatalf("expected ErrInvalidCurrentPassword, got %v", err)
	}

	// Old password must still work.
	if _, err := f.svc.Login(context.Background(), "carol", "Secret1!"); err != nil {
		t.Fatalf("stored hash mutated on failed change: %v", err)
	}
}

func TestAuthService_ChangePassword_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, time.Hour)

	if err := f.svc.ChangePassword(context.Background(), "ghost", "a", "NewPass1!"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_ChangePassword_Success(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "carol", "Secret1!")

	if err := f.svc.ChangePassword(context.Background(), "carol", "Secret1!", "NewPass1!"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "carol", "NewPass1!"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "carol", "Secret1!"); err != domain.ErrInvalidCredentials {
		t.Fatalf("old password still accepted after change")
	}
}

func TestAuthService_Refresh_RotatesPair(t *testing.T) {
	f := newAuthFixture(t, time.Millisecond)
	f.register(t, "alice", "Secret1!")

	login, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Let the access token expire; refresh must still accept it.
	time.Sleep(5 * time.Millisecond)

	pair, err := f.svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == login.AccessToken {
		t.Fatalf("refresh returned the same access token")
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh did not rotate the refresh token")
	}

	claims, err := f.tokens.ParseExpired(pair.AccessToken)
	if err != nil {
		t.Fatalf("refreshed token does not parse: %v", err)
	}
	if claims.Username != "alice" || len(claims.Roles) != 1 || claims.Roles[0] != domain.RoleUser {
		t.Fatalf("refreshed token claims wrong: %+v", claims)
	}

	record, err := f.records.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("record lookup: %v", err)
	}
	if record.RefreshToken != pair.RefreshToken {
		t.Fatalf("store does not hold the rotated refresh token")
	}
	if !f.guard.used[login.RefreshToken] {
		t.Fatalf("consumed refresh token was not marked used")
	}
}

func TestAuthService_Refresh_StaleTokenRejected(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	first, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "alice", "Secret1!"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	// The first login's refresh token was overwritten by the second.
	if _, err := f.svc.Refresh(context.Background(), first.AccessToken, first.RefreshToken); err != domain.ErrRefreshTokenInvalid {
		t.Fatalf("expected ErrRefreshTokenInvalid for stale token, got %v", err)
	}
}

func TestAuthService_Refresh_ReusedTokenRejected(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	login, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken); err != domain.ErrRefreshTokenInvalid {
		t.Fatalf("expected ErrRefreshTokenInvalid on reuse, got %v", err)
	}
}

func TestAuthService_Refresh_MalformedAccessToken(t *testing.T) {
	f := newAuthFixture(t, time.Hour)

	if _, err := f.svc.Refresh(context.Background(), "not-a-token", "whatever"); err != domain.ErrMalformedToken {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestAuthService_Refresh_ExpiredRecordRejected(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	login, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	record := f.records.records["alice"]
	record.RefreshTokenExpiry = time.Now().UTC().Add(-time.Minute)

	if _, err := f.svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken); err != domain.ErrRefreshTokenInvalid {
		t.Fatalf("expected ErrRefreshTokenInvalid for expired record, got %v", err)
	}
}

func TestAuthService_Refresh_GuardFailureFallsBackToRecord(t *testing.T) {
	f := newAuthFixture(t, time.Hour)
	f.register(t, "alice", "Secret1!")

	login, err := f.svc.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	f.guard.err = errors.New("redis down")
	if _, err := f.svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken); err != nil {
		t.Fatalf("guard outage must not block a valid refresh: %v", err)
	}
}
