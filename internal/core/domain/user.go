package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidCurrentPassword = errors.New("invalid current password")
var ErrPasswordChange = errors.New("password change rejected")
var ErrMalformedToken = errors.New("malformed token")
var ErrRefreshTokenInvalid = errors.New("invalid refresh token")
var ErrPersistence = errors.New("persistence failure")

// User models an authenticated identity. Username is the unique,
// case-sensitive key; the password hash is owned by the identity store
// and never serialized into responses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries the given role name.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
