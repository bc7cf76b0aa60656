package handler

import "time"

// Status codes used in the uniform outcome envelope.
const (
	statusFailed  = 0
	statusSuccess = 1
)

// statusResponse is the uniform {status_code, message} envelope every
// mutating operation returns, on success and on domain failure alike.
type statusResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func failed(message string) statusResponse {
	return statusResponse{StatusCode: statusFailed, Message: message}
}

func succeeded(message string) statusResponse {
	return statusResponse{StatusCode: statusSuccess, Message: message}
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	StatusCode   int        `json:"status_code"`
	Message      string     `json:"message"`
	Name         string     `json:"name,omitempty"`
	Username     string     `json:"username,omitempty"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	Expiration   *time.Time `json:"expiration,omitempty"`
}

type registrationRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required"`
}

type changePasswordRequest struct {
	Username        string `json:"username"         validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"  validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	StatusCode   int        `json:"status_code"`
	Message      string     `json:"message"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	Expiration   *time.Time `json:"expiration,omitempty"`
}
