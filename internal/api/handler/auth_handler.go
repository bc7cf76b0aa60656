package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/panelapi/panel-api/internal/api/metrics"
	"github.com/panelapi/panel-api/internal/core/domain"
	"github.com/panelapi/panel-api/internal/core/ports"
)

// AuthHandler exposes the login, registration, password-change and refresh
// endpoints. Domain failures are reported inside the HTTP 200 status envelope;
// only persistence and transport faults become real HTTP errors.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user and returns access + refresh tokens.
//
// @Summary      Login
// @Tags         authorization
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      503   {object}  map[string]string
// @Router       /api/authorization/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	start := time.Now()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, failedLogin())
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusOK, failedLogin())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrInvalidCredentials):
		// One generic message for both, so the endpoint cannot be used to
		// enumerate usernames.
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return c.JSON(http.StatusOK, failedLogin())
	case err != nil:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.LoginDuration.Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, loginResponse{
		StatusCode:   statusSuccess,
		Message:      "Logged in",
		Name:         result.Name,
		Username:     result.Username,
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiration:   &result.ExpiresAt,
	})
}

func failedLogin() loginResponse {
	return loginResponse{
		StatusCode: statusFailed,
		Message:    "Invalid Username or Password",
		Token:      "",
	}
}

// Registration creates a new user account with the default User role.
//
// @Summary      Register a new user
// @Tags         authorization
// @Accept       json
// @Produce      json
// @Param        body  body      registrationRequest  true  "User registration details"
// @Success      200   {object}  statusResponse
// @Failure      503   {object}  map[string]string
// @Router       /api/authorization/registration [post]
func (h *AuthHandler) Registration(c echo.Context) error {
	var req registrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, failed("Please pass all the required fields"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusOK, failed("Please pass all the required fields"))
	}

	err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Name:     req.Name,
	})
	switch {
	case errors.Is(err, domain.ErrUserExists):
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return c.JSON(http.StatusOK, failed("User already exists"))
	case errors.Is(err, domain.ErrPasswordChange), errors.Is(err, domain.ErrInvalidCredentials):
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusOK, failed("User creation failed"))
	case err != nil:
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, succeeded("Successfully registered"))
}

// ChangePassword performs an authenticated password change.
//
// @Summary      Change password
// @Tags         authorization
// @Accept       json
// @Produce      json
// @Param        body  body      changePasswordRequest  true  "Password change details"
// @Success      200   {object}  statusResponse
// @Failure      503   {object}  map[string]string
// @Router       /api/authorization/changepassword [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, failed("Please pass all the valid fields"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusOK, failed("Please pass all the valid fields"))
	}

	err := h.authService.ChangePassword(c.Request().Context(), req.Username, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.PasswordChangesTotal.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusOK, failed("Invalid username"))
	case errors.Is(err, domain.ErrInvalidCurrentPassword):
		metrics.PasswordChangesTotal.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusOK, failed("Invalid current password"))
	case errors.Is(err, domain.ErrPasswordChange), errors.Is(err, domain.ErrInvalidCredentials):
		metrics.PasswordChangesTotal.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusOK, failed("Failed to change password"))
	case err != nil:
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.PasswordChangesTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, succeeded("Password has changed successfully"))
}

// Refresh exchanges an expired access token plus a live refresh token for a
// new pair, rotating the stored refresh record.
//
// @Summary      Refresh access token
// @Tags         authorization
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Expired access token and refresh token"
// @Success      200   {object}  refreshResponse
// @Failure      503   {object}  map[string]string
// @Router       /api/authorization/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, refreshResponse{StatusCode: statusFailed, Message: "Invalid client request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusOK, refreshResponse{StatusCode: statusFailed, Message: "Invalid client request"})
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.AccessToken, req.RefreshToken)
	switch {
	case errors.Is(err, domain.ErrMalformedToken), errors.Is(err, domain.ErrRefreshTokenInvalid):
		metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusOK, refreshResponse{StatusCode: statusFailed, Message: "Invalid access token or refresh token"})
	case err != nil:
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, refreshResponse{
		StatusCode:   statusSuccess,
		Message:      "Token refreshed",
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Expiration:   &pair.ExpiresAt,
	})
}
