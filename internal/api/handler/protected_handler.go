package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProtectedHandler serves the sample data endpoints guarded by the auth and
// RBAC middleware.
type ProtectedHandler struct{}

func NewProtectedHandler() *ProtectedHandler {
	return &ProtectedHandler{}
}

// GetData is reachable by any authenticated user.
//
// @Summary      Protected data
// @Tags         protected
// @Produce      json
// @Success      200  {object}  statusResponse
// @Router       /api/protected/getdata [get]
func (h *ProtectedHandler) GetData(c echo.Context) error {
	return c.JSON(http.StatusOK, succeeded("Data from protected controller"))
}

// GetAdminData is reachable only by users holding the Admin role.
//
// @Summary      Admin-only data
// @Tags         admin
// @Produce      json
// @Success      200  {object}  statusResponse
// @Router       /api/admin/getdata [get]
func (h *ProtectedHandler) GetAdminData(c echo.Context) error {
	return c.JSON(http.StatusOK, succeeded("Data from admin controller"))
}
