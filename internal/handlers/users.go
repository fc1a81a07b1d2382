package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/realtyhub/realtyhub/internal/auth"
	"github.com/realtyhub/realtyhub/internal/users"
)

// UsersHandler serves the current user and admin role management.
type UsersHandler struct {
	service *users.Service
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(service *users.Service) *UsersHandler {
	return &UsersHandler{service: service}
}

// Register mounts the user routes on the Echo instance.
func (h *UsersHandler) Register(e *echo.Echo) {
	e.GET("/users/me", h.GetMe)
	e.PUT("/admin/users/:id/role", h.UpdateRole)
}

// GetMe godoc
// @Summary Get current user
// @Description Get the profile of the authenticated user
// @Tags users
// @Success 200 {object} users.User
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/me [get].
func (h *UsersHandler) GetMe(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateRole godoc
// @Summary Update user role (admin only)
// @Description Promote or demote a user. The next admin broadcast sees the new membership.
// @Tags users
// @Param id path string true "User ID"
// @Param payload body users.UpdateRoleRequest true "Role payload"
// @Success 200 {object} users.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/users/{id}/role [put].
func (h *UsersHandler) UpdateRole(c echo.Context) error {
	adminID, err := RequireAdmin(c, h.service)
	if err != nil {
		return err
	}
	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	var req users.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.UpdateRole(c.Request().Context(), targetID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidRole):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, users.ErrUserNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	requestLogger(c, "users").Info("role updated",
		slog.String("admin_id", adminID),
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return c.JSON(http.StatusOK, user)
}
