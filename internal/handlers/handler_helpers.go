// Package handlers provides the HTTP API of the marketplace notification server.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/realtyhub/realtyhub/internal/auth"
	"github.com/realtyhub/realtyhub/internal/logger"
)

// AdminChecker reports whether a user currently holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin returns the caller's id when the caller is an admin. The role
// is read from the directory, not the token, so demotions apply immediately.
func RequireAdmin(c echo.Context, checker AdminChecker) (string, error) {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return "", err
	}
	if checker == nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "user service not configured")
	}
	isAdmin, err := checker.IsAdmin(c.Request().Context(), userID)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !isAdmin {
		return "", echo.NewHTTPError(http.StatusForbidden, "admin role required")
	}
	return userID, nil
}

// requestLogger returns the request-scoped logger tagged with the handler name.
func requestLogger(c echo.Context, handler string) *slog.Logger {
	return logger.FromContext(c.Request().Context()).With(slog.String("handler", handler))
}
