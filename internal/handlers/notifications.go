package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/realtyhub/realtyhub/internal/auth"
	"github.com/realtyhub/realtyhub/internal/notify"
)

const streamLimiterExpiry = 5 * time.Minute

// StreamConfig tunes the SSE endpoints.
type StreamConfig struct {
	notify.StreamOptions
	BufferSize int
	// RateLimit is stream opens per second per caller; zero disables limiting.
	RateLimit float64
	Burst     int
}

// NotificationsHandler serves the three notification streams and the admin
// push and stats endpoints.
type NotificationsHandler struct {
	dispatcher *notify.Dispatcher
	admins     AdminChecker
	cfg        StreamConfig
}

// NotificationRequest is the body for the admin push endpoints.
type NotificationRequest struct {
	Type    string         `json:"type,omitempty"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// KindStats is the stats body for a single channel kind.
type KindStats struct {
	Kind        notify.Kind `json:"kind"`
	Connections int         `json:"connections"`
	Recipients  int         `json:"recipients"`
}

// NewNotificationsHandler creates the stream handler over dispatcher.
func NewNotificationsHandler(dispatcher *notify.Dispatcher, admins AdminChecker, cfg StreamConfig) *NotificationsHandler {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = notify.DefaultBufferSize
	}
	return &NotificationsHandler{
		dispatcher: dispatcher,
		admins:     admins,
		cfg:        cfg,
	}
}

// Register mounts the stream, stats and push routes. Stream opens are rate
// limited when RateLimit is set.
func (h *NotificationsHandler) Register(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.cfg.RateLimit > 0 {
		mw = append(mw, newStreamRateLimiter(h.cfg.RateLimit, h.cfg.Burst))
	}
	e.GET("/notifications/stream", h.StreamUserNotifications, mw...)
	e.GET("/verification/stream", h.StreamVerificationStatus, mw...)
	e.GET("/admin/notifications/stream", h.StreamAdminBroadcast, mw...)

	e.GET("/admin/notifications/stats", h.Stats)
	e.POST("/admin/notifications/users/:id", h.NotifyUser)
	e.POST("/admin/notifications/broadcast", h.NotifyAdmins)
}

// StreamUserNotifications godoc
// @Summary Stream user notifications
// @Description Server-sent events for the caller's notifications. Accepts ?token= for EventSource clients.
// @Tags notifications
// @Produce text/event-stream
// @Success 200 {string} string "data: {json}"
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /notifications/stream [get].
func (h *NotificationsHandler) StreamUserNotifications(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	return h.serveStream(c, notify.KindUserNotification, userID)
}

// StreamVerificationStatus godoc
// @Summary Stream verification status updates
// @Description Server-sent events for the caller's identity-verification results
// @Tags notifications
// @Produce text/event-stream
// @Success 200 {string} string "data: {json}"
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /verification/stream [get].
func (h *NotificationsHandler) StreamVerificationStatus(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	return h.serveStream(c, notify.KindVerificationStatus, userID)
}

// StreamAdminBroadcast godoc
// @Summary Stream admin alerts (admin only)
// @Description The admin role is checked once, at open. A later demotion stops new admin broadcasts from reaching the stream because membership is resolved per broadcast.
// @Tags notifications
// @Produce text/event-stream
// @Success 200 {string} string "data: {json}"
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /admin/notifications/stream [get].
func (h *NotificationsHandler) StreamAdminBroadcast(c echo.Context) error {
	adminID, err := RequireAdmin(c, h.admins)
	if err != nil {
		return err
	}
	return h.serveStream(c, notify.KindAdminBroadcast, adminID)
}

func (h *NotificationsHandler) serveStream(c echo.Context, kind notify.Kind, recipientID string) error {
	if h.dispatcher == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "dispatcher not configured")
	}
	sink := notify.NewStreamSink(h.cfg.BufferSize)
	defer sink.Close()
	deregister, err := h.dispatcher.Register(kind, recipientID, sink)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer deregister()

	log := requestLogger(c, "notifications").With(slog.String("kind", kind.String()), slog.String("user_id", recipientID))
	log.Debug("stream opened")
	err = notify.ServeStream(c.Request().Context(), c.Response(), sink, h.cfg.StreamOptions)
	if errors.Is(err, notify.ErrStreamingUnsupported) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err != nil {
		log.Debug("stream closed", slog.Any("error", err))
		return nil
	}
	log.Debug("stream closed")
	return nil
}

// Stats godoc
// @Summary Connection stats (admin only)
// @Description Per-kind connection and recipient counts, or a single kind with ?kind=
// @Tags notifications
// @Param kind query string false "user_notification, verification_status or admin_broadcast"
// @Success 200 {object} notify.Stats
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/notifications/stats [get].
func (h *NotificationsHandler) Stats(c echo.Context) error {
	if _, err := RequireAdmin(c, h.admins); err != nil {
		return err
	}
	raw := strings.TrimSpace(c.QueryParam("kind"))
	if raw == "" {
		return c.JSON(http.StatusOK, h.dispatcher.Stats())
	}
	kind, err := notify.ParseKind(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	registry, ok := h.dispatcher.Registry(kind)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "channel kind not served")
	}
	return c.JSON(http.StatusOK, KindStats{
		Kind:        registry.Kind(),
		Connections: registry.CountConnections(),
		Recipients:  registry.Recipients(),
	})
}

// NotifyUser godoc
// @Summary Push a notification to a user (admin only)
// @Description Delivers to every open notification stream of the user. Best effort; offline users miss it.
// @Tags notifications
// @Param id path string true "User ID"
// @Param payload body NotificationRequest true "Notification payload"
// @Success 202 "Accepted"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/notifications/users/{id} [post].
func (h *NotificationsHandler) NotifyUser(c echo.Context) error {
	adminID, err := RequireAdmin(c, h.admins)
	if err != nil {
		return err
	}
	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	event, err := bindNotification(c)
	if err != nil {
		return err
	}
	h.dispatcher.BroadcastUserNotification(c.Request().Context(), targetID, event)
	requestLogger(c, "notifications").Info("user notification pushed", slog.String("admin_id", adminID), slog.String("user_id", targetID))
	return c.NoContent(http.StatusAccepted)
}

// NotifyAdmins godoc
// @Summary Push an alert to all admins (admin only)
// @Description Delivers to every admin with an open admin stream
// @Tags notifications
// @Param payload body NotificationRequest true "Notification payload"
// @Success 202 "Accepted"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/notifications/broadcast [post].
func (h *NotificationsHandler) NotifyAdmins(c echo.Context) error {
	adminID, err := RequireAdmin(c, h.admins)
	if err != nil {
		return err
	}
	event, err := bindNotification(c)
	if err != nil {
		return err
	}
	h.dispatcher.BroadcastToAllAdmins(c.Request().Context(), event)
	requestLogger(c, "notifications").Info("admin broadcast pushed", slog.String("admin_id", adminID))
	return c.NoContent(http.StatusAccepted)
}

func bindNotification(c echo.Context) (notify.Event, error) {
	var req NotificationRequest
	if err := c.Bind(&req); err != nil {
		return notify.Event{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eventType := notify.EventType(strings.TrimSpace(req.Type))
	if eventType.IsControl() {
		return notify.Event{}, echo.NewHTTPError(http.StatusBadRequest, "reserved event type")
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Message) == "" {
		return notify.Event{}, echo.NewHTTPError(http.StatusBadRequest, "title or message is required")
	}
	return notify.Event{
		Type:    eventType,
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	}, nil
}

// newStreamRateLimiter limits stream opens per authenticated user, falling
// back to the client IP.
func newStreamRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: streamLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, err := auth.UserIDFromContext(c); err == nil {
				return "user:" + userID, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{Message: "too many stream connections"})
		},
	})
}
