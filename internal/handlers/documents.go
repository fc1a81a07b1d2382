package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/realtyhub/realtyhub/internal/auth"
	"github.com/realtyhub/realtyhub/internal/documents"
)

// DocumentsHandler serves verification document submission and review.
type DocumentsHandler struct {
	service *documents.Service
	admins  AdminChecker
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(service *documents.Service, admins AdminChecker) *DocumentsHandler {
	return &DocumentsHandler{
		service: service,
		admins:  admins,
	}
}

// Register mounts the document routes on the Echo instance.
func (h *DocumentsHandler) Register(e *echo.Echo) {
	e.POST("/documents", h.Submit)
	e.GET("/documents", h.ListMine)
	e.GET("/admin/documents", h.ListForReview)
	e.POST("/admin/documents/:id/review", h.Review)
}

// Submit godoc
// @Summary Submit a verification document
// @Description Store a pending document, notify the owner and alert every admin
// @Tags documents
// @Param payload body documents.SubmitRequest true "Document payload"
// @Success 201 {object} documents.Document
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents [post].
func (h *DocumentsHandler) Submit(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req documents.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doc, err := h.service.Submit(c.Request().Context(), userID, req)
	if err != nil {
		return documentError(err)
	}
	requestLogger(c, "documents").Info("document submitted", slog.String("document_id", doc.ID))
	return c.JSON(http.StatusCreated, doc)
}

// ListMine godoc
// @Summary List own documents
// @Tags documents
// @Success 200 {object} documents.ListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents [get].
func (h *DocumentsHandler) ListMine(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	items, err := h.service.ListMine(c.Request().Context(), userID)
	if err != nil {
		return documentError(err)
	}
	return c.JSON(http.StatusOK, documents.ListResponse{Items: items})
}

// ListForReview godoc
// @Summary List documents for review (admin only)
// @Description List documents by status, PENDING by default
// @Tags documents
// @Param status query string false "APPROVED, REJECTED or PENDING"
// @Success 200 {object} documents.ListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/documents [get].
func (h *DocumentsHandler) ListForReview(c echo.Context) error {
	if _, err := RequireAdmin(c, h.admins); err != nil {
		return err
	}
	items, err := h.service.ListByStatus(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, documents.ListResponse{Items: items})
}

// Review godoc
// @Summary Review a document (admin only)
// @Description Approve or reject a pending document. The owner is notified on the verification stream whether or not they are connected.
// @Tags documents
// @Param id path string true "Document ID"
// @Param payload body documents.ReviewRequest true "Review payload"
// @Success 200 {object} documents.Document
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/documents/{id}/review [post].
func (h *DocumentsHandler) Review(c echo.Context) error {
	adminID, err := RequireAdmin(c, h.admins)
	if err != nil {
		return err
	}
	documentID := strings.TrimSpace(c.Param("id"))
	if documentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document id is required")
	}
	var req documents.ReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doc, err := h.service.Review(c.Request().Context(), adminID, documentID, req)
	if err != nil {
		return documentError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func documentError(err error) error {
	switch {
	case errors.Is(err, documents.ErrInvalidDocument), errors.Is(err, documents.ErrInvalidReview):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, documents.ErrDocumentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, documents.ErrAlreadyReviewed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
