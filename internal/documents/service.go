// Package documents implements identity-verification document submission
// and admin review, publishing the outcome over the notification channels.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/realtyhub/realtyhub/internal/notify"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrAlreadyReviewed  = errors.New("document already reviewed")
	ErrInvalidReview    = errors.New("review status must be APPROVED or REJECTED")
	ErrInvalidDocument  = errors.New("doc_type and file_url are required")
)

const defaultListLimit = 100

type Service struct {
	store    Store
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewService(log *slog.Logger, store Store, notifier notify.Notifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   log.With(slog.String("service", "documents")),
	}
}

// Submit stores a new pending document, tells the owner it is pending and
// alerts every admin.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (Document, error) {
	docType := strings.TrimSpace(req.DocType)
	fileURL := strings.TrimSpace(req.FileURL)
	if docType == "" || fileURL == "" {
		return Document{}, ErrInvalidDocument
	}
	doc, err := s.store.Create(ctx, userID, docType, fileURL)
	if err != nil {
		return Document{}, err
	}
	s.logger.Info("document submitted", slog.String("document_id", doc.ID), slog.String("user_id", userID))

	if s.notifier != nil {
		s.notifier.BroadcastVerificationStatus(ctx, userID, notify.StatusPending, "Your document was received and is awaiting review.")
		s.notifier.BroadcastToAllAdmins(ctx, notify.Event{
			Type:    EventDocumentSubmitted,
			Title:   "New verification document",
			Message: fmt.Sprintf("A %s document is waiting for review.", docType),
			Data: map[string]any{
				"documentId": doc.ID,
				"userId":     userID,
				"docType":    docType,
			},
		})
	}
	return doc, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Document, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListByStatus lists documents for the admin queue; empty status means PENDING.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]Document, error) {
	st := notify.StatusPending
	if strings.TrimSpace(status) != "" {
		parsed, err := notify.ParseVerificationStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	return s.store.ListByStatus(ctx, st, defaultListLimit)
}

// Review records the admin decision and notifies the owner. The review is
// committed regardless of whether the owner is connected.
func (s *Service) Review(ctx context.Context, reviewerID, documentID string, req ReviewRequest) (Document, error) {
	status, err := notify.ParseVerificationStatus(req.Status)
	if err != nil || status == notify.StatusPending {
		return Document{}, ErrInvalidReview
	}
	note := strings.TrimSpace(req.Note)
	doc, err := s.store.Review(ctx, documentID, reviewerID, status, note)
	if err != nil {
		return Document{}, err
	}
	s.logger.Info("document reviewed",
		slog.String("document_id", doc.ID),
		slog.String("status", string(status)),
		slog.String("reviewer_id", reviewerID),
	)
	if s.notifier != nil {
		s.notifier.BroadcastVerificationStatus(ctx, doc.UserID, status, reviewMessage(doc.DocType, status, note))
	}
	return doc, nil
}

func reviewMessage(docType string, status notify.VerificationStatus, note string) string {
	msg := fmt.Sprintf("Your %s document was %s.", docType, strings.ToLower(string(status)))
	if note != "" {
		msg += " " + note
	}
	return msg
}
