package documents

import (
	"time"

	"github.com/realtyhub/realtyhub/internal/notify"
)

// Document is one identity-verification upload and its review state.
type Document struct {
	ID         string                    `json:"id"`
	UserID     string                    `json:"user_id"`
	DocType    string                    `json:"doc_type"`
	FileURL    string                    `json:"file_url"`
	Status     notify.VerificationStatus `json:"status"`
	ReviewNote string                    `json:"review_note,omitempty"`
	ReviewedBy string                    `json:"reviewed_by,omitempty"`
	ReviewedAt time.Time                 `json:"reviewed_at,omitzero"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// SubmitRequest is the body for POST /documents.
type SubmitRequest struct {
	DocType string `json:"doc_type"`
	FileURL string `json:"file_url"`
}

// ReviewRequest is the body for POST /admin/documents/:id/review.
type ReviewRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// ListResponse wraps document lists.
type ListResponse struct {
	Items []Document `json:"items"`
}

// Event types published by the review workflow.
const (
	EventDocumentSubmitted notify.EventType = "DOCUMENT_SUBMITTED"
)
