package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/realtyhub/realtyhub/internal/db"
	"github.com/realtyhub/realtyhub/internal/notify"
)

// Store persists verification documents.
type Store interface {
	Create(ctx context.Context, userID, docType, fileURL string) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	ListByStatus(ctx context.Context, status notify.VerificationStatus, limit int) ([]Document, error)
	// Review sets the final status of a pending document. It returns
	// ErrAlreadyReviewed when the document is no longer pending.
	Review(ctx context.Context, id, reviewerID string, status notify.VerificationStatus, note string) (Document, error)
}

const documentColumns = `id, user_id, doc_type, file_url, status, review_note, reviewed_by, reviewed_at, created_at`

// PGStore is the PostgreSQL Store.
type PGStore struct {
	conn db.DBTX
}

// NewPGStore wraps a pool or transaction.
func NewPGStore(conn db.DBTX) *PGStore {
	return &PGStore{conn: conn}
}

func (s *PGStore) Create(ctx context.Context, userID, docType, fileURL string) (Document, error) {
	pgUser, err := db.ParseUUID(userID)
	if err != nil {
		return Document{}, err
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO verification_documents (user_id, doc_type, file_url)
		VALUES ($1, $2, $3)
		RETURNING `+documentColumns, pgUser, docType, fileURL)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Document, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Document{}, ErrDocumentNotFound
	}
	doc, err := scanDocument(s.conn.QueryRow(ctx, `SELECT `+documentColumns+` FROM verification_documents WHERE id = $1`, pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	return doc, err
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	pgUser, err := db.ParseUUID(userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, `SELECT `+documentColumns+` FROM verification_documents WHERE user_id = $1 ORDER BY created_at DESC`, pgUser)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PGStore) ListByStatus(ctx context.Context, status notify.VerificationStatus, limit int) ([]Document, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+documentColumns+` FROM verification_documents WHERE status = $1 ORDER BY created_at LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PGStore) Review(ctx context.Context, id, reviewerID string, status notify.VerificationStatus, note string) (Document, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Document{}, ErrDocumentNotFound
	}
	pgReviewer, err := db.ParseUUID(reviewerID)
	if err != nil {
		return Document{}, err
	}
	row := s.conn.QueryRow(ctx, `
		UPDATE verification_documents
		SET status = $2, review_note = $3, reviewed_by = $4, reviewed_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+documentColumns, pgID, string(status), db.StringToText(note), pgReviewer)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Document{}, getErr
		}
		return Document{}, ErrAlreadyReviewed
	}
	return doc, err
}

func collectDocuments(rows pgx.Rows) ([]Document, error) {
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) {
		return scanDocument(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return items, nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		id, userID, reviewedBy pgtype.UUID
		status                 string
		note                   pgtype.Text
		reviewedAt, createdAt  pgtype.Timestamptz
		doc                    Document
	)
	if err := row.Scan(&id, &userID, &doc.DocType, &doc.FileURL, &status, &note, &reviewedBy, &reviewedAt, &createdAt); err != nil {
		return Document{}, err
	}
	doc.ID = db.UUIDToString(id)
	doc.UserID = db.UUIDToString(userID)
	doc.Status = notify.VerificationStatus(status)
	doc.ReviewNote = db.TextToString(note)
	doc.ReviewedBy = db.UUIDToString(reviewedBy)
	doc.ReviewedAt = db.TimeFromPg(reviewedAt)
	doc.CreatedAt = db.TimeFromPg(createdAt)
	return doc, nil
}
