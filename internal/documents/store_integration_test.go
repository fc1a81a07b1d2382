package documents_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtyhub/realtyhub/internal/documents"
	"github.com/realtyhub/realtyhub/internal/notify"
	"github.com/realtyhub/realtyhub/internal/users"
)

// setupDocumentsIntegrationTest needs TEST_POSTGRES_DSN pointing at a migrated database.
func setupDocumentsIntegrationTest(t *testing.T) (*pgxpool.Pool, *slog.Logger) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool, slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDocumentsIntegrationReviewFlow(t *testing.T) {
	pool, log := setupDocumentsIntegrationTest(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	userService := users.NewService(log, pool)
	admin, err := userService.Create(ctx, users.CreateUserRequest{Username: "reviewer-" + suffix, Password: "pw", Role: users.RoleAdmin})
	require.NoError(t, err)
	owner, err := userService.Create(ctx, users.CreateUserRequest{Username: "owner-" + suffix, Password: "pw"})
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(log, userService, notify.Options{})
	ownerSink := notify.NewStreamSink(8)
	defer dispatcher.RegisterVerificationStatusConnection(owner.ID, ownerSink)()
	adminSink := notify.NewStreamSink(8)
	defer dispatcher.RegisterAdminConnection(admin.ID, adminSink)()

	svc := documents.NewService(log, documents.NewPGStore(pool), dispatcher)
	doc, err := svc.Submit(ctx, owner.ID, documents.SubmitRequest{DocType: "passport", FileURL: "s3://kyc/" + suffix})
	require.NoError(t, err)
	assert.Equal(t, notify.StatusPending, doc.Status)
	assert.Len(t, adminSink.Frames(), 1)

	reviewed, err := svc.Review(ctx, admin.ID, doc.ID, documents.ReviewRequest{Status: "APPROVED", Note: "ok"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, reviewed.ReviewedBy)
	assert.False(t, reviewed.ReviewedAt.IsZero())
	assert.Len(t, ownerSink.Frames(), 2)

	_, err = svc.Review(ctx, admin.ID, doc.ID, documents.ReviewRequest{Status: "REJECTED"})
	assert.ErrorIs(t, err, documents.ErrAlreadyReviewed)

	_, err = svc.Review(ctx, admin.ID, uuid.NewString(), documents.ReviewRequest{Status: "REJECTED"})
	assert.ErrorIs(t, err, documents.ErrDocumentNotFound)

	mine, err := svc.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, notify.StatusApproved, mine[0].Status)
}
