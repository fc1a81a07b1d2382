package users_test

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

	"github.com/realtyhub/realtyhub/internal/users"
)

// setupUsersIntegrationTest needs TEST_POSTGRES_DSN pointing at a migrated database.
func setupUsersIntegrationTest(t *testing.T) *users.Service {
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
	return users.NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), pool)
}

func TestUsersIntegrationRoleDirectory(t *testing.T) {
	svc := setupUsersIntegrationTest(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	admin, err := svc.Create(ctx, users.CreateUserRequest{Username: "admin-" + suffix, Password: "pw", Role: "admin"})
	require.NoError(t, err)
	member, err := svc.Create(ctx, users.CreateUserRequest{Username: "member-" + suffix, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, member.Role)

	_, err = svc.Create(ctx, users.CreateUserRequest{Username: "member-" + suffix, Password: "pw"})
	assert.ErrorIs(t, err, users.ErrUsernameTaken)

	ids, err := svc.ListUsersByRole(ctx, users.RoleAdmin)
	require.NoError(t, err)
	assert.Contains(t, ids, admin.ID)
	assert.NotContains(t, ids, member.ID)

	_, err = svc.UpdateRole(ctx, member.ID, users.RoleAdmin)
	require.NoError(t, err)
	ids, err = svc.ListUsersByRole(ctx, users.RoleAdmin)
	require.NoError(t, err)
	assert.Contains(t, ids, member.ID)

	isAdmin, err := svc.IsAdmin(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestUsersIntegrationLogin(t *testing.T) {
	svc := setupUsersIntegrationTest(t)
	ctx := context.Background()
	name := "login-" + uuid.NewString()[:8]

	created, err := svc.Create(ctx, users.CreateUserRequest{Username: name, Password: "correct"})
	require.NoError(t, err)

	user, err := svc.Login(ctx, name, "correct")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Login(ctx, name, "wrong")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}
