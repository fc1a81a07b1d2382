// Package users is the user directory: accounts, credentials and roles.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"

	"github.com/realtyhub/realtyhub/internal/config"
	"github.com/realtyhub/realtyhub/internal/db"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUsernameTaken      = errors.New("username already exists")
)

const userColumns = `id, username, email, role, display_name, is_active, last_login_at, created_at, updated_at`

type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "users")),
	}
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if s.conn == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	pgID, err := db.ParseUUID(userID)
	if err != nil {
		return User{}, err
	}
	row := s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, pgID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

// Login checks credentials and records the login time.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	if s.conn == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrInvalidCredentials
	}
	var hash string
	row := s.conn.QueryRow(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE lower(username) = lower($1)`, username)
	user, err := scanUser(row, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrInactiveUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	pgID, _ := db.ParseUUID(user.ID)
	if _, err := s.conn.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, pgID); err != nil {
		s.logger.Warn("touch last login failed", slog.Any("error", err))
	}
	return user, nil
}

// ListUsersByRole returns the ids of active users holding role. It backs the
// admin broadcast lookup, so it is queried fresh on every call.
func (s *Service) ListUsersByRole(ctx context.Context, role string) ([]string, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("user store not configured")
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, `SELECT id FROM users WHERE role = $1 AND is_active ORDER BY created_at`, normalized)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id pgtype.UUID
		if err := row.Scan(&id); err != nil {
			return "", err
		}
		return db.UUIDToString(id), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return ids, nil
}

func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsActive && user.Role == RoleAdmin, nil
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (User, error) {
	if s.conn == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return User{}, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(req.Password) == "" {
		return User{}, fmt.Errorf("password is required")
	}
	role, err := NormalizeRole(req.Role)
	if err != nil {
		return User{}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		username, db.StringToText(req.Email), string(hashed), role, db.StringToText(displayName))
	user, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateRole changes a user's role. Admin broadcasts pick the change up on
// their next directory lookup.
func (s *Service) UpdateRole(ctx context.Context, userID, role string) (User, error) {
	if s.conn == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	pgID, err := db.ParseUUID(userID)
	if err != nil {
		return User{}, err
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return User{}, err
	}
	row := s.conn.QueryRow(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING `+userColumns, pgID, normalized)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	if s.conn == nil {
		return 0, fmt.Errorf("user store not configured")
	}
	var count int64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// EnsureAdmin creates the configured admin account when the directory is empty.
func (s *Service) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	username := strings.TrimSpace(cfg.Username)
	password := strings.TrimSpace(cfg.Password)
	if username == "" || password == "" {
		return fmt.Errorf("admin username/password required in config.toml")
	}
	if password == "change-your-password-here" {
		s.logger.Warn("admin password uses default placeholder; please update config.toml")
	}
	if _, err := s.Create(ctx, CreateUserRequest{
		Username: username,
		Password: password,
		Email:    cfg.Email,
		Role:     RoleAdmin,
	}); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	s.logger.Info("admin user created", slog.String("username", username))
	return nil
}

// NormalizeRole upper-cases role and checks it; empty means RoleUser.
func NormalizeRole(raw string) (string, error) {
	role := strings.ToUpper(strings.TrimSpace(raw))
	switch role {
	case "":
		return RoleUser, nil
	case RoleAdmin, RoleAgent, RoleUser:
		return role, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidRole, raw)
}

func scanUser(row pgx.Row, extra ...any) (User, error) {
	var (
		id          pgtype.UUID
		email       pgtype.Text
		displayName pgtype.Text
		lastLogin   pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
		user        User
	)
	dest := []any{&id, &user.Username, &email, &user.Role, &displayName, &user.IsActive, &lastLogin, &createdAt, &updatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return User{}, err
	}
	user.ID = db.UUIDToString(id)
	user.Email = db.TextToString(email)
	user.DisplayName = db.TextToString(displayName)
	user.LastLoginAt = db.TimeFromPg(lastLogin)
	user.CreatedAt = db.TimeFromPg(createdAt)
	user.UpdatedAt = db.TimeFromPg(updatedAt)
	return user, nil
}
