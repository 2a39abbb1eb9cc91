package store

import (
	"context"
	"database/sql"
	"time"

	"digital-store/internal/models"
)

// CreateUser inserts a new account row
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.GetContext(ctx, user, `
		INSERT INTO users (username, email, password_hash, is_confirmed, confirmation_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		user.Username, user.Email, user.PasswordHash, user.IsConfirmed, user.ConfirmationToken)
}

// GetUserByID retrieves an account by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE id = $1", id)
}

// GetUserByLogin retrieves an account by exact username or
// case-insensitive email.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.getUser(ctx,
		"SELECT * FROM users WHERE username = $1 OR email = LOWER($1)", login)
}

// GetUserByUsername retrieves an account by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE username = $1", username)
}

// GetUserByEmail retrieves an account by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE email = $1", email)
}

// GetUserByConfirmationToken retrieves an account by its pending
// confirmation token.
func (s *Store) GetUserByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE confirmation_token = $1", token)
}

// GetUserByResetToken retrieves an account by its reset token
func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE reset_token = $1", token)
}

func (s *Store) getUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ConfirmUser marks the account confirmed and clears its token
func (s *Store) ConfirmUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_confirmed = TRUE, confirmation_token = NULL WHERE id = $1",
		userID)
	return err
}

// SetConfirmationToken stores a fresh confirmation token
func (s *Store) SetConfirmationToken(ctx context.Context, userID int64, token string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET confirmation_token = $1 WHERE id = $2", token, userID)
	return err
}

// SetResetToken stores a password-reset token and its expiry
func (s *Store) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3",
		token, expiry, userID)
	return err
}

// UpdatePassword replaces the password hash and clears any reset token
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, reset_token = NULL, reset_token_expiry = NULL WHERE id = $2",
		passwordHash, userID)
	return err
}
