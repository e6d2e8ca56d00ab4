package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/session"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
)

// CredentialRepository implements session.Store over the refresh_tokens table
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new refresh token store
func NewCredentialRepository(db *DB) session.Store {
	return &CredentialRepository{db: db}
}

// Insert persists a refresh token
func (r *CredentialRepository) Insert(ctx context.Context, c *session.Credential) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, c.Token, c.UserID, c.ExpiresAt.Unix(), c.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("Refresh token already stored")
		}
		return errors.DatabaseError("Failed to store refresh token", err)
	}
	return nil
}

// FindByToken returns the stored credential or a NotFound error
func (r *CredentialRepository) FindByToken(ctx context.Context, token string) (*session.Credential, error) {
	var c session.Credential
	var expiresAt, createdAt int64

	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = ?
	`, token).Scan(&c.Token, &c.UserID, &expiresAt, &createdAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("Refresh token")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get refresh token", err)
	}

	c.ExpiresAt = time.Unix(expiresAt, 0)
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

// DeleteByToken removes a token and reports whether a row was removed
func (r *CredentialRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	if err != nil {
		return false, errors.DatabaseError("Failed to delete refresh token", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

// DeleteAllByUser removes every token owned by a user
func (r *CredentialRepository) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, errors.DatabaseError("Failed to delete refresh tokens", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes tokens whose expiry is before now
func (r *CredentialRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, errors.DatabaseError("Failed to delete expired refresh tokens", err)
	}
	return result.RowsAffected()
}

// Rotate deletes oldToken and inserts replacement atomically. Concurrent
// callers presenting the same token race on the DELETE; only the one that
// removes the row inserts a replacement.
func (r *CredentialRepository) Rotate(ctx context.Context, oldToken string, replacement *session.Credential) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, oldToken)
	if err != nil {
		return false, errors.DatabaseError("Failed to delete refresh token", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return false, nil
	}

	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, replacement.Token, replacement.UserID, replacement.ExpiresAt.Unix(), replacement.CreatedAt.Unix()); err != nil {
		return false, errors.DatabaseError("Failed to store refresh token", err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.DatabaseError("Failed to commit rotation", err)
	}
	return true, nil
}
