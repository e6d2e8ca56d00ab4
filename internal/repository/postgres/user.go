package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
)

// UserRepository implements user.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) user.Repository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, stripe_customer_id, created_at, updated_at`

// Create inserts the user and profile in one transaction
func (r *UserRepository) Create(ctx context.Context, u *user.User, p *user.Profile) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, stripe_customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, u.Email, u.PasswordHash, u.StripeCustomerID, now.Unix(), now.Unix()).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("Email already registered")
		}
		return errors.DatabaseError("Failed to create user", err)
	}

	if p != nil {
		p.UserID = u.ID
		p.CreatedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, email, display_name, created_at)
			VALUES (?, ?, ?, ?)
		`, p.UserID, p.Email, p.DisplayName, now.Unix()); err != nil {
			return errors.DatabaseError("Failed to create profile", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByCustomerID retrieves the user mapped to a billing customer
func (r *UserRepository) GetByCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id = ?`, customerID)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var u user.User
	var customerID sql.NullString
	var createdAt, updatedAt int64

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &customerID, &createdAt, &updatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}

	u.StripeCustomerID = stringPtr(customerID)
	u.CreatedAt = time.Unix(createdAt, 0)
	u.UpdatedAt = time.Unix(updatedAt, 0)
	return &u, nil
}

// SetCustomerID records the billing customer for a user. An existing
// customer id is never overwritten.
func (r *UserRepository) SetCustomerID(ctx context.Context, userID int64, customerID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET stripe_customer_id = ?, updated_at = ?
		WHERE id = ? AND stripe_customer_id IS NULL
	`, customerID, nowUnix(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("Customer already linked to another user")
		}
		return errors.DatabaseError("Failed to set customer ID", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.Conflict("User already has a customer ID")
	}
	return nil
}

// GetProfile retrieves the profile for a user
func (r *UserRepository) GetProfile(ctx context.Context, userID int64) (*user.Profile, error) {
	var p user.Profile
	var createdAt int64

	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, email, display_name, created_at FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.Email, &p.DisplayName, &createdAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("Profile")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get profile", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}
