package user

import "context"

// Repository defines the interface for user data access
type Repository interface {
	// Create inserts the user and its profile. A duplicate email yields a
	// Conflict error.
	Create(ctx context.Context, user *User, profile *Profile) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByCustomerID retrieves the user mapped to a billing customer
	GetByCustomerID(ctx context.Context, customerID string) (*User, error)

	// SetCustomerID records the billing customer for a user
	SetCustomerID(ctx context.Context, userID int64, customerID string) error

	// GetProfile retrieves the profile for a user
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
}
