package user

import "context"

// Service defines the interface for user business logic
type Service interface {
	// Register creates a user with a hashed password and a default profile
	Register(ctx context.Context, email, password string) (*User, error)

	// Authenticate checks credentials. Unknown email and wrong password
	// produce the same error.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByCustomerID resolves the owner of a billing customer
	GetByCustomerID(ctx context.Context, customerID string) (*User, error)

	// GetProfile retrieves the user's profile
	GetProfile(ctx context.Context, userID int64) (*Profile, error)

	// GetOrCreateCustomerID returns the user's billing customer, creating
	// one at the provider on first use.
	GetOrCreateCustomerID(ctx context.Context, userID int64) (string, error)
}
