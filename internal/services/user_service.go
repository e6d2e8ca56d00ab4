package services

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
)

// UserService implements user.Service
type UserService struct {
	repo       user.Repository
	provider   billing.Provider
	bcryptCost int
	logger     *logger.Logger
}

// NewUserService creates a new user service. provider may be nil when
// billing is not configured; GetOrCreateCustomerID then fails.
func NewUserService(repo user.Repository, provider billing.Provider, bcryptCost int, log *logger.Logger) user.Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:       repo,
		provider:   provider,
		bcryptCost: bcryptCost,
		logger:     log,
	}
}

// Register creates a user with a hashed password and a default profile
func (s *UserService) Register(ctx context.Context, email, password string) (*user.User, error) {
	email = user.NormalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	u := &user.User{Email: email, PasswordHash: string(hash)}
	p := &user.Profile{Email: email, DisplayName: user.DisplayNameFor(email)}

	if err := s.repo.Create(ctx, u, p); err != nil {
		if !errors.Is(err, errors.ErrConflict) {
			s.logger.ErrorWithErr(err, "Failed to create user")
		}
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("User registered")

	return u, nil
}

// Authenticate checks an email and password pair
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("Invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": u.ID,
		}).Warn("Password mismatch")
		return nil, errors.Unauthorized("Invalid credentials")
	}

	return u, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCustomerID resolves the owner of a billing customer
func (s *UserService) GetByCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	return s.repo.GetByCustomerID(ctx, customerID)
}

// GetProfile retrieves the user's profile
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*user.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// GetOrCreateCustomerID returns the stored billing customer or creates one
func (s *UserService) GetOrCreateCustomerID(ctx context.Context, userID int64) (string, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.StripeCustomerID != nil && *u.StripeCustomerID != "" {
		return *u.StripeCustomerID, nil
	}
	if s.provider == nil {
		return "", errors.NotImplemented("Billing is not configured")
	}

	customerID, err := s.provider.CreateCustomer(ctx, u.ID, u.Email)
	if err != nil {
		return "", err
	}

	if err := s.repo.SetCustomerID(ctx, u.ID, customerID); err != nil {
		// A concurrent request linked a customer first; use theirs.
		if errors.Is(err, errors.ErrConflict) {
			s.logger.WithFields(map[string]interface{}{
				"user_id":     u.ID,
				"customer_id": customerID,
			}).Warn("Customer already linked, discarding new customer")
			latest, getErr := s.repo.GetByID(ctx, u.ID)
			if getErr != nil {
				return "", getErr
			}
			if latest.StripeCustomerID != nil {
				return *latest.StripeCustomerID, nil
			}
		}
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     u.ID,
		"customer_id": customerID,
	}).Info("Billing customer created")

	return customerID, nil
}
