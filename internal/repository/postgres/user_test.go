package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

func TestUserRepository_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	u := &user.User{Email: "test@example.com", PasswordHash: "hash"}
	p := &user.Profile{Email: u.Email, DisplayName: "test"}
	require.NoError(t, repo.Create(ctx, u, p))
	assert.NotZero(t, u.ID)
	assert.Equal(t, u.ID, p.UserID)

	got, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Nil(t, got.StripeCustomerID)

	profile, err := repo.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", profile.DisplayName)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &user.User{Email: "dup@example.com", PasswordHash: "x"}, nil))

	err := repo.Create(ctx, &user.User{Email: "dup@example.com", PasswordHash: "y"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, "dup@example.com").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUserRepository_ConcurrentDuplicateSignup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &user.User{Email: "race@example.com", PasswordHash: fmt.Sprint(i)}, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errors.ErrConflict)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestUserRepository_GetNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = repo.GetByCustomerID(ctx, "cus_missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = repo.GetProfile(ctx, 999)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestUserRepository_SetCustomerID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "cust@example.com")

	require.NoError(t, repo.SetCustomerID(ctx, u.ID, "cus_123"))

	got, err := repo.GetByCustomerID(ctx, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.StripeCustomerID)
	assert.Equal(t, "cus_123", *got.StripeCustomerID)

	// An existing mapping is never replaced
	err = repo.SetCustomerID(ctx, u.ID, "cus_456")
	assert.ErrorIs(t, err, errors.ErrConflict)
}
