package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/paygate/internal/domain/session"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

func TestCredentialRepository_InsertFindDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := postgres.NewCredentialRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "cred@example.com")

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.Insert(ctx, &session.Credential{Token: "tok-1", UserID: u.ID, ExpiresAt: exp}))

	got, err := store.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, exp.Equal(got.ExpiresAt))

	removed, err := store.DeleteByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.FindByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCredentialRepository_DeleteAllByUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := postgres.NewCredentialRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a@example.com")
	b := testutil.CreateUser(t, db, "b@example.com")

	exp := time.Now().Add(time.Hour)
	for i, uid := range []int64{a.ID, a.ID, b.ID} {
		require.NoError(t, store.Insert(ctx, &session.Credential{Token: fmt.Sprintf("t%d", i), UserID: uid, ExpiresAt: exp}))
	}

	n, err := store.DeleteAllByUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.FindByToken(ctx, "t2")
	assert.NoError(t, err)
}

func TestCredentialRepository_DeleteExpired(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := postgres.NewCredentialRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "exp@example.com")

	now := time.Now().Truncate(time.Second)
	require.NoError(t, store.Insert(ctx, &session.Credential{Token: "old", UserID: u.ID, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Insert(ctx, &session.Credential{Token: "edge", UserID: u.ID, ExpiresAt: now}))
	require.NoError(t, store.Insert(ctx, &session.Credential{Token: "fresh", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.FindByToken(ctx, "edge")
	assert.NoError(t, err)
	_, err = store.FindByToken(ctx, "old")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCredentialRepository_Rotate(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := postgres.NewCredentialRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "rot@example.com")
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.Insert(ctx, &session.Credential{Token: "old", UserID: u.ID, ExpiresAt: exp}))

	ok, err := store.Rotate(ctx, "old", &session.Credential{Token: "new", UserID: u.ID, ExpiresAt: exp})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Rotate(ctx, "old", &session.Credential{Token: "newer", UserID: u.ID, ExpiresAt: exp})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.FindByToken(ctx, "newer")
	assert.ErrorIs(t, err, errors.ErrNotFound, "a failed rotation must not insert")
	_, err = store.FindByToken(ctx, "new")
	assert.NoError(t, err)
}

func TestCredentialRepository_ConcurrentRotate(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := postgres.NewCredentialRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "race@example.com")
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.Insert(ctx, &session.Credential{Token: "shared", UserID: u.ID, ExpiresAt: exp}))

	const n = 10
	var wg sync.WaitGroup
	results := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Rotate(ctx, "shared", &session.Credential{
				Token: fmt.Sprintf("next-%d", i), UserID: u.ID, ExpiresAt: exp,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i] {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ?`, u.ID).Scan(&count))
	assert.Equal(t, 1, count)
}
