package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/migrations"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied
func NewTestDB(t *testing.T) *postgres.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	db := postgres.Wrap(sqlDB, postgres.DriverSQLite)

	fsys, err := migrations.GetFS(postgres.DriverSQLite)
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if _, err := postgres.RunMigrations(context.Background(), db, fsys); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { CleanupDB(db) })
	return db
}

// CleanupDB closes the test database
func CleanupDB(db *postgres.DB) {
	if db != nil {
		db.Close()
	}
}

// CreateUser inserts a user directly through the repository
func CreateUser(t *testing.T, db *postgres.DB, email string) *user.User {
	t.Helper()

	u := &user.User{Email: email, PasswordHash: "x"}
	p := &user.Profile{Email: email, DisplayName: user.DisplayNameFor(email)}
	if err := postgres.NewUserRepository(db).Create(context.Background(), u, p); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

// LinkCustomer maps a billing customer id to a user
func LinkCustomer(t *testing.T, db *postgres.DB, userID int64, customerID string) {
	t.Helper()

	if err := postgres.NewUserRepository(db).SetCustomerID(context.Background(), userID, customerID); err != nil {
		t.Fatalf("Failed to link customer: %v", err)
	}
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
