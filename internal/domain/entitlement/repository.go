package entitlement

import (
	"context"
	"time"
)

// Ledger persists entitlement records
type Ledger interface {
	// UpsertByExternalID inserts or fully replaces the record for
	// rec.ExternalID. The replace only happens when the stored UpdatedAt is
	// not newer than rec.UpdatedAt; applied reports whether it did.
	UpsertByExternalID(ctx context.Context, rec *Record) (applied bool, err error)

	// UpdateStatusByExternalID changes only the status, under the same
	// UpdatedAt guard. Status-only updates never move a record out of
	// canceled. applied is false for unknown ids and stale updates.
	UpdateStatusByExternalID(ctx context.Context, externalID string, status Status, updatedAt time.Time) (applied bool, err error)

	// GetByExternalID retrieves a record or a NotFound error
	GetByExternalID(ctx context.Context, externalID string) (*Record, error)

	// CurrentForUser returns the record with the latest validity end, or
	// nil when the user has none.
	CurrentForUser(ctx context.Context, userID int64) (*Record, error)

	// InsertIfAbsent creates rec unless its external id is already stored,
	// returning the stored record and created=false in that case.
	InsertIfAbsent(ctx context.Context, rec *Record) (stored *Record, created bool, err error)

	// InsertTimeBoxed creates an active pass measured in remaining seconds
	InsertTimeBoxed(ctx context.Context, userID int64, plan string, durationSeconds int64, externalID *string) (*Record, error)

	// DecrementRemaining consumes seconds from the user's current
	// time-boxed pass, flooring at zero.
	DecrementRemaining(ctx context.Context, userID int64, seconds int64) (*Record, error)
}
