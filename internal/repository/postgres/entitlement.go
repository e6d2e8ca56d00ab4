package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
)

// EntitlementRepository implements entitlement.Ledger
type EntitlementRepository struct {
	db *DB
}

// NewEntitlementRepository creates a new entitlement ledger
func NewEntitlementRepository(db *DB) entitlement.Ledger {
	return &EntitlementRepository{db: db}
}

const entitlementColumns = `id, user_id, external_id, plan, kind, status,
	start_date, end_date, remaining_seconds, updated_at, created_at`

// usablePass matches time-boxed passes that still hold paid seconds. It
// takes the kind and status as arguments.
const usablePass = `kind = ? AND status = ? AND remaining_seconds > 0`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntitlement(row rowScanner) (*entitlement.Record, error) {
	var rec entitlement.Record
	var externalID sql.NullString
	var kind, status string
	var start, end, remaining sql.NullInt64
	var updatedAt, createdAt int64

	err := row.Scan(
		&rec.ID, &rec.UserID, &externalID, &rec.Plan, &kind, &status,
		&start, &end, &remaining, &updatedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ExternalID = stringPtr(externalID)
	rec.Kind = entitlement.Kind(kind)
	rec.Status = entitlement.Status(status)
	rec.StartDate = timePtr(start)
	rec.EndDate = timePtr(end)
	rec.RemainingSeconds = int64Ptr(remaining)
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}

// UpsertByExternalID inserts or fully replaces the record keyed by its
// external id, unless the stored row was updated more recently.
func (r *EntitlementRepository) UpsertByExternalID(ctx context.Context, rec *entitlement.Record) (bool, error) {
	if rec.ExternalID == nil || *rec.ExternalID == "" {
		return false, errors.BadRequest("External subscription id is required")
	}
	if rec.Kind == "" {
		rec.Kind = entitlement.KindWindow
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO entitlements (user_id, external_id, plan, kind, status,
			start_date, end_date, remaining_seconds, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			user_id = excluded.user_id,
			plan = excluded.plan,
			kind = excluded.kind,
			status = excluded.status,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			remaining_seconds = excluded.remaining_seconds,
			updated_at = excluded.updated_at
		WHERE entitlements.updated_at <= excluded.updated_at
	`,
		rec.UserID, *rec.ExternalID, rec.Plan, string(rec.Kind), string(rec.Status),
		unixPtr(rec.StartDate), unixPtr(rec.EndDate), rec.RemainingSeconds,
		rec.UpdatedAt.Unix(), nowUnix(),
	)
	if err != nil {
		return false, errors.DatabaseError("Failed to upsert entitlement", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

// UpdateStatusByExternalID changes the status of an existing record. A
// canceled record only accepts canceled again.
func (r *EntitlementRepository) UpdateStatusByExternalID(ctx context.Context, externalID string, status entitlement.Status, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE entitlements SET status = ?, updated_at = ?
		WHERE external_id = ? AND updated_at <= ?`
	args := []interface{}{string(status), updatedAt.Unix(), externalID, updatedAt.Unix()}
	if status != entitlement.StatusCanceled {
		query += ` AND status <> ?`
		args = append(args, string(entitlement.StatusCanceled))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.DatabaseError("Failed to update entitlement status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

// GetByExternalID retrieves a record by external id
func (r *EntitlementRepository) GetByExternalID(ctx context.Context, externalID string) (*entitlement.Record, error) {
	rec, err := scanEntitlement(r.db.QueryRowContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE external_id = ?`, externalID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("Entitlement")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get entitlement", err)
	}
	return rec, nil
}

// CurrentForUser returns the record that decides the user's access, or nil.
// Usable passes rank first, oldest purchase first, which is the pass
// DecrementRemaining charges. Open windows follow by latest end. When
// nothing grants access the most recently lapsed record is returned.
func (r *EntitlementRepository) CurrentForUser(ctx context.Context, userID int64) (*entitlement.Record, error) {
	timeBoxed, active := string(entitlement.KindTimeBoxed), string(entitlement.StatusActive)
	rec, err := scanEntitlement(r.db.QueryRowContext(ctx, `
		SELECT `+entitlementColumns+` FROM entitlements
		WHERE user_id = ?
		ORDER BY
			CASE
				WHEN `+usablePass+` THEN 0
				WHEN kind <> ? AND status = ? AND end_date >= ? THEN 1
				ELSE 2
			END,
			CASE WHEN `+usablePass+` THEN id END ASC,
			COALESCE(end_date, updated_at) DESC,
			id DESC
		LIMIT 1
	`,
		userID,
		timeBoxed, active,
		timeBoxed, active, nowUnix(),
		timeBoxed, active,
	))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get current entitlement", err)
	}
	return rec, nil
}

// InsertIfAbsent creates rec unless a record with the same external id
// exists, in which case the stored record is returned unchanged.
func (r *EntitlementRepository) InsertIfAbsent(ctx context.Context, rec *entitlement.Record) (*entitlement.Record, bool, error) {
	now := time.Now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO entitlements (user_id, external_id, plan, kind, status,
			start_date, end_date, remaining_seconds, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id
	`,
		rec.UserID, rec.ExternalID, rec.Plan, string(rec.Kind), string(rec.Status),
		unixPtr(rec.StartDate), unixPtr(rec.EndDate), rec.RemainingSeconds,
		rec.UpdatedAt.Unix(), now.Unix(),
	).Scan(&id)

	if stderrors.Is(err, sql.ErrNoRows) && rec.ExternalID != nil {
		existing, err := r.GetByExternalID(ctx, *rec.ExternalID)
		return existing, false, err
	}
	if err != nil {
		return nil, false, errors.DatabaseError("Failed to insert entitlement", err)
	}

	rec.ID = id
	rec.CreatedAt = now
	return rec, true, nil
}

// InsertTimeBoxed creates an active pass measured in remaining seconds.
// A non-nil externalID makes the insert idempotent.
func (r *EntitlementRepository) InsertTimeBoxed(ctx context.Context, userID int64, plan string, durationSeconds int64, externalID *string) (*entitlement.Record, error) {
	if durationSeconds <= 0 {
		return nil, errors.BadRequest("Duration must be positive")
	}
	remaining := durationSeconds
	rec, _, err := r.InsertIfAbsent(ctx, &entitlement.Record{
		UserID:           userID,
		ExternalID:       externalID,
		Plan:             plan,
		Kind:             entitlement.KindTimeBoxed,
		Status:           entitlement.StatusActive,
		RemainingSeconds: &remaining,
	})
	return rec, err
}

// DecrementRemaining consumes seconds from the user's oldest usable pass,
// the same record CurrentForUser ranks first. The counter never drops below
// zero and usage never spills over into the next pass.
func (r *EntitlementRepository) DecrementRemaining(ctx context.Context, userID int64, seconds int64) (*entitlement.Record, error) {
	if seconds <= 0 {
		return nil, errors.BadRequest("Seconds must be positive")
	}

	rec, err := scanEntitlement(r.db.QueryRowContext(ctx, `
		UPDATE entitlements
		SET remaining_seconds = CASE WHEN remaining_seconds > ? THEN remaining_seconds - ? ELSE 0 END,
			updated_at = ?
		WHERE id = (
			SELECT id FROM entitlements
			WHERE user_id = ? AND `+usablePass+`
			ORDER BY id ASC
			LIMIT 1
		)
		RETURNING `+entitlementColumns,
		seconds, seconds, nowUnix(),
		userID, string(entitlement.KindTimeBoxed), string(entitlement.StatusActive),
	))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("Active time-boxed pass")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to decrement remaining time", err)
	}
	return rec, nil
}
