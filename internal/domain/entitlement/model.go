package entitlement

import "time"

// Status is the stored lifecycle state of a record
type Status string

// Record statuses. Provider statuses outside this set are stored verbatim
// and never count as active.
const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
	StatusNone     Status = "none"
)

// Kind distinguishes how a record's validity is measured
type Kind string

const (
	// KindWindow records are valid between StartDate and EndDate
	KindWindow Kind = "window"
	// KindTimeBoxed records are valid while RemainingSeconds > 0
	KindTimeBoxed Kind = "timeboxed"
)

// Pass plans sold through one-off payments
const (
	PlanOneDay   = "oneday"
	PlanOneMonth = "onemonth"
	PlanHourly   = "hourly"
)

// Record is a user's paid-access right. Records are never deleted; expiry
// is computed from the window or counter at read time.
type Record struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	ExternalID       *string    `json:"external_id,omitempty"`
	Plan             string     `json:"plan"`
	Kind             Kind       `json:"kind"`
	Status           Status     `json:"status"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	RemainingSeconds *int64     `json:"remaining_seconds,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// EffectivelyActive combines the stored status with the current time or
// the remaining usage counter.
func (r *Record) EffectivelyActive(now time.Time) bool {
	if r == nil || r.Status != StatusActive {
		return false
	}
	switch r.Kind {
	case KindTimeBoxed:
		return r.RemainingSeconds != nil && *r.RemainingSeconds > 0
	default:
		return r.EndDate != nil && !now.After(*r.EndDate)
	}
}

// PassWindow returns the fixed validity window for a pass plan
func PassWindow(plan string) (time.Duration, bool) {
	switch plan {
	case PlanOneDay:
		return 24 * time.Hour, true
	case PlanOneMonth:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}
