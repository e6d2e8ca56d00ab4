package entitlement

import "time"

// VerdictStatus is the outcome of an access decision
type VerdictStatus string

const (
	VerdictActive  VerdictStatus = "active"
	VerdictExpired VerdictStatus = "expired"
	VerdictNone    VerdictStatus = "none"
)

// Verdict is the guard's decision plus the plan metadata that produced it
type Verdict struct {
	Status           VerdictStatus `json:"status"`
	Plan             string        `json:"plan,omitempty"`
	Kind             Kind          `json:"kind,omitempty"`
	EndDate          *time.Time    `json:"end_date,omitempty"`
	RemainingSeconds *int64        `json:"remaining_time_seconds,omitempty"`
}

// Allowed reports whether the verdict grants access
func (v Verdict) Allowed() bool {
	return v.Status == VerdictActive
}

// Decide maps the current record to a verdict. A nil record means the user
// never had an entitlement.
func Decide(rec *Record, now time.Time) Verdict {
	if rec == nil {
		return Verdict{Status: VerdictNone}
	}

	v := Verdict{
		Status: VerdictExpired,
		Plan:   rec.Plan,
		Kind:   rec.Kind,
	}
	if rec.Kind == KindTimeBoxed {
		v.RemainingSeconds = rec.RemainingSeconds
	} else {
		v.EndDate = rec.EndDate
	}
	if rec.EffectivelyActive(now) {
		v.Status = VerdictActive
	}
	return v
}
