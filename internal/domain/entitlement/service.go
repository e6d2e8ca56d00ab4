package entitlement

import "context"

// Guard decides whether a user may access paid functionality. On lookup
// failure it returns a none verdict together with the error.
type Guard interface {
	Evaluate(ctx context.Context, userID int64) (Verdict, error)
}
