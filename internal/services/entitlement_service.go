package services

import (
	"context"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/metrics"
)

// EntitlementService implements entitlement.Guard over the ledger
type EntitlementService struct {
	ledger entitlement.Ledger
	now    func() time.Time
	logger *logger.Logger
}

// NewEntitlementService creates a new entitlement guard
func NewEntitlementService(ledger entitlement.Ledger, log *logger.Logger) *EntitlementService {
	return &EntitlementService{
		ledger: ledger,
		now:    time.Now,
		logger: log,
	}
}

// WithClock replaces the time source used for expiry checks
func (s *EntitlementService) WithClock(now func() time.Time) *EntitlementService {
	s.now = now
	return s
}

// Evaluate reads the user's current record and decides access. Lookup
// failures deny with a none verdict.
func (s *EntitlementService) Evaluate(ctx context.Context, userID int64) (entitlement.Verdict, error) {
	rec, err := s.ledger.CurrentForUser(ctx, userID)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
		}).WithError(err).Error("Entitlement lookup failed")
		metrics.RecordVerdict(string(entitlement.VerdictNone))
		return entitlement.Verdict{Status: entitlement.VerdictNone}, err
	}

	v := entitlement.Decide(rec, s.now())
	metrics.RecordVerdict(string(v.Status))
	return v, nil
}
