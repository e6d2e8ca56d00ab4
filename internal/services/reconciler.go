package services

import (
	"context"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/metrics"
)

// ReconcilerService implements billing.Reconciler. Every mutation is an
// upsert or a guarded status update keyed by the subscription id, so
// redelivered and reordered events converge on the same ledger state.
type ReconcilerService struct {
	source billing.WebhookSource
	users  user.Repository
	ledger entitlement.Ledger
	logger *logger.Logger
}

// NewReconcilerService creates a new billing event reconciler
func NewReconcilerService(source billing.WebhookSource, users user.Repository, ledger entitlement.Ledger, log *logger.Logger) *ReconcilerService {
	return &ReconcilerService{
		source: source,
		users:  users,
		ledger: ledger,
		logger: log,
	}
}

// HandleWebhook authenticates payload against the signature header, decodes
// it and applies it to the ledger.
func (s *ReconcilerService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (billing.Event, billing.Outcome, error) {
	if err := s.source.Verify(payload, signatureHeader); err != nil {
		metrics.RecordBillingEvent("unknown", "untrusted")
		s.logger.WarnWithErr(err, "Rejected webhook with invalid signature")
		return nil, "", errors.UntrustedEvent(err)
	}

	// Signed but undecodable payloads are acknowledged so the provider stops
	// redelivering them.
	event, err := s.source.Decode(payload)
	if err != nil {
		metrics.RecordBillingEvent("unknown", "malformed")
		s.logger.WithFields(map[string]interface{}{
			"payload_bytes": len(payload),
		}).WarnWithErr(err, "Ignoring signed webhook payload that could not be decoded")
		return nil, billing.OutcomeIgnored, nil
	}

	outcome, err := s.apply(ctx, event)
	if err != nil {
		metrics.RecordBillingEvent(event.Kind(), "error")
		s.logger.WithFields(map[string]interface{}{
			"event_id":   event.EventID(),
			"event_kind": event.Kind(),
		}).ErrorWithErr(err, "Failed to apply billing event")
		return event, "", err
	}

	metrics.RecordBillingEvent(event.Kind(), string(outcome))
	s.logger.WithFields(map[string]interface{}{
		"event_id":   event.EventID(),
		"event_kind": event.Kind(),
		"outcome":    outcome,
	}).Info("Billing event handled")

	return event, outcome, nil
}

func (s *ReconcilerService) apply(ctx context.Context, event billing.Event) (billing.Outcome, error) {
	switch ev := event.(type) {
	case *billing.SubscriptionChanged:
		return s.applySnapshot(ctx, ev.CustomerID, &entitlement.Record{
			ExternalID: &ev.SubscriptionID,
			Plan:       ev.Plan,
			Kind:       entitlement.KindWindow,
			Status:     entitlement.Status(ev.Status),
			StartDate:  timeOrNil(ev.PeriodStart),
			EndDate:    timeOrNil(ev.PeriodEnd),
			UpdatedAt:  ev.OccurredAt(),
		})

	case *billing.SubscriptionDeleted:
		return s.applyDeletion(ctx, ev)

	case *billing.InvoicePaid:
		return s.applyStatus(ctx, ev.SubscriptionID, entitlement.StatusActive, ev.OccurredAt())

	case *billing.InvoicePaymentFailed:
		return s.applyStatus(ctx, ev.SubscriptionID, entitlement.StatusPastDue, ev.OccurredAt())

	case *billing.CustomerCreated:
		s.logger.WithFields(map[string]interface{}{
			"customer_id": ev.CustomerID,
		}).Debug("Customer created")
		return billing.OutcomeIgnored, nil

	default:
		return billing.OutcomeIgnored, nil
	}
}

// applySnapshot replaces the record for a subscription unless a newer
// snapshot is already stored.
func (s *ReconcilerService) applySnapshot(ctx context.Context, customerID string, rec *entitlement.Record) (billing.Outcome, error) {
	u, err := s.users.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.logger.WithFields(map[string]interface{}{
				"customer_id":     customerID,
				"subscription_id": *rec.ExternalID,
			}).Warn("No user for billing customer, ignoring event")
			return billing.OutcomeIgnored, nil
		}
		return "", err
	}

	rec.UserID = u.ID
	applied, err := s.ledger.UpsertByExternalID(ctx, rec)
	if err != nil {
		return "", err
	}
	if !applied {
		return billing.OutcomeStale, nil
	}
	return billing.OutcomeApplied, nil
}

// applyDeletion cancels a known subscription. A deletion for a subscription
// the ledger has not seen yet is stored as a canceled snapshot so that an
// older creation event delivered later cannot activate it.
func (s *ReconcilerService) applyDeletion(ctx context.Context, ev *billing.SubscriptionDeleted) (billing.Outcome, error) {
	applied, err := s.ledger.UpdateStatusByExternalID(ctx, ev.SubscriptionID, entitlement.StatusCanceled, ev.OccurredAt())
	if err != nil {
		return "", err
	}
	if applied {
		return billing.OutcomeApplied, nil
	}

	_, err = s.ledger.GetByExternalID(ctx, ev.SubscriptionID)
	if err == nil {
		return billing.OutcomeStale, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return "", err
	}

	return s.applySnapshot(ctx, ev.CustomerID, &entitlement.Record{
		ExternalID: &ev.SubscriptionID,
		Plan:       ev.Plan,
		Kind:       entitlement.KindWindow,
		Status:     entitlement.StatusCanceled,
		StartDate:  timeOrNil(ev.PeriodStart),
		EndDate:    timeOrNil(ev.PeriodEnd),
		UpdatedAt:  ev.OccurredAt(),
	})
}

// applyStatus handles invoice outcomes. Invoices never carry enough state to
// create a record, so unknown subscriptions are acknowledged and skipped.
func (s *ReconcilerService) applyStatus(ctx context.Context, subscriptionID string, status entitlement.Status, at time.Time) (billing.Outcome, error) {
	if subscriptionID == "" {
		return billing.OutcomeIgnored, nil
	}

	applied, err := s.ledger.UpdateStatusByExternalID(ctx, subscriptionID, status, at)
	if err != nil {
		return "", err
	}
	if applied {
		return billing.OutcomeApplied, nil
	}

	if _, err := s.ledger.GetByExternalID(ctx, subscriptionID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.logger.WithFields(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).Warn("Invoice for unknown subscription, ignoring event")
			return billing.OutcomeIgnored, nil
		}
		return "", err
	}
	return billing.OutcomeStale, nil
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
