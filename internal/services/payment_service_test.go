package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

type paymentFixture struct {
	svc      *PaymentService
	guard    *EntitlementService
	provider *testutil.FakeProvider
	ledger   entitlement.Ledger
	buyer    *user.User
	other    *user.User
	now      time.Time
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	provider := testutil.NewFakeProvider()
	ledger := postgres.NewEntitlementRepository(db)
	users := NewUserService(postgres.NewUserRepository(db), provider, bcrypt.MinCost, logger.Nop())

	now := time.Now().UTC().Truncate(time.Second)
	provider.SubscriptionAt = now

	return &paymentFixture{
		svc:      NewPaymentService(users, provider, ledger, "usd", logger.Nop()).WithClock(testutil.FixedClock(now)),
		guard:    NewEntitlementService(ledger, logger.Nop()).WithClock(testutil.FixedClock(now)),
		provider: provider,
		ledger:   ledger,
		buyer:    testutil.CreateUser(t, db, "buyer@example.com"),
		other:    testutil.CreateUser(t, db, "other@example.com"),
		now:      now,
	}
}

func (f *paymentFixture) paidIntent(t *testing.T, userID int64, plan string) string {
	t.Helper()
	pi, err := f.svc.CreatePaymentIntent(context.Background(), userID, "buyer@example.com", billing.PaymentIntentInput{
		Amount: 500,
		Method: "card",
		Plan:   plan,
	})
	require.NoError(t, err)
	f.provider.Succeed(pi.ID)
	return pi.ID
}

func TestPaymentService_CreatePaymentIntent(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	pi, err := f.svc.CreatePaymentIntent(ctx, f.buyer.ID, f.buyer.Email, billing.PaymentIntentInput{
		Amount: 999,
		Method: "card",
		Plan:   entitlement.PlanOneDay,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pi.ClientSecret)
	assert.Equal(t, "usd", pi.Currency)
	assert.NotEmpty(t, pi.CustomerID)

	_, err = f.svc.CreatePaymentIntent(ctx, f.buyer.ID, f.buyer.Email, billing.PaymentIntentInput{
		Amount: 999, Method: "card", Plan: entitlement.PlanOneDay,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.CustomerCalls, "customer should be created once")
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		plan    string
		hours   int64
		window  time.Duration
		seconds int64
	}{
		{name: "one day pass", plan: entitlement.PlanOneDay, window: 24 * time.Hour},
		{name: "one month pass", plan: entitlement.PlanOneMonth, window: 30 * 24 * time.Hour},
		{name: "hourly pass", plan: entitlement.PlanHourly, hours: 2, seconds: 7200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			piID := f.paidIntent(t, f.buyer.ID, tt.plan)

			rec, err := f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
				PaymentIntentID: piID, Plan: tt.plan, Hours: tt.hours,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.plan, rec.Plan)
			assert.Equal(t, entitlement.StatusActive, rec.Status)
			require.NotNil(t, rec.ExternalID)
			assert.Equal(t, piID, *rec.ExternalID)

			if tt.seconds > 0 {
				assert.Equal(t, entitlement.KindTimeBoxed, rec.Kind)
				require.NotNil(t, rec.RemainingSeconds)
				assert.Equal(t, tt.seconds, *rec.RemainingSeconds)
			} else {
				assert.Equal(t, entitlement.KindWindow, rec.Kind)
				require.NotNil(t, rec.EndDate)
				assert.Equal(t, f.now.Add(tt.window).Unix(), rec.EndDate.Unix())
			}

			// Verifying the same payment again grants nothing new
			again, err := f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
				PaymentIntentID: piID, Plan: tt.plan, Hours: tt.hours,
			})
			require.NoError(t, err)
			assert.Equal(t, rec.ID, again.ID)
		})
	}
}

func TestPaymentService_VerifyPaymentRejects(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	pending, err := f.svc.CreatePaymentIntent(ctx, f.buyer.ID, f.buyer.Email, billing.PaymentIntentInput{
		Amount: 500, Method: "card", Plan: entitlement.PlanOneDay,
	})
	require.NoError(t, err)
	paid := f.paidIntent(t, f.buyer.ID, entitlement.PlanOneDay)

	tests := []struct {
		name    string
		userID  int64
		in      billing.VerifyPaymentInput
		wantErr error
	}{
		{
			name:    "unknown plan",
			userID:  f.buyer.ID,
			in:      billing.VerifyPaymentInput{PaymentIntentID: paid, Plan: "lifetime"},
			wantErr: errors.New(errors.ErrCodeBadRequest, "", 0),
		},
		{
			name:    "hourly without hours",
			userID:  f.buyer.ID,
			in:      billing.VerifyPaymentInput{PaymentIntentID: paid, Plan: entitlement.PlanHourly},
			wantErr: errors.New(errors.ErrCodeBadRequest, "", 0),
		},
		{
			name:    "payment not completed",
			userID:  f.buyer.ID,
			in:      billing.VerifyPaymentInput{PaymentIntentID: pending.ID, Plan: entitlement.PlanOneDay},
			wantErr: errors.New(errors.ErrCodeBadRequest, "", 0),
		},
		{
			name:    "unknown intent",
			userID:  f.buyer.ID,
			in:      billing.VerifyPaymentInput{PaymentIntentID: "pi_missing", Plan: entitlement.PlanOneDay},
			wantErr: errors.ErrNotFound,
		},
		{
			name:    "intent of another user",
			userID:  f.other.ID,
			in:      billing.VerifyPaymentInput{PaymentIntentID: paid, Plan: entitlement.PlanOneDay},
			wantErr: errors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.VerifyPayment(ctx, tt.userID, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	rec, err := f.ledger.CurrentForUser(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPaymentService_VerifyPaymentPlanMismatch(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	// Paid for a day, claimed as a month
	piID := f.paidIntent(t, f.buyer.ID, entitlement.PlanOneDay)
	_, err := f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
		PaymentIntentID: piID, Plan: entitlement.PlanOneMonth,
	})
	assert.ErrorIs(t, err, errors.New(errors.ErrCodeBadRequest, "", 0))

	rec, err := f.ledger.CurrentForUser(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
		PaymentIntentID: piID, Plan: entitlement.PlanOneDay,
	})
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(24*time.Hour).Unix(), rec.EndDate.Unix())
}

func TestPaymentService_BillingDisabled(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := postgres.NewEntitlementRepository(db)
	users := NewUserService(postgres.NewUserRepository(db), nil, bcrypt.MinCost, logger.Nop())
	svc := NewPaymentService(users, nil, ledger, "usd", logger.Nop())
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "nobilling@example.com")
	testutil.LinkCustomer(t, db, u.ID, "cus_existing")

	notImplemented := errors.New(errors.ErrCodeNotImplemented, "", 0)

	require.NotPanics(t, func() {
		_, err := svc.CreatePaymentIntent(ctx, u.ID, u.Email, billing.PaymentIntentInput{
			Amount: 500, Method: "card", Plan: entitlement.PlanOneDay,
		})
		assert.ErrorIs(t, err, notImplemented)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, 501, appErr.StatusCode)
	})

	_, err := svc.VerifyPayment(ctx, u.ID, billing.VerifyPaymentInput{PaymentIntentID: "pi_1", Plan: entitlement.PlanOneDay})
	assert.ErrorIs(t, err, notImplemented)

	_, err = svc.Subscribe(ctx, u.ID, "price_pro", "pm_card_visa")
	assert.ErrorIs(t, err, notImplemented)
}

func TestPaymentService_SubscribeAndCancel(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Subscribe(ctx, f.buyer.ID, "price_pro", "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, sub.CustomerID, f.provider.Attached["pm_card_visa"])

	v, err := f.guard.Evaluate(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictActive, v.Status)
	assert.Equal(t, "price_pro", v.Plan)

	_, err = f.svc.Cancel(ctx, f.other.ID, sub.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = f.svc.Cancel(ctx, f.buyer.ID, "sub_unknown")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	canceled, err := f.svc.Cancel(ctx, f.buyer.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", canceled.Status)

	v, err = f.guard.Evaluate(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictExpired, v.Status)
}

func TestPaymentService_CancelUsesProviderTime(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Subscribe(ctx, f.buyer.ID, "price_pro", "pm_card_visa")
	require.NoError(t, err)

	canceledAt := f.now.Add(90 * time.Second)
	f.provider.CanceledAt = canceledAt

	canceled, err := f.svc.Cancel(ctx, f.buyer.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, canceledAt.Unix(), canceled.CanceledAt.Unix())

	rec, err := f.ledger.GetByExternalID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.StatusCanceled, rec.Status)
	assert.Equal(t, canceledAt.Unix(), rec.UpdatedAt.Unix())
}

func TestPaymentService_UpdateRemaining(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateRemaining(ctx, f.buyer.ID, 60)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	piID := f.paidIntent(t, f.buyer.ID, entitlement.PlanHourly)
	_, err = f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
		PaymentIntentID: piID, Plan: entitlement.PlanHourly, Hours: 1,
	})
	require.NoError(t, err)

	rec, err := f.svc.UpdateRemaining(ctx, f.buyer.ID, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), *rec.RemainingSeconds)

	rec, err = f.svc.UpdateRemaining(ctx, f.buyer.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *rec.RemainingSeconds)

	v, err := f.guard.Evaluate(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictExpired, v.Status)
}

func TestPaymentService_UpstreamFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.provider.Err = errors.UpstreamError("stripe", context.DeadlineExceeded)

	_, err := f.svc.SyncCustomer(context.Background(), f.buyer.ID)
	assert.ErrorIs(t, err, errors.ErrUpstream)
}

func TestPaymentService_UsageMovesToNextPass(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		piID := f.paidIntent(t, f.buyer.ID, entitlement.PlanHourly)
		_, err := f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
			PaymentIntentID: piID, Plan: entitlement.PlanHourly, Hours: 1,
		})
		require.NoError(t, err)
	}

	spent, err := f.svc.UpdateRemaining(ctx, f.buyer.ID, 3600)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *spent.RemainingSeconds)

	v, err := f.guard.Evaluate(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictActive, v.Status)
	assert.Equal(t, entitlement.PlanHourly, v.Plan)

	_, err = f.svc.UpdateRemaining(ctx, f.buyer.ID, 3600)
	require.NoError(t, err)

	v, err = f.guard.Evaluate(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictExpired, v.Status)
}

func TestPaymentService_PassOutlivesLapsedSubscription(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	piID := f.paidIntent(t, f.buyer.ID, entitlement.PlanHourly)
	_, err := f.svc.VerifyPayment(ctx, f.buyer.ID, billing.VerifyPaymentInput{
		PaymentIntentID: piID, Plan: entitlement.PlanHourly, Hours: 1,
	})
	require.NoError(t, err)

	// A subscription that ran out yesterday
	extID := "sub_lapsed"
	start, end := f.now.Add(-31*24*time.Hour), f.now.Add(-24*time.Hour)
	_, err = f.ledger.UpsertByExternalID(ctx, &entitlement.Record{
		UserID:     f.buyer.ID,
		ExternalID: &extID,
		Plan:       "pro",
		Kind:       entitlement.KindWindow,
		Status:     entitlement.StatusActive,
		StartDate:  &start,
		EndDate:    &end,
		UpdatedAt:  end,
	})
	require.NoError(t, err)

	v, err := f.guard.Evaluate(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictActive, v.Status)
	assert.Equal(t, entitlement.PlanHourly, v.Plan)
}
