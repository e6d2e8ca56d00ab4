package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/domain/session"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
)

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	mu            sync.Mutex
	Users         map[int64]*user.User
	Profiles      map[int64]*user.Profile
	EmailIndex    map[string]*user.User
	CustomerIndex map[string]*user.User
	NextID        int64
	CreateError   error
	GetError      error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:         make(map[int64]*user.User),
		Profiles:      make(map[int64]*user.Profile),
		EmailIndex:    make(map[string]*user.User),
		CustomerIndex: make(map[string]*user.User),
		NextID:        1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User, p *user.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	if _, ok := m.EmailIndex[u.Email]; ok {
		return errors.Conflict("Email already registered")
	}
	u.ID = m.NextID
	m.NextID++
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.Users[u.ID] = u
	m.EmailIndex[u.Email] = u
	if p != nil {
		p.UserID = u.ID
		p.CreatedAt = u.CreatedAt
		m.Profiles[u.ID] = p
	}
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.EmailIndex[email]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockUserRepository) GetByCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.CustomerIndex[customerID]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockUserRepository) SetCustomerID(ctx context.Context, userID int64, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.Users[userID]
	if !ok {
		return errors.NotFound("User")
	}
	if u.StripeCustomerID != nil {
		return errors.Conflict("User already has a customer ID")
	}
	u.StripeCustomerID = &customerID
	m.CustomerIndex[customerID] = u
	return nil
}

func (m *MockUserRepository) GetProfile(ctx context.Context, userID int64) (*user.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.Profiles[userID]
	if !ok {
		return nil, errors.NotFound("Profile")
	}
	return p, nil
}

// MockCredentialStore is an in-memory session.Store
type MockCredentialStore struct {
	mu          sync.Mutex
	Credentials map[string]*session.Credential
	FindError   error
}

func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{Credentials: make(map[string]*session.Credential)}
}

func (m *MockCredentialStore) Insert(ctx context.Context, c *session.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Credentials[c.Token]; ok {
		return errors.Conflict("Refresh token already stored")
	}
	cp := *c
	m.Credentials[c.Token] = &cp
	return nil
}

func (m *MockCredentialStore) FindByToken(ctx context.Context, token string) (*session.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindError != nil {
		return nil, m.FindError
	}
	c, ok := m.Credentials[token]
	if !ok {
		return nil, errors.NotFound("Refresh token")
	}
	cp := *c
	return &cp, nil
}

func (m *MockCredentialStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.Credentials[token]
	delete(m.Credentials, token)
	return ok, nil
}

func (m *MockCredentialStore) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for tok, c := range m.Credentials {
		if c.UserID == userID {
			delete(m.Credentials, tok)
			n++
		}
	}
	return n, nil
}

func (m *MockCredentialStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for tok, c := range m.Credentials {
		if c.ExpiresAt.Before(now) {
			delete(m.Credentials, tok)
			n++
		}
	}
	return n, nil
}

func (m *MockCredentialStore) Rotate(ctx context.Context, oldToken string, replacement *session.Credential) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Credentials[oldToken]; !ok {
		return false, nil
	}
	delete(m.Credentials, oldToken)
	cp := *replacement
	m.Credentials[replacement.Token] = &cp
	return true, nil
}

// Count returns the number of stored credentials
func (m *MockCredentialStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Credentials)
}

// StubLedger is an entitlement.Ledger whose CurrentForUser result is fixed.
// Mutating methods are not supported.
type StubLedger struct {
	Current    *entitlement.Record
	CurrentErr error
}

func (s *StubLedger) UpsertByExternalID(ctx context.Context, rec *entitlement.Record) (bool, error) {
	return false, errors.NotImplemented("stub ledger")
}

func (s *StubLedger) UpdateStatusByExternalID(ctx context.Context, externalID string, status entitlement.Status, updatedAt time.Time) (bool, error) {
	return false, errors.NotImplemented("stub ledger")
}

func (s *StubLedger) GetByExternalID(ctx context.Context, externalID string) (*entitlement.Record, error) {
	return nil, errors.NotFound("Entitlement")
}

func (s *StubLedger) CurrentForUser(ctx context.Context, userID int64) (*entitlement.Record, error) {
	return s.Current, s.CurrentErr
}

func (s *StubLedger) InsertIfAbsent(ctx context.Context, rec *entitlement.Record) (*entitlement.Record, bool, error) {
	return nil, false, errors.NotImplemented("stub ledger")
}

func (s *StubLedger) InsertTimeBoxed(ctx context.Context, userID int64, plan string, durationSeconds int64, externalID *string) (*entitlement.Record, error) {
	return nil, errors.NotImplemented("stub ledger")
}

func (s *StubLedger) DecrementRemaining(ctx context.Context, userID int64, seconds int64) (*entitlement.Record, error) {
	return nil, errors.NotImplemented("stub ledger")
}

// FakeProvider is an in-memory billing.Provider
type FakeProvider struct {
	mu             sync.Mutex
	Customers      map[string]int64
	Intents        map[string]*billing.PaymentIntent
	Subscriptions  map[string]*billing.Subscription
	Attached       map[string]string
	CustomerCalls  int
	Err            error
	next           int
	SubscriptionAt time.Time
	CanceledAt     time.Time
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Customers:     make(map[string]int64),
		Intents:       make(map[string]*billing.PaymentIntent),
		Subscriptions: make(map[string]*billing.Subscription),
		Attached:      make(map[string]string),
	}
}

func (f *FakeProvider) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s_test_%d", prefix, f.next)
}

func (f *FakeProvider) CreateCustomer(ctx context.Context, userID int64, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return "", f.Err
	}
	f.CustomerCalls++
	id := f.id("cus")
	f.Customers[id] = userID
	return id, nil
}

func (f *FakeProvider) CreatePaymentIntent(ctx context.Context, in billing.PaymentIntentInput) (*billing.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	id := f.id("pi")
	pi := &billing.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		CustomerID:   in.CustomerID,
		Amount:       in.Amount,
		Currency:     in.Currency,
		Metadata:     map[string]string{"plan": in.Plan, "user_id": fmt.Sprint(in.UserID)},
	}
	f.Intents[id] = pi
	return pi, nil
}

func (f *FakeProvider) GetPaymentIntent(ctx context.Context, id string) (*billing.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	pi, ok := f.Intents[id]
	if !ok {
		return nil, errors.NotFound("Payment intent")
	}
	cp := *pi
	return &cp, nil
}

// Succeed marks a payment intent as paid
func (f *FakeProvider) Succeed(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pi, ok := f.Intents[id]; ok {
		pi.Status = "succeeded"
	}
}

func (f *FakeProvider) Subscribe(ctx context.Context, in billing.SubscribeInput) (*billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	now := f.SubscriptionAt
	if now.IsZero() {
		now = time.Now().Truncate(time.Second)
	}
	f.Attached[in.PaymentMethodID] = in.CustomerID
	sub := &billing.Subscription{
		ID:          f.id("sub"),
		CustomerID:  in.CustomerID,
		Plan:        in.PriceID,
		Status:      "active",
		PeriodStart: now,
		PeriodEnd:   now.AddDate(0, 1, 0),
		Created:     now,
	}
	f.Subscriptions[sub.ID] = sub
	return sub, nil
}

func (f *FakeProvider) CancelSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	sub, ok := f.Subscriptions[id]
	if !ok {
		return nil, errors.NotFound("Subscription")
	}
	sub.Status = "canceled"
	sub.CanceledAt = f.CanceledAt
	if sub.CanceledAt.IsZero() {
		sub.CanceledAt = time.Now().Truncate(time.Second)
	}
	cp := *sub
	return &cp, nil
}
