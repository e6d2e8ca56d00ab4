package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/testutil"
)

func TestUserHandler_Profile(t *testing.T) {
	f := newAPIFixture(t)
	u := testutil.CreateUser(t, f.db, "jane.doe@example.com")

	rr := httptest.NewRecorder()
	f.user.Profile(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/user/profile", nil), u.ID, u.Email))
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned %d: %s", rr.Code, rr.Body.String())
	}
	var profile dto.ProfileDTO
	decodeData(t, rr, &profile)
	if profile.DisplayName != "jane.doe" {
		t.Errorf("DisplayName = %q, want jane.doe", profile.DisplayName)
	}
}

func TestUserHandler_Subscription(t *testing.T) {
	f := newAPIFixture(t)
	ledger := postgres.NewEntitlementRepository(f.db)
	now := time.Now().UTC().Truncate(time.Second)

	never := testutil.CreateUser(t, f.db, "never@example.com")
	lapsed := testutil.CreateUser(t, f.db, "lapsed@example.com")
	paying := testutil.CreateUser(t, f.db, "paying@example.com")

	grant := func(userID int64, id string, end time.Time) {
		start := end.Add(-24 * time.Hour)
		_, _, err := ledger.InsertIfAbsent(context.Background(), &entitlement.Record{
			UserID:     userID,
			ExternalID: &id,
			Plan:       entitlement.PlanOneDay,
			Kind:       entitlement.KindWindow,
			Status:     entitlement.StatusActive,
			StartDate:  &start,
			EndDate:    &end,
			UpdatedAt:  start,
		})
		if err != nil {
			t.Fatalf("InsertIfAbsent() error = %v", err)
		}
	}
	grant(lapsed.ID, "pi_lapsed", now.Add(-time.Hour))
	grant(paying.ID, "pi_paying", now.Add(time.Hour))

	tests := []struct {
		name           string
		userID         int64
		expectedStatus string
	}{
		{"never paid", never.ID, "none"},
		{"pass ended", lapsed.ID, "expired"},
		{"pass running", paying.ID, "active"},
	}

	handler := NewUserHandler(nil, f.guard, logger.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.Subscription(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/user/subscription", nil), tt.userID, ""))
			if rr.Code != http.StatusOK {
				t.Fatalf("handler returned %d", rr.Code)
			}
			var resp dto.EntitlementResponse
			decodeData(t, rr, &resp)
			if resp.Status != tt.expectedStatus {
				t.Errorf("status = %s, want %s", resp.Status, tt.expectedStatus)
			}
			if tt.expectedStatus != "none" && resp.EndDate == nil {
				t.Error("expected end_date for a window plan")
			}
		})
	}
}
