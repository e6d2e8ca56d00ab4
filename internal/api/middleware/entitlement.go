package middleware

import (
	"context"
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
)

// VerdictKey is the context key for the entitlement verdict
const VerdictKey ContextKey = "verdict"

// RequireEntitlement admits only users whose current entitlement is
// active. It must run after AuthMiddleware. Users who never paid get 403,
// users whose entitlement lapsed get 401, and lookup failures deny with 403.
func RequireEntitlement(guard entitlement.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				utils.WriteError(w, errors.Unauthorized("User not authenticated"))
				return
			}

			verdict, err := guard.Evaluate(r.Context(), userID)
			AddLogField(w, "entitlement", verdict.Status)
			if err != nil {
				utils.WriteError(w, errors.EntitlementDenied("Unable to verify subscription", http.StatusForbidden))
				return
			}

			switch verdict.Status {
			case entitlement.VerdictActive:
				ctx := context.WithValue(r.Context(), VerdictKey, verdict)
				next.ServeHTTP(w, r.WithContext(ctx))
			case entitlement.VerdictExpired:
				utils.WriteError(w, errors.EntitlementDenied("Subscription expired", http.StatusUnauthorized))
			default:
				utils.WriteError(w, errors.EntitlementDenied("No active subscription", http.StatusForbidden))
			}
		})
	}
}

// GetVerdict returns the verdict stored by RequireEntitlement
func GetVerdict(r *http.Request) (entitlement.Verdict, bool) {
	v, ok := r.Context().Value(VerdictKey).(entitlement.Verdict)
	return v, ok
}
