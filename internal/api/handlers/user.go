package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/domain/user"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
)

// UserHandler serves the caller's profile and access state
type UserHandler struct {
	userService user.Service
	guard       entitlement.Guard
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService user.Service, guard entitlement.Guard, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		guard:       guard,
		logger:      log,
	}
}

// Profile returns the caller's profile
// @Summary Get profile
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ProfileDTO "Profile"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Failure 404 {object} utils.ErrorResponse "Profile not found"
// @Router /user/profile [get]
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ToProfileDTO(profile))
}

// Subscription reports the caller's entitlement without denying access
// @Summary Get subscription status
// @Description Returns active, expired or none with the plan details behind it
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.EntitlementResponse "Entitlement"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Router /user/subscription [get]
func (h *UserHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	verdict, err := h.guard.Evaluate(r.Context(), userID)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"user_id": userID,
		}).WarnWithErr(err, "Entitlement lookup failed")
		utils.WriteAppError(w, err)
		return
	}

	middleware.AddLogField(w, "entitlement", verdict.Status)
	utils.WriteSuccess(w, http.StatusOK, dto.ToEntitlementResponse(verdict))
}
