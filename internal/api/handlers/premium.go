package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
)

// Premium is the sample paid resource. RequireEntitlement has already
// admitted the caller and stored the verdict.
// @Summary Premium content
// @Tags Premium
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.EntitlementResponse "Access granted"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated or subscription expired"
// @Failure 403 {object} utils.ErrorResponse "No active subscription"
// @Router /premium [get]
func Premium(w http.ResponseWriter, r *http.Request) {
	verdict, ok := middleware.GetVerdict(r)
	if !ok {
		utils.WriteError(w, errors.Forbidden("No active subscription"))
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Access granted", dto.ToEntitlementResponse(verdict))
}
