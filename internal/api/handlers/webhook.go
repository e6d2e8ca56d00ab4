package handlers

import (
	"io"
	"net/http"

	"github.com/pratik-mahalle/paygate/internal/api/dto"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/pkg/errors"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/utils"
)

// SignatureHeader carries the provider's payload signature
const SignatureHeader = "Stripe-Signature"

// maxWebhookBody bounds how much of a notification is read. Invoice events
// with many line items run well past 64KiB.
const maxWebhookBody = 1 << 20

// WebhookHandler receives billing provider notifications
type WebhookHandler struct {
	reconciler billing.Reconciler
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler billing.Reconciler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     log,
	}
}

// Stripe handles a provider notification. The body is read once and
// verified byte for byte. Events that change nothing are still
// acknowledged so the provider stops retrying them.
// @Summary Billing webhook
// @Tags Webhook
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Payload signature"
// @Success 200 {object} dto.WebhookAck "Event acknowledged"
// @Failure 400 {object} utils.ErrorResponse "Signature rejected or body too large"
// @Failure 500 {object} utils.ErrorResponse "Event could not be stored; the provider will retry"
// @Router /webhook [post]
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Unable to read request body"))
		return
	}

	event, outcome, err := h.reconciler.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader))
	if event != nil {
		middleware.AddLogField(w, "event_id", event.EventID())
		middleware.AddLogField(w, "event_kind", event.Kind())
	}
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	middleware.AddLogField(w, "outcome", outcome)
	utils.WriteJSON(w, http.StatusOK, dto.WebhookAck{Received: true})
}
