// Payment webhook HTTP handler.
//
// POST /webhooks/payments receives provider deliveries. Dedup is by the
// provider's event id under a fixed ledger scope, so the same event arriving
// twice (provider retry, redelivery after a timeout) is acknowledged with a
// generic body instead of re-running side effects. Unlike client-facing
// endpoints, a duplicate here is not surfaced as a replayed business
// response: providers only need a 2xx acknowledgment.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldline/go-fieldservice-backend/internal/services"
)

// webhookAck is the generic acknowledgment body returned for both first
// deliveries and duplicates.
var webhookAck = gin.H{"status": "ok"}

// PaymentWebhook godoc
// @ID          paymentWebhook
// @Summary     Receive a payment-provider webhook
// @Description Applies the event once, keyed by the provider event id. Duplicate deliveries are acknowledged without side effects.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Success     200  {object} map[string]string "Acknowledged"
// @Failure     400  {object} handlers.ErrorResponse "Malformed event"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /webhooks/payments [post]
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	ev, err := h.webhooks.Parse(payload)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook event")
		return
	}

	ctx := c.Request.Context()

	outcome, _, err := h.ledger.Begin(ctx, services.WebhookScope, ev.ID, payload)
	if err != nil {
		// Fail closed: the provider will retry.
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "idempotency ledger unavailable")
		return
	}

	switch outcome {
	case services.OutcomeReplay:
		// Duplicate of a completed delivery: acknowledge without reprocessing.
		ok(c, http.StatusOK, webhookAck)
		return
	case services.OutcomeInProgress:
		// Another delivery of this event is mid-flight, or a previous attempt
		// died before completing. A 2xx here would stop the provider's retries
		// while the event may never have been applied, so keep it retrying.
		fail(c, http.StatusConflict, ErrCodeConflict, "event delivery in progress")
		return
	case services.OutcomeConflict:
		// Same event id with a different payload. Acknowledging would lose
		// the discrepancy; reject so the provider surfaces it.
		failIdem(c, http.StatusConflict, ErrCodeConflict, "Idempotency key conflict")
		return
	}

	if err := h.webhooks.Process(ctx, ev, payload); err != nil && !errors.Is(err, services.ErrBadEvent) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "webhook processing failed")
		return
	}

	if err := h.ledger.Complete(ctx, services.WebhookScope, ev.ID, http.StatusOK, `{"status":"ok"}`); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "idempotency ledger unavailable")
		return
	}
	ok(c, http.StatusOK, webhookAck)
}
