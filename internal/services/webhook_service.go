// Package services – WebhookService
//
// This file implements WebhookService, which processes payment-provider
// webhook deliveries. Replay protection is handled by the idempotency
// ledger under a fixed per-provider scope keyed by the provider's event id;
// this service performs the side effects of a first delivery: recording the
// event for audit and settling the referenced invoice when the event says a
// payment succeeded.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

// WebhookScope is the ledger scope under which provider deliveries are
// deduplicated. The key within the scope is the provider's event id, so the
// same event id arriving twice is a replay no matter which endpoint node
// handled the first delivery.
const WebhookScope = "stripe:webhook"

// PaymentEvent is the subset of a provider event the service acts on.
type PaymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			InvoiceID string `json:"invoice_id"`
			CompanyID string `json:"company_id"`
		} `json:"object"`
	} `json:"data"`
}

// ErrBadEvent is returned when a delivery cannot be parsed or lacks an
// event id.
var ErrBadEvent = errors.New("malformed webhook event")

// WebhookService applies payment-provider events to the books.
type WebhookService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Invoices settles invoices referenced by successful payment events.
	Invoices *InvoiceService
}

// NewWebhookService constructs a WebhookService.
func NewWebhookService(db *gorm.DB, invoices *InvoiceService) *WebhookService {
	return &WebhookService{DB: db, Invoices: invoices}
}

// Parse decodes a raw delivery into a PaymentEvent. Deliveries without an
// event id are rejected; providers retry those, and without an id there is
// nothing to deduplicate on.
func (s *WebhookService) Parse(payload []byte) (*PaymentEvent, error) {
	var ev PaymentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, ErrBadEvent
	}
	if ev.ID == "" {
		return nil, ErrBadEvent
	}
	return &ev, nil
}

// Process applies a first-delivery event: it records the event row and, for
// payment-succeeded events that reference an invoice, marks that invoice
// paid. Unknown event types are recorded and otherwise ignored. A duplicate
// event row (e.g. racing deliveries that both passed the ledger) is treated
// as already processed.
func (s *WebhookService) Process(ctx context.Context, ev *PaymentEvent, payload []byte) error {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("webhook.event_id", ev.ID),
			attribute.String("webhook.type", ev.Type),
		),
	)
	defer span.End()

	if _, err := repo.CreateWebhookEvent(ctx, s.DB, "stripe", ev.ID, ev.Type, string(payload)); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil
		}
		return err
	}

	switch ev.Type {
	case "payment_intent.succeeded", "invoice.paid":
		if ev.Data.Object.InvoiceID == "" || ev.Data.Object.CompanyID == "" {
			return nil
		}
		_, err := s.Invoices.MarkPaid(ctx, ev.Data.Object.CompanyID, ev.Data.Object.InvoiceID)
		if err != nil && !errors.Is(err, ErrInvoiceNotFound) && !errors.Is(err, ErrBadTransition) {
			return err
		}
	}
	return nil
}
