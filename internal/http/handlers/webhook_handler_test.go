package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/services"
	"github.com/fieldline/go-fieldservice-backend/internal/utils"
)

// seedSentInvoice creates an invoice in the sent state so a payment event can
// settle it.
func seedSentInvoice(t *testing.T, r http.Handler, cid, customerID string) domain.Invoice {
	t.Helper()
	hdr := map[string]string{"X-Company-ID": cid}
	w := doJSON(r, http.MethodPost, "/invoices",
		`{"customer_id":"`+customerID+`","number":"INV-WH-1","total_cents":9900}`, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed invoice: status = %d, body = %s", w.Code, w.Body.String())
	}
	var inv domain.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	if w := doJSON(r, http.MethodPatch, "/invoices/"+inv.ID+"/status", `{"status":"sent"}`, hdr); w.Code != http.StatusOK {
		t.Fatalf("send invoice: status = %d", w.Code)
	}
	return inv
}

func TestPaymentWebhook_FirstDeliverySettlesInvoice(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)
	inv := seedSentInvoice(t, r, cid, cust.ID)

	payload := `{"id":"evt_100","type":"payment_intent.succeeded","data":{"object":{"invoice_id":"` + inv.ID + `","company_id":"` + cid + `"}}}`

	w := doJSON(r, http.MethodPost, "/webhooks/payments", payload, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("ack body = %s", w.Body.String())
	}

	var got domain.Invoice
	if err := db.First(&got, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if got.Status != domain.InvoiceStatusPaid {
		t.Fatalf("invoice status = %q, want paid", got.Status)
	}
	if got.PaidAt == nil {
		t.Fatal("paid_at not stamped")
	}

	var audit domain.WebhookEvent
	if err := db.First(&audit, "provider = ? AND event_id = ?", "stripe", "evt_100").Error; err != nil {
		t.Fatalf("audit row: %v", err)
	}
	if audit.Type != "payment_intent.succeeded" {
		t.Fatalf("audit type = %q", audit.Type)
	}
}

func TestPaymentWebhook_DuplicateDeliveryIsAcknowledgedOnce(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)
	inv := seedSentInvoice(t, r, cid, cust.ID)

	payload := `{"id":"evt_200","type":"invoice.paid","data":{"object":{"invoice_id":"` + inv.ID + `","company_id":"` + cid + `"}}}`

	first := doJSON(r, http.MethodPost, "/webhooks/payments", payload, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, body = %s", first.Code, first.Body.String())
	}

	// Provider redelivery: same generic ack, no reprocessing.
	second := doJSON(r, http.MethodPost, "/webhooks/payments", payload, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, body = %s", second.Code, second.Body.String())
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("duplicate ack diverged: %s vs %s", second.Body.String(), first.Body.String())
	}

	var n int64
	if err := db.Model(&domain.WebhookEvent{}).Where("event_id = ?", "evt_200").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("audit rows = %d, want exactly 1", n)
	}
}

func TestPaymentWebhook_InFlightDeliveryIsNotAcknowledged(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)

	// A ledger row stuck in processing means a previous delivery attempt never
	// completed. Acknowledging the retry with 2xx would end the provider's
	// redelivery cycle while the event was never applied.
	payload := `{"id":"evt_500","type":"invoice.paid"}`
	rec := &domain.IdempotencyRecord{
		ID:          uuid.NewString(),
		Scope:       services.WebhookScope,
		Key:         "evt_500",
		RequestHash: utils.CanonicalHash([]byte(payload)),
		Status:      domain.IdemStatusProcessing,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed ledger row: %v", err)
	}

	w := doJSON(r, http.MethodPost, "/webhooks/payments", payload, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("in-flight redelivery status = %d, want 409", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeConflict {
		t.Fatalf("code = %q, want %q", er.Code, ErrCodeConflict)
	}

	var n int64
	if err := db.Model(&domain.WebhookEvent{}).Where("event_id = ?", "evt_500").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("audit rows = %d, want 0", n)
	}
}

func TestPaymentWebhook_SameEventIDDifferentPayloadConflicts(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)

	first := doJSON(r, http.MethodPost, "/webhooks/payments",
		`{"id":"evt_300","type":"invoice.paid"}`, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, body = %s", first.Code, first.Body.String())
	}

	mutated := doJSON(r, http.MethodPost, "/webhooks/payments",
		`{"id":"evt_300","type":"payment_intent.succeeded"}`, nil)
	if mutated.Code != http.StatusConflict {
		t.Fatalf("mutated status = %d, want 409", mutated.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(mutated.Body.Bytes(), &er)
	if er.Error != "Idempotency key conflict" {
		t.Fatalf("legacy error field = %q", er.Error)
	}
}

func TestPaymentWebhook_MalformedDeliveries(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)

	if w := doJSON(r, http.MethodPost, "/webhooks/payments", `{not json`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d, want 400", w.Code)
	}
	// An event without an id has nothing to deduplicate on.
	if w := doJSON(r, http.MethodPost, "/webhooks/payments", `{"type":"invoice.paid"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d, want 400", w.Code)
	}
}

func TestPaymentWebhook_UnknownEventTypeIsRecordedAndIgnored(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)

	w := doJSON(r, http.MethodPost, "/webhooks/payments",
		`{"id":"evt_400","type":"customer.subscription.updated"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var audit domain.WebhookEvent
	if err := db.First(&audit, "event_id = ?", "evt_400").Error; err != nil {
		t.Fatalf("audit row: %v", err)
	}
}
