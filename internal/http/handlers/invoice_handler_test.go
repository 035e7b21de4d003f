package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

func TestCreateInvoice_Defaults(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)

	w := doJSON(r, http.MethodPost, "/invoices",
		`{"customer_id":"`+cust.ID+`","number":"INV-0001","total_cents":12500}`,
		map[string]string{"X-Company-ID": cid})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var inv domain.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if inv.Status != domain.InvoiceStatusDraft {
		t.Fatalf("status = %q, want draft", inv.Status)
	}
	if inv.Currency != "USD" {
		t.Fatalf("currency = %q, want USD default", inv.Currency)
	}
	if inv.TotalCents != 12500 {
		t.Fatalf("total_cents = %d", inv.TotalCents)
	}
}

func TestCreateInvoice_DuplicateNumber(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)
	hdr := map[string]string{"X-Company-ID": cid}

	body := `{"customer_id":"` + cust.ID + `","number":"INV-0001","total_cents":100}`
	if w := doJSON(r, http.MethodPost, "/invoices", body, hdr); w.Code != http.StatusCreated {
		t.Fatalf("first status = %d", w.Code)
	}
	w := doJSON(r, http.MethodPost, "/invoices", body, hdr)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeConflict {
		t.Fatalf("code = %q, want conflict", er.Code)
	}
}

func TestCreateInvoice_UnknownReferences(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)
	hdr := map[string]string{"X-Company-ID": cid}

	w := doJSON(r, http.MethodPost, "/invoices",
		`{"customer_id":"`+uuid.NewString()+`","number":"INV-0002"}`, hdr)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown customer status = %d, want 404", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/invoices",
		`{"customer_id":"`+cust.ID+`","number":"INV-0003","job_id":"`+uuid.NewString()+`"}`, hdr)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d, want 404", w.Code)
	}
}

func TestChangeInvoiceStatus_PayingStampsPaidAt(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)
	hdr := map[string]string{"X-Company-ID": cid}

	create := doJSON(r, http.MethodPost, "/invoices",
		`{"customer_id":"`+cust.ID+`","number":"INV-0010","total_cents":5000}`, hdr)
	if create.Code != http.StatusCreated {
		t.Fatalf("create status = %d", create.Code)
	}
	var inv domain.Invoice
	_ = json.Unmarshal(create.Body.Bytes(), &inv)

	// draft → paid skips sending and is rejected.
	if w := doJSON(r, http.MethodPatch, "/invoices/"+inv.ID+"/status", `{"status":"paid"}`, hdr); w.Code != http.StatusConflict {
		t.Fatalf("draft→paid status = %d, want 409", w.Code)
	}

	if w := doJSON(r, http.MethodPatch, "/invoices/"+inv.ID+"/status", `{"status":"sent"}`, hdr); w.Code != http.StatusOK {
		t.Fatalf("draft→sent status = %d, body = %s", w.Code, w.Body.String())
	}

	paid := doJSON(r, http.MethodPatch, "/invoices/"+inv.ID+"/status", `{"status":"paid"}`, hdr)
	if paid.Code != http.StatusOK {
		t.Fatalf("sent→paid status = %d, body = %s", paid.Code, paid.Body.String())
	}
	var got domain.Invoice
	if err := json.Unmarshal(paid.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != domain.InvoiceStatusPaid {
		t.Fatalf("status = %q, want paid", got.Status)
	}
	if got.PaidAt == nil {
		t.Fatal("paid_at not stamped")
	}

	// paid is terminal.
	if w := doJSON(r, http.MethodPatch, "/invoices/"+inv.ID+"/status", `{"status":"void"}`, hdr); w.Code != http.StatusConflict {
		t.Fatalf("paid→void status = %d, want 409", w.Code)
	}
}

func TestChangeInvoiceStatus_Errors(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	hdr := map[string]string{"X-Company-ID": cid}

	if w := doJSON(r, http.MethodPatch, "/invoices/nope/status", `{"status":"sent"}`, hdr); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
	if w := doJSON(r, http.MethodPatch, "/invoices/"+uuid.NewString()+"/status", `{"status":"sent"}`, hdr); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", w.Code)
	}
	if w := doJSON(r, http.MethodPatch, "/invoices/"+uuid.NewString()+"/status", `{"status":"shredded"}`, hdr); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown target status = %d, want 400", w.Code)
	}
}

func TestListInvoices_Paginated(t *testing.T) {
	db := newAPIDB(t)
	r, _ := newAPIRouter(db)
	cid := seedCompany(t, db)
	cust := seedCustomer(t, db, cid)
	hdr := map[string]string{"X-Company-ID": cid}

	for _, num := range []string{"INV-1", "INV-2", "INV-3"} {
		w := doJSON(r, http.MethodPost, "/invoices",
			`{"customer_id":"`+cust.ID+`","number":"`+num+`","total_cents":100}`, hdr)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed %s: status = %d", num, w.Code)
		}
	}

	w := doJSON(r, http.MethodGet, "/invoices?page=2&page_size=2", "", hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListInvoicesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Invoices) != 1 || resp.Pagination.Total != 3 || resp.Pagination.HasNext {
		t.Fatalf("page = %d items, pagination = %+v", len(resp.Invoices), resp.Pagination)
	}
}
