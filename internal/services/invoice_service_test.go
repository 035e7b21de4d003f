package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

func newInvoiceFixture(t *testing.T) (*InvoiceService, string, string) {
	t.Helper()
	db := newTestDB(t, &domain.Customer{}, &domain.Job{}, &domain.Invoice{})

	cust, err := repo.CreateCustomer(context.Background(), db, &domain.Customer{
		CompanyID: "co-1",
		Name:      "Ada Lovelace",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return NewInvoiceService(db), "co-1", cust.ID
}

func TestInvoiceCreate_Defaults(t *testing.T) {
	s, companyID, custID := newInvoiceFixture(t)

	inv, err := s.Create(context.Background(), companyID, custID, "INV-0001", nil, 12500, "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.Status != domain.InvoiceStatusDraft {
		t.Fatalf("new invoice status = %q, want draft", inv.Status)
	}
	if inv.Currency != "USD" {
		t.Fatalf("default currency = %q, want USD", inv.Currency)
	}
}

func TestInvoiceCreate_Validation(t *testing.T) {
	s, companyID, custID := newInvoiceFixture(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, companyID, custID, "", nil, 100, "USD", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank number: expected ErrValidation, got %v", err)
	}
	if _, err := s.Create(ctx, companyID, custID, "INV-1", nil, -1, "USD", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative total: expected ErrValidation, got %v", err)
	}
	if _, err := s.Create(ctx, companyID, custID, "INV-1", nil, 100, "DOLLARS", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad currency: expected ErrValidation, got %v", err)
	}
	if _, err := s.Create(ctx, companyID, "missing", "INV-1", nil, 100, "USD", nil); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("unknown customer: expected ErrCustomerNotFound, got %v", err)
	}
}

func TestInvoiceCreate_DuplicateNumber(t *testing.T) {
	s, companyID, custID := newInvoiceFixture(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, companyID, custID, "INV-0001", nil, 100, "USD", nil); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := s.Create(ctx, companyID, custID, "INV-0001", nil, 200, "USD", nil); !errors.Is(err, ErrDuplicateInvoiceNumber) {
		t.Fatalf("expected ErrDuplicateInvoiceNumber, got %v", err)
	}
}

func TestInvoiceChangeStatus_PaidStampsPaidAt(t *testing.T) {
	s, companyID, custID := newInvoiceFixture(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, companyID, custID, "INV-0001", nil, 100, "USD", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.ChangeStatus(ctx, companyID, inv.ID, domain.InvoiceStatusSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	paid, err := s.MarkPaid(ctx, companyID, inv.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.Status != domain.InvoiceStatusPaid {
		t.Fatalf("status = %q, want paid", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatal("paid_at not stamped")
	}
}

func TestInvoiceChangeStatus_Rejected(t *testing.T) {
	s, companyID, custID := newInvoiceFixture(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, companyID, custID, "INV-0001", nil, 100, "USD", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Drafts cannot be paid directly.
	if _, err := s.MarkPaid(ctx, companyID, inv.ID); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("draft → paid: expected ErrBadTransition, got %v", err)
	}
	if _, err := s.ChangeStatus(ctx, companyID, inv.ID, "overdue"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}

	// Void is terminal.
	if _, err := s.ChangeStatus(ctx, companyID, inv.ID, domain.InvoiceStatusVoid); err != nil {
		t.Fatalf("void: %v", err)
	}
	if _, err := s.ChangeStatus(ctx, companyID, inv.ID, domain.InvoiceStatusSent); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("void → sent: expected ErrBadTransition, got %v", err)
	}
}
