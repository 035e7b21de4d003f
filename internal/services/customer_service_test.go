package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

func newCustomerService(t *testing.T) *CustomerService {
	t.Helper()
	return NewCustomerService(newTestDB(t, &domain.Customer{}))
}

func TestCustomerCreate_NormalizesName(t *testing.T) {
	s := newCustomerService(t)

	c, err := s.Create(context.Background(), "co-1", "  ada    lovelace ", "ada@example.com", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Ada Lovelace" {
		t.Fatalf("name = %q, want %q", c.Name, "Ada Lovelace")
	}
}

func TestCustomerCreate_BlankName(t *testing.T) {
	s := newCustomerService(t)

	if _, err := s.Create(context.Background(), "co-1", "   ", "", "", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCustomerGet_CompanyScoped(t *testing.T) {
	s := newCustomerService(t)
	ctx := context.Background()

	c, err := s.Create(ctx, "co-1", "Ada Lovelace", "", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Get(ctx, "co-other", c.ID); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound across companies, got %v", err)
	}
}

func TestCustomerUpdate_PartialFields(t *testing.T) {
	s := newCustomerService(t)
	ctx := context.Background()

	c, err := s.Create(ctx, "co-1", "Ada Lovelace", "old@example.com", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	email := "new@example.com"
	got, err := s.Update(ctx, "co-1", c.ID, nil, &email, nil, nil, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Email != email {
		t.Fatalf("email = %q, want %q", got.Email, email)
	}
	if got.Name != "Ada Lovelace" {
		t.Fatalf("untouched name changed: %q", got.Name)
	}

	// No fields supplied: returns the current row unchanged.
	same, err := s.Update(ctx, "co-1", c.ID, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("empty Update: %v", err)
	}
	if same.Email != email {
		t.Fatalf("empty update mutated row: %q", same.Email)
	}
}

func TestCustomerListPage_Defaults(t *testing.T) {
	s := newCustomerService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, "co-1", "Ada Lovelace", "", "", "", ""); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := s.ListPage(ctx, "co-1", 0, 0)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("list: total=%d len=%d, want 3/3", total, len(items))
	}

	items, total, err = s.ListPage(ctx, "co-empty", 1, 10)
	if err != nil {
		t.Fatalf("ListPage empty: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("empty company: total=%d len=%d", total, len(items))
	}
}
