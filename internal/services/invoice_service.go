// Package services – InvoiceService
//
// This file implements InvoiceService: issuing invoices against customers
// (optionally tied to a job), company-scoped lookups and pagination, and
// status transitions (draft → sent → paid | void). Paying stamps paid_at in
// the repository layer.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

// invoiceTransitions enumerates the allowed status moves. Paid and void are
// terminal; a draft may be voided without ever being sent.
var invoiceTransitions = map[string][]string{
	domain.InvoiceStatusDraft: {domain.InvoiceStatusSent, domain.InvoiceStatusVoid},
	domain.InvoiceStatusSent:  {domain.InvoiceStatusPaid, domain.InvoiceStatusVoid},
	domain.InvoiceStatusPaid:  {},
	domain.InvoiceStatusVoid:  {},
}

// InvoiceService provides company-scoped invoice operations.
type InvoiceService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{DB: db}
}

// Create issues a new draft invoice for a customer. The invoice number must
// be unique within the company; totals are integer cents and must be
// non-negative.
func (s *InvoiceService) Create(ctx context.Context, companyID, customerID, number string, jobID *string, totalCents int64, currency string, dueAt *time.Time) (*domain.Invoice, error) {
	tr := otel.Tracer("services/InvoiceService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("company.id", companyID),
			attribute.String("invoice.number", number),
		),
	)
	defer span.End()

	number = strings.TrimSpace(number)
	if number == "" || totalCents < 0 {
		return nil, ErrValidation
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, ErrValidation
	}

	if _, err := repo.GetCustomer(ctx, s.DB, customerID, companyID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if jobID != nil {
		if _, err := repo.GetJob(ctx, s.DB, *jobID, companyID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrJobNotFound
			}
			return nil, err
		}
	}

	inv, err := repo.CreateInvoice(ctx, s.DB, &domain.Invoice{
		CompanyID:  companyID,
		CustomerID: customerID,
		JobID:      jobID,
		Number:     number,
		Status:     domain.InvoiceStatusDraft,
		TotalCents: totalCents,
		Currency:   currency,
		DueAt:      dueAt,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateInvoiceNumber
		}
		return nil, err
	}
	return inv, nil
}

// Get fetches an invoice by ID within the company.
func (s *InvoiceService) Get(ctx context.Context, companyID, id string) (*domain.Invoice, error) {
	inv, err := repo.GetInvoice(ctx, s.DB, id, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return inv, nil
}

// ListPage returns a page of the company's invoices plus the total count.
func (s *InvoiceService) ListPage(ctx context.Context, companyID string, page, pageSize int) ([]domain.Invoice, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountInvoices(ctx, s.DB, companyID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Invoice{}, 0, nil
	}

	items, err := repo.ListInvoicesPage(ctx, s.DB, companyID, offset, pageSize)
	return items, total, err
}

// ChangeStatus moves an invoice to the requested status if the transition
// is allowed from its current state.
func (s *InvoiceService) ChangeStatus(ctx context.Context, companyID, id, status string) (*domain.Invoice, error) {
	tr := otel.Tracer("services/InvoiceService")
	ctx, span := tr.Start(ctx, "ChangeStatus",
		trace.WithAttributes(
			attribute.String("invoice.id", id),
			attribute.String("invoice.status", status),
		),
	)
	defer span.End()

	if _, ok := invoiceTransitions[status]; !ok {
		return nil, ErrBadStatus
	}

	inv, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(invoiceTransitions, inv.Status, status) {
		return nil, ErrBadTransition
	}

	if err := repo.UpdateInvoiceStatus(ctx, s.DB, id, companyID, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return s.Get(ctx, companyID, id)
}

// MarkPaid moves a sent invoice to paid. It exists so payment webhooks can
// settle invoices without knowing the transition table.
func (s *InvoiceService) MarkPaid(ctx context.Context, companyID, id string) (*domain.Invoice, error) {
	return s.ChangeStatus(ctx, companyID, id, domain.InvoiceStatusPaid)
}
