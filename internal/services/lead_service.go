// Package services – LeadService
//
// This file implements LeadService for the sales pipeline: capturing leads,
// company-scoped lookups and pagination, and status moves. The lead pipeline
// is forward-only (new → contacted → qualified → won | lost); won leads can
// be converted into customers.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

// leadTransitions enumerates the allowed pipeline moves. Lost is reachable
// from every non-terminal state; won and lost are terminal.
var leadTransitions = map[string][]string{
	domain.LeadStatusNew:       {domain.LeadStatusContacted, domain.LeadStatusLost},
	domain.LeadStatusContacted: {domain.LeadStatusQualified, domain.LeadStatusLost},
	domain.LeadStatusQualified: {domain.LeadStatusWon, domain.LeadStatusLost},
	domain.LeadStatusWon:       {},
	domain.LeadStatusLost:      {},
}

// LeadService provides company-scoped sales-pipeline operations.
type LeadService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Customers is used to convert won leads into customer accounts.
	Customers *CustomerService
}

// NewLeadService constructs a LeadService.
func NewLeadService(db *gorm.DB, customers *CustomerService) *LeadService {
	return &LeadService{DB: db, Customers: customers}
}

// Create captures a new lead in the pipeline. New leads always start in the
// "new" state.
func (s *LeadService) Create(ctx context.Context, companyID, name, email, phone, source, notes string) (*domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("company.id", companyID)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidation
	}
	return repo.CreateLead(ctx, s.DB, &domain.Lead{
		CompanyID: companyID,
		Name:      name,
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		Source:    strings.TrimSpace(source),
		Status:    domain.LeadStatusNew,
		Notes:     strings.TrimSpace(notes),
	})
}

// Get fetches a lead by ID within the company.
func (s *LeadService) Get(ctx context.Context, companyID, id string) (*domain.Lead, error) {
	l, err := repo.GetLead(ctx, s.DB, id, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListPage returns a page of the company's leads plus the total count.
func (s *LeadService) ListPage(ctx context.Context, companyID string, page, pageSize int) ([]domain.Lead, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountLeads(ctx, s.DB, companyID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Lead{}, 0, nil
	}

	items, err := repo.ListLeadsPage(ctx, s.DB, companyID, offset, pageSize)
	return items, total, err
}

// ChangeStatus moves a lead along the pipeline if the transition is allowed
// from its current state.
func (s *LeadService) ChangeStatus(ctx context.Context, companyID, id, status string) (*domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "ChangeStatus",
		trace.WithAttributes(
			attribute.String("lead.id", id),
			attribute.String("lead.status", status),
		),
	)
	defer span.End()

	if _, ok := leadTransitions[status]; !ok {
		return nil, ErrBadStatus
	}

	l, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(leadTransitions, l.Status, status) {
		return nil, ErrBadTransition
	}

	if err := repo.UpdateLeadStatus(ctx, s.DB, id, companyID, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	l.Status = status
	return l, nil
}

// Convert turns a won lead into a customer account, carrying over its
// contact details. The lead must already be in the won state.
func (s *LeadService) Convert(ctx context.Context, companyID, id string) (*domain.Customer, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Convert",
		trace.WithAttributes(attribute.String("lead.id", id)),
	)
	defer span.End()

	l, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.LeadStatusWon {
		return nil, ErrBadTransition
	}
	return s.Customers.Create(ctx, companyID, l.Name, l.Email, l.Phone, "", l.Notes)
}
