// Package services – CustomerService
//
// This file implements CustomerService, which owns the customer aggregate:
// creation with name normalization, company-scoped lookups, pagination, and
// partial updates. Predictable failures surface as service-level errors so
// handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

// CustomerService provides company-scoped customer operations.
type CustomerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NameMaxLen caps stored customer names by rune length.
	NameMaxLen int
	// NameLocale controls title casing of normalized names.
	NameLocale language.Tag
}

// NewCustomerService constructs a CustomerService with sane defaults.
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{DB: db, NameMaxLen: 120, NameLocale: language.English}
}

// Create inserts a new customer for the company. Names are trimmed,
// whitespace-collapsed, title-cased, and clipped.
func (s *CustomerService) Create(ctx context.Context, companyID, name, email, phone, address, notes string) (*domain.Customer, error) {
	tr := otel.Tracer("services/CustomerService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("company.id", companyID)),
	)
	defer span.End()

	name = s.normalizeName(name)
	if name == "" {
		return nil, ErrValidation
	}
	return repo.CreateCustomer(ctx, s.DB, &domain.Customer{
		CompanyID: companyID,
		Name:      name,
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		Address:   strings.TrimSpace(address),
		Notes:     strings.TrimSpace(notes),
	})
}

// Get fetches a customer by ID within the company.
func (s *CustomerService) Get(ctx context.Context, companyID, id string) (*domain.Customer, error) {
	c, err := repo.GetCustomer(ctx, s.DB, id, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListPage returns a page of the company's customers plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *CustomerService) ListPage(ctx context.Context, companyID string, page, pageSize int) ([]domain.Customer, int64, error) {
	tr := otel.Tracer("services/CustomerService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("company.id", companyID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountCustomers(ctx, s.DB, companyID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Customer{}, 0, nil
	}

	items, err := repo.ListCustomersPage(ctx, s.DB, companyID, offset, pageSize)
	return items, total, err
}

// Update applies a partial update to a customer. Only non-nil fields change.
func (s *CustomerService) Update(ctx context.Context, companyID, id string, name, email, phone, address, notes *string) (*domain.Customer, error) {
	updates := map[string]any{}
	if name != nil {
		n := s.normalizeName(*name)
		if n == "" {
			return nil, ErrValidation
		}
		updates["name"] = n
	}
	if email != nil {
		updates["email"] = strings.TrimSpace(*email)
	}
	if phone != nil {
		updates["phone"] = strings.TrimSpace(*phone)
	}
	if address != nil {
		updates["address"] = strings.TrimSpace(*address)
	}
	if notes != nil {
		updates["notes"] = strings.TrimSpace(*notes)
	}
	if len(updates) == 0 {
		return s.Get(ctx, companyID, id)
	}
	if err := repo.UpdateCustomer(ctx, s.DB, id, companyID, updates); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return s.Get(ctx, companyID, id)
}

// Stats returns the count and last-modified timestamp used for ETags.
func (s *CustomerService) Stats(ctx context.Context, companyID string) (int64, *time.Time, error) {
	return repo.CustomersStats(ctx, s.DB, companyID)
}

// normalizeName trims, collapses whitespace, title-cases, and clips a name.
func (s *CustomerService) normalizeName(name string) string {
	name = nameSpaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
	if name == "" {
		return ""
	}
	name = cases.Title(s.localeOrDefault()).String(strings.ToLower(name))
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		name = string([]rune(name)[:s.NameMaxLen])
	}
	return name
}

func (s *CustomerService) localeOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}

// nameSpaceRE collapses consecutive whitespace to a single space.
var nameSpaceRE = regexp.MustCompile(`\s+`)
