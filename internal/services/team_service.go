// Package services – TeamService
//
// This file implements TeamService, which owns team administration and the
// permission surface: adding members, serving each member's effective
// permission map, and maintaining the two persisted override layers (per-user
// overrides on the member row, per-role overrides on the company row).
// Resolution itself is delegated to the perm package; this service validates
// flag and role names at the boundary and handles storage.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/perm"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

// TeamService provides team membership and permission operations.
type TeamService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Resolver computes effective permission maps. A nil resolver falls back
	// to the built-in role defaults.
	Resolver *perm.Resolver

	// NameLocale controls title casing of normalized member names.
	NameLocale language.Tag
}

// NewTeamService constructs a TeamService using the built-in role defaults.
func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{DB: db, Resolver: perm.NewResolver(nil), NameLocale: language.English}
}

// CreateCompany registers a new tenant.
func (s *TeamService) CreateCompany(ctx context.Context, name string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidation
	}
	return repo.CreateCompany(ctx, s.DB, name)
}

// AddMember adds a user to the company's team under a built-in role. Names
// are trimmed, whitespace-collapsed, and title-cased.
func (s *TeamService) AddMember(ctx context.Context, companyID, userID, name, email, role string) (*domain.Member, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "AddMember",
		trace.WithAttributes(
			attribute.String("company.id", companyID),
			attribute.String("member.role", role),
		),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	name = memberSpaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
	if userID == "" || name == "" {
		return nil, ErrValidation
	}
	if role == "" {
		role = perm.RoleTechnician
	}
	if !perm.ValidRole(role) {
		return nil, ErrValidation
	}
	name = cases.Title(s.localeOrDefault()).String(strings.ToLower(name))

	m, err := repo.CreateMember(ctx, s.DB, &domain.Member{
		CompanyID: companyID,
		UserID:    userID,
		Name:      name,
		Email:     strings.TrimSpace(email),
		Role:      role,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateMember
		}
		return nil, err
	}
	return m, nil
}

// ListMembers returns all members of the company.
func (s *TeamService) ListMembers(ctx context.Context, companyID string) ([]domain.Member, error) {
	return repo.ListMembers(ctx, s.DB, companyID)
}

// GetMember fetches a member by ID within the company.
func (s *TeamService) GetMember(ctx context.Context, companyID, id string) (*domain.Member, error) {
	m, err := repo.GetMember(ctx, s.DB, id, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

// MemberAccess returns a member's role and effective permission map,
// resolved from built-in defaults, company role overrides, and the member's
// own overrides.
func (s *TeamService) MemberAccess(ctx context.Context, companyID, memberID string) (string, perm.Map, error) {
	m, err := s.GetMember(ctx, companyID, memberID)
	if err != nil {
		return "", nil, err
	}
	return s.access(ctx, m)
}

// Access returns the calling user's role and effective permission map. The
// user is located by their user ID across companies.
func (s *TeamService) Access(ctx context.Context, userID string) (string, perm.Map, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "Access",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	m, err := repo.GetMemberByUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrMemberNotFound
		}
		return "", nil, err
	}
	return s.access(ctx, m)
}

// access resolves the effective map for a loaded member row.
func (s *TeamService) access(ctx context.Context, m *domain.Member) (string, perm.Map, error) {
	var companyOv perm.RoleOverrides
	c, err := repo.GetCompany(ctx, s.DB, m.CompanyID)
	switch {
	case err == nil:
		companyOv = repo.CompanyRoleOverrides(c)
	case errors.Is(err, repo.ErrNotFound):
		// Member without a company row still resolves against defaults.
	default:
		return "", nil, err
	}
	return m.Role, s.resolver().Resolve(m.Role, companyOv, repo.MemberOverrides(m)), nil
}

// SetMemberOverrides replaces a member's permission overrides. Every flag
// name must be one of the closed capability set; the map may be partial and
// explicit false values are preserved.
func (s *TeamService) SetMemberOverrides(ctx context.Context, companyID, memberID string, overrides map[string]bool) (*domain.Member, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "SetMemberOverrides",
		trace.WithAttributes(attribute.String("member.id", memberID)),
	)
	defer span.End()

	ov, err := toOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetMember(ctx, companyID, memberID); err != nil {
		return nil, err
	}
	if err := repo.UpdateMemberOverrides(ctx, s.DB, memberID, companyID, ov); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return s.GetMember(ctx, companyID, memberID)
}

// SetRoleOverrides replaces the company-level overrides for one role. The
// role must be built-in and every flag name must be valid.
func (s *TeamService) SetRoleOverrides(ctx context.Context, companyID, role string, overrides map[string]bool) (perm.RoleOverrides, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "SetRoleOverrides",
		trace.WithAttributes(attribute.String("member.role", role)),
	)
	defer span.End()

	if !perm.ValidRole(role) {
		return nil, ErrValidation
	}
	ov, err := toOverrides(overrides)
	if err != nil {
		return nil, err
	}

	c, err := repo.GetCompany(ctx, s.DB, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	all := repo.CompanyRoleOverrides(c)
	if all == nil {
		all = perm.RoleOverrides{}
	}
	if len(ov) == 0 {
		delete(all, role)
	} else {
		all[role] = ov
	}
	if err := repo.UpdateCompanyRoleOverrides(ctx, s.DB, companyID, all); err != nil {
		return nil, err
	}
	return all, nil
}

// MergedDefaults returns, per built-in role, the full permission map after
// the company's role overrides are applied. Used by the admin UI to show
// what each role currently grants.
func (s *TeamService) MergedDefaults(ctx context.Context, companyID string) (map[string]perm.Map, error) {
	ov, err := s.RoleOverrides(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.resolver().MergeDefaults(ov), nil
}

// RoleOverrides returns the company's persisted per-role overrides.
func (s *TeamService) RoleOverrides(ctx context.Context, companyID string) (perm.RoleOverrides, error) {
	c, err := repo.GetCompany(ctx, s.DB, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	ov := repo.CompanyRoleOverrides(c)
	if ov == nil {
		ov = perm.RoleOverrides{}
	}
	return ov, nil
}

func (s *TeamService) resolver() *perm.Resolver {
	if s.Resolver == nil {
		return perm.NewResolver(nil)
	}
	return s.Resolver
}

func (s *TeamService) localeOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}

// toOverrides validates raw flag names and converts them into a partial
// permission map. Unknown flags are rejected.
func toOverrides(raw map[string]bool) (perm.Overrides, error) {
	ov := perm.Overrides{}
	for name, v := range raw {
		if !perm.ValidFlag(name) {
			return nil, ErrValidation
		}
		ov[perm.Flag(name)] = v
	}
	return ov, nil
}

// memberSpaceRE collapses consecutive whitespace to a single space.
var memberSpaceRE = regexp.MustCompile(`\s+`)
