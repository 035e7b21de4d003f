// Package repo – Company and Member persistence.
//
// Permission override maps are stored serialized on their owning rows; the
// (de)serialization helpers here are the only place that shape is known, so
// services and handlers work with typed perm maps.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/perm"
)

// CreateCompany inserts a new Company row.
func CreateCompany(ctx context.Context, db *gorm.DB, name string) (*domain.Company, error) {
	c := &domain.Company{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCompany fetches a company by ID, or ErrNotFound.
func GetCompany(ctx context.Context, db *gorm.DB, id string) (*domain.Company, error) {
	var c domain.Company
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateMember inserts a new Member row; a (company_id, user_id) collision
// surfaces as ErrDuplicate.
func CreateMember(ctx context.Context, db *gorm.DB, m *domain.Member) (*domain.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// GetMember fetches a member by ID within a company, or ErrNotFound.
func GetMember(ctx context.Context, db *gorm.DB, id, companyID string) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMemberByUser fetches the member row for an authenticated user id, or
// ErrNotFound. This is the lookup made on every authorized request.
func GetMemberByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns all members of a company ordered by name.
func ListMembers(ctx context.Context, db *gorm.DB, companyID string) ([]domain.Member, error) {
	var out []domain.Member
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// UpdateMemberOverrides replaces the serialized per-user permission
// overrides of a member. Returns ErrNotFound when the member is missing.
func UpdateMemberOverrides(ctx context.Context, db *gorm.DB, id, companyID string, ov perm.Overrides) error {
	raw, err := json.Marshal(ov)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("overrides", string(raw))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateCompanyRoleOverrides replaces the serialized per-role permission
// overrides of a company. Returns ErrNotFound when the company is missing.
func UpdateCompanyRoleOverrides(ctx context.Context, db *gorm.DB, id string, ov perm.RoleOverrides) error {
	raw, err := json.Marshal(ov)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ?", id).
		Update("role_overrides", string(raw))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MemberOverrides decodes the member's partial permission map. An empty or
// missing column yields a nil map (no overrides), never an error. A corrupt
// column is logged and treated the same way, which reverts the member to
// role defaults rather than failing the request.
func MemberOverrides(m *domain.Member) perm.Overrides {
	if m == nil || m.Overrides == "" {
		return nil
	}
	var ov perm.Overrides
	if err := json.Unmarshal([]byte(m.Overrides), &ov); err != nil {
		log.Warn().Err(err).Str("member_id", m.ID).Msg("corrupt member overrides column, falling back to role defaults")
		return nil
	}
	return ov
}

// CompanyRoleOverrides decodes the company's role → partial map table. An
// empty or missing column yields a nil map, never an error. A corrupt column
// is logged and treated the same way.
func CompanyRoleOverrides(c *domain.Company) perm.RoleOverrides {
	if c == nil || c.RoleOverrides == "" {
		return nil
	}
	var ov perm.RoleOverrides
	if err := json.Unmarshal([]byte(c.RoleOverrides), &ov); err != nil {
		log.Warn().Err(err).Str("company_id", c.ID).Msg("corrupt role overrides column, falling back to role defaults")
		return nil
	}
	return ov
}
