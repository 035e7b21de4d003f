// Package repo – Lead persistence.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

// CreateLead inserts a new Lead row.
func CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) (*domain.Lead, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = domain.LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// GetLead fetches a lead by ID within a company, or ErrNotFound.
func GetLead(ctx context.Context, db *gorm.DB, id, companyID string) (*domain.Lead, error) {
	var l domain.Lead
	err := db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountLeads returns the number of leads for companyID.
func CountLeads(ctx context.Context, db *gorm.DB, companyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("company_id = ?", companyID).
		Count(&total).Error
	return total, err
}

// ListLeadsPage returns a page of leads for companyID ordered by creation
// time descending.
func ListLeadsPage(ctx context.Context, db *gorm.DB, companyID string, offset, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateLeadStatus sets the pipeline status of a lead. Returns ErrNotFound
// when the lead does not exist in the company.
func UpdateLeadStatus(ctx context.Context, db *gorm.DB, id, companyID, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
