// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Customer
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a customer is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCustomer inserts a new Customer row scoped to companyID.
func CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) (*domain.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCustomer fetches a single customer by ID within a company. If the
// record does not exist, it returns ErrNotFound.
func GetCustomer(ctx context.Context, db *gorm.DB, id, companyID string) (*domain.Customer, error) {
	var c domain.Customer
	err := db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountCustomers returns the total number of customers for companyID.
func CountCustomers(ctx context.Context, db *gorm.DB, companyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("company_id = ?", companyID).
		Count(&total).Error
	return total, err
}

// ListCustomersPage returns a paginated slice of customers for companyID,
// ordered by creation time descending. Use CountCustomers to obtain the
// total for pagination metadata.
func ListCustomersPage(ctx context.Context, db *gorm.DB, companyID string, offset, limit int) ([]domain.Customer, error) {
	var out []domain.Customer
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateCustomer applies the given column updates to a customer identified
// by id within companyID. If no rows are affected, it returns ErrNotFound.
func UpdateCustomer(ctx context.Context, db *gorm.DB, id, companyID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
