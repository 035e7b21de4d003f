// Package repo – Invoice persistence.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

// CreateInvoice inserts a new Invoice row. The invoice number is unique per
// deployment; a collision surfaces as ErrDuplicate.
func CreateInvoice(ctx context.Context, db *gorm.DB, inv *domain.Invoice) (*domain.Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = domain.InvoiceStatusDraft
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return inv, nil
}

// GetInvoice fetches an invoice by ID within a company, or ErrNotFound.
func GetInvoice(ctx context.Context, db *gorm.DB, id, companyID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CountInvoices returns the number of invoices for companyID.
func CountInvoices(ctx context.Context, db *gorm.DB, companyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("company_id = ?", companyID).
		Count(&total).Error
	return total, err
}

// ListInvoicesPage returns a page of invoices for companyID ordered by
// creation time descending.
func ListInvoicesPage(ctx context.Context, db *gorm.DB, companyID string, offset, limit int) ([]domain.Invoice, error) {
	var out []domain.Invoice
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateInvoiceStatus applies a status change; when the new status is
// "paid" the paid_at timestamp is stamped as well. Returns ErrNotFound when
// the invoice does not exist in the company.
func UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, id, companyID, status string) error {
	updates := map[string]any{"status": status}
	if status == domain.InvoiceStatusPaid {
		updates["paid_at"] = time.Now().UTC()
	}
	res := db.WithContext(ctx).
		Model(&domain.Invoice{}).
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
