// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the idempotency
// ledger used to implement at-most-once semantics for mutating endpoints.
//
// The unique index on (scope, key) is the concurrency primitive: two
// concurrent requests racing to insert the same pair cannot both win, and
// the loser surfaces as ErrDuplicate so the service layer can re-read the
// winner's record.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

// ErrDuplicate indicates that a record already exists for the given unique
// tuple (idempotency (scope, key), assignment (job, member), and so on).
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the ledger record for (scope, key) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a "processing" record for (scope, key) and
// returns ErrDuplicate on unique violation, leaving the existing record
// untouched.
func CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, requestHash string) (*domain.IdempotencyRecord, error) {
	now := time.Now().UTC()
	rec := &domain.IdempotencyRecord{
		ID:          uuid.NewString(),
		Scope:       scope,
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdemStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// CompleteIdempotency transitions the (scope, key) record to "completed",
// persisting the response for future replay. It is idempotent: completing an
// already-completed record is a no-op.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, scope, key string, responseStatus int, responseBody string) error {
	res := db.WithContext(ctx).
		Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND key = ?", scope, key).
		Updates(map[string]any{
			"status":          domain.IdemStatusCompleted,
			"response_status": responseStatus,
			"response_body":   responseBody,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasCompletedIdempotency reports whether a completed ledger record exists for
// key under any scope with the given prefix. The transport layer uses it to
// let replayed retries bypass rate limiting before the handler runs.
func HasCompletedIdempotency(ctx context.Context, db *gorm.DB, scopePrefix, key string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.IdempotencyRecord{}).
		Where("scope LIKE ? AND key = ? AND status = ?", scopePrefix+"%", key, domain.IdemStatusCompleted).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteIdempotency removes a ledger record. Used to reclaim records stuck
// in "processing" past the staleness window.
func DeleteIdempotency(ctx context.Context, db *gorm.DB, scope, key string) error {
	return db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		Delete(&domain.IdempotencyRecord{}).Error
}

// isUniqueViolation detects unique-constraint violations across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
