// Package domain – idempotency ledger model.
package domain

import "time"

// Idempotency record status values. A record is created as "processing" when
// a mutating handler begins, and transitions to "completed" exactly once,
// after the handler's side effects have been committed.
const (
	IdemStatusProcessing = "processing"
	IdemStatusCompleted  = "completed"
)

// IdempotencyRecord stores the outcome of a previously processed mutating
// request, keyed by (scope, key). It enables safe retries for POST/PATCH
// operations: a completed record replays the originally produced response
// without re-executing side effects, and the request hash detects callers
// that reuse a key for a semantically different payload.
type IdempotencyRecord struct {
	ID             string    `gorm:"type:char(36);primaryKey"`
	Scope          string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key            string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_scope_key,priority:2"`
	RequestHash    string    `gorm:"type:char(64);not null"`
	Status         string    `gorm:"type:varchar(16);not null;check:status IN ('processing','completed')"`
	ResponseStatus int       `gorm:"not null;default:0"`
	ResponseBody   string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency_records" }
