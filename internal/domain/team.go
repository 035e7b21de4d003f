// Package domain – team administration models.
//
// Member and Company carry the two persisted permission-override layers used
// by the permission resolver: per-user overrides live on the member row, and
// per-role company overrides live on the company row. Both are stored as
// serialized JSON (partial maps), so "flag absent" and "flag explicitly
// false" remain distinguishable after a round trip through the database.
package domain

import "time"

// Member represents a team member of a company. Role names the built-in
// permission role ("admin", "manager", "sales_rep", "technician",
// "dispatcher"); Overrides holds a serialized partial permission map that
// takes precedence over both the company role overrides and the built-in
// defaults for that role.
type Member struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	CompanyID string    `json:"company_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_member_company_user"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_member_company_user"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255)"`
	Role      string    `json:"role"       gorm:"type:varchar(32);not null;default:'technician'"`
	Overrides string    `json:"-"          gorm:"type:text"` // partial permission map, JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Member.
func (Member) TableName() string { return "members" }

// Company represents a tenant. RoleOverrides holds a serialized map of role
// name → partial permission map applied on top of the built-in defaults for
// every member of that role.
type Company struct {
	ID            string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	RoleOverrides string    `json:"-"    gorm:"type:text"` // role → partial permission map, JSON
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Company.
func (Company) TableName() string { return "companies" }

// WebhookEvent is an audit row recorded the first time a payment-provider
// webhook delivery is processed. Replay protection itself lives in the
// idempotency ledger (scope "stripe:webhook", keyed by the provider event
// id); this table only preserves what was received.
type WebhookEvent struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Provider  string    `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_webhook_provider_event,priority:1"`
	EventID   string    `json:"event_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_webhook_provider_event,priority:2"`
	Type      string    `json:"type"     gorm:"type:varchar(64);not null"`
	Payload   string    `json:"-"        gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for WebhookEvent.
func (WebhookEvent) TableName() string { return "webhook_events" }
