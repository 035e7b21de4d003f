// Package domain defines the persistence models for the field-service
// application: customers, jobs, job assignments, invoices, and sales leads.
// These types are mapped with GORM and form the core data layer shared by
// the repository and service layers.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Job status values. Transitions are validated in the service layer.
const (
	JobStatusScheduled  = "scheduled"
	JobStatusDispatched = "dispatched"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCanceled   = "canceled"
)

// Invoice status values.
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

// Lead status values.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusWon       = "won"
	LeadStatusLost      = "lost"
)

// Customer represents a serviceable customer account within a company.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CompanyID: tenant scope; indexed for per-company listings.
//   - Name/Email/Phone/Address: contact details captured at intake.
//   - Notes: free-form operator notes.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Customer struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	CompanyID string         `json:"company_id" gorm:"type:char(36);not null;index:idx_company_customers"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(255)"`
	Phone     string         `json:"phone"      gorm:"type:varchar(32)"`
	Address   string         `json:"address"    gorm:"type:varchar(512)"`
	Notes     string         `json:"notes"      gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// Job represents a scheduled unit of field work for a customer. Jobs move
// through a small status machine (scheduled → dispatched → in_progress →
// completed, with canceled reachable from any non-terminal state).
type Job struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	CompanyID   string         `json:"company_id"   gorm:"type:char(36);not null;index:idx_company_jobs,priority:1"`
	CustomerID  string         `json:"customer_id"  gorm:"type:char(36);not null;index"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null"`
	Description string         `json:"description"  gorm:"type:text"`
	Status      string         `json:"status"       gorm:"type:varchar(16);not null;default:'scheduled';check:status IN ('scheduled','dispatched','in_progress','completed','canceled');index:idx_company_jobs,priority:2"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Address     string         `json:"address"      gorm:"type:varchar(512)"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	// Customer is the serviced account. Jobs are cascade-deleted if the
	// customer row is removed.
	Customer Customer `json:"-" gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }

// JobAssignment links a team member to a job. A member can be assigned to a
// given job at most once (enforced by unique index), which is what makes
// retried assignment requests observable as duplicates.
type JobAssignment struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	JobID     string    `json:"job_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_assignment_job_member"`
	MemberID  string    `json:"member_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_assignment_job_member"`
	Role      string    `json:"role"      gorm:"type:varchar(16);not null;default:'lead';check:role IN ('lead','helper')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Job is the assigned work order. Assignments are cascade-deleted if the
	// underlying job is removed.
	Job Job `json:"-" gorm:"foreignKey:JobID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for JobAssignment.
func (JobAssignment) TableName() string { return "job_assignments" }

// Invoice represents a bill issued to a customer, optionally tied to a job.
// Amounts are stored in integer cents to avoid floating-point drift.
type Invoice struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	CompanyID  string         `json:"company_id"  gorm:"type:char(36);not null;index:idx_company_invoices"`
	CustomerID string         `json:"customer_id" gorm:"type:char(36);not null;index"`
	JobID      *string        `json:"job_id,omitempty" gorm:"type:char(36);index"`
	Number     string         `json:"number"      gorm:"type:varchar(32);not null;uniqueIndex:ux_invoice_company_number"`
	Status     string         `json:"status"      gorm:"type:varchar(8);not null;default:'draft';check:status IN ('draft','sent','paid','void')"`
	TotalCents int64          `json:"total_cents" gorm:"not null"`
	Currency   string         `json:"currency"    gorm:"type:char(3);not null;default:'USD'"`
	DueAt      *time.Time     `json:"due_at,omitempty"`
	PaidAt     *time.Time     `json:"paid_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`

	Customer Customer `json:"-" gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Invoice.
func (Invoice) TableName() string { return "invoices" }

// Lead represents a prospective customer in the sales pipeline.
type Lead struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	CompanyID string         `json:"company_id" gorm:"type:char(36);not null;index:idx_company_leads"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(255)"`
	Phone     string         `json:"phone"      gorm:"type:varchar(32)"`
	Source    string         `json:"source"     gorm:"type:varchar(64)"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'new';check:status IN ('new','contacted','qualified','won','lost')"`
	Notes     string         `json:"notes"      gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }
