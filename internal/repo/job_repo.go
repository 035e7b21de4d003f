// Package repo – Job and JobAssignment persistence.
//
// Same conventions as the rest of the package: context-aware free functions
// over a *gorm.DB handle, ErrNotFound for missing rows, raw errors otherwise.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

// CreateJob inserts a new Job row.
func CreateJob(ctx context.Context, db *gorm.DB, j *domain.Job) (*domain.Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = domain.JobStatusScheduled
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

// GetJob fetches a job by ID within a company, or ErrNotFound.
func GetJob(ctx context.Context, db *gorm.DB, id, companyID string) (*domain.Job, error) {
	var j domain.Job
	err := db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CountJobs returns the number of jobs for companyID, optionally filtered
// by status (empty string means all statuses).
func CountJobs(ctx context.Context, db *gorm.DB, companyID, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Job{}).Where("company_id = ?", companyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListJobsPage returns a page of jobs for companyID ordered by creation time
// descending, optionally filtered by status.
func ListJobsPage(ctx context.Context, db *gorm.DB, companyID, status string, offset, limit int) ([]domain.Job, error) {
	q := db.WithContext(ctx).Where("company_id = ?", companyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Job
	err := q.Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateJobStatus sets the status of a job identified by id within
// companyID. If no rows are affected, it returns ErrNotFound.
func UpdateJobStatus(ctx context.Context, db *gorm.DB, id, companyID, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
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

// CreateAssignment inserts a job assignment and returns ErrDuplicate when
// the (job_id, member_id) pair already exists.
func CreateAssignment(ctx context.Context, db *gorm.DB, jobID, memberID, role string) (*domain.JobAssignment, error) {
	now := time.Now().UTC()
	a := &domain.JobAssignment{
		ID:        uuid.NewString(),
		JobID:     jobID,
		MemberID:  memberID,
		Role:      role,
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// ListAssignments returns all assignments for a job, oldest first.
func ListAssignments(ctx context.Context, db *gorm.DB, jobID string) ([]domain.JobAssignment, error) {
	var out []domain.JobAssignment
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountAssignments returns the number of assignments for a job.
func CountAssignments(ctx context.Context, db *gorm.DB, jobID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.JobAssignment{}).
		Where("job_id = ?", jobID).
		Count(&total).Error
	return total, err
}
