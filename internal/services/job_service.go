// Package services – JobService
//
// This file implements JobService, which owns the job aggregate: creation
// against an existing customer, company-scoped lookups and pagination,
// status transitions through the job state machine, and crew assignments.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
)

// jobTransitions enumerates the allowed status moves. Canceled is reachable
// from every non-terminal state; completed and canceled are terminal.
var jobTransitions = map[string][]string{
	domain.JobStatusScheduled:  {domain.JobStatusDispatched, domain.JobStatusCanceled},
	domain.JobStatusDispatched: {domain.JobStatusInProgress, domain.JobStatusCanceled},
	domain.JobStatusInProgress: {domain.JobStatusCompleted, domain.JobStatusCanceled},
	domain.JobStatusCompleted:  {},
	domain.JobStatusCanceled:   {},
}

// assignment roles accepted by Assign.
const (
	AssignmentRoleLead   = "lead"
	AssignmentRoleHelper = "helper"
)

// JobService provides company-scoped job operations.
type JobService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewJobService constructs a JobService.
func NewJobService(db *gorm.DB) *JobService {
	return &JobService{DB: db}
}

// Create inserts a new job for an existing customer. New jobs always start
// in the scheduled state.
func (s *JobService) Create(ctx context.Context, companyID, customerID, title, description, address string, scheduledAt *time.Time) (*domain.Job, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("company.id", companyID)),
	)
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrValidation
	}

	// The customer must exist in the same company.
	if _, err := repo.GetCustomer(ctx, s.DB, customerID, companyID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	return repo.CreateJob(ctx, s.DB, &domain.Job{
		CompanyID:   companyID,
		CustomerID:  customerID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Address:     strings.TrimSpace(address),
		Status:      domain.JobStatusScheduled,
		ScheduledAt: scheduledAt,
	})
}

// Get fetches a job by ID within the company.
func (s *JobService) Get(ctx context.Context, companyID, id string) (*domain.Job, error) {
	j, err := repo.GetJob(ctx, s.DB, id, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

// ListPage returns a page of the company's jobs plus the total count. An
// empty status lists all; a non-empty status must be a valid job status.
func (s *JobService) ListPage(ctx context.Context, companyID, status string, page, pageSize int) ([]domain.Job, int64, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("company.id", companyID),
			attribute.String("job.status", status),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if status != "" {
		if _, ok := jobTransitions[status]; !ok {
			return nil, 0, ErrBadStatus
		}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountJobs(ctx, s.DB, companyID, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Job{}, 0, nil
	}

	items, err := repo.ListJobsPage(ctx, s.DB, companyID, status, offset, pageSize)
	return items, total, err
}

// ChangeStatus moves a job to the requested status if the transition is
// allowed from its current state.
func (s *JobService) ChangeStatus(ctx context.Context, companyID, id, status string) (*domain.Job, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "ChangeStatus",
		trace.WithAttributes(
			attribute.String("job.id", id),
			attribute.String("job.status", status),
		),
	)
	defer span.End()

	if _, ok := jobTransitions[status]; !ok {
		return nil, ErrBadStatus
	}

	j, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(jobTransitions, j.Status, status) {
		return nil, ErrBadTransition
	}

	if err := repo.UpdateJobStatus(ctx, s.DB, id, companyID, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	j.Status = status
	return j, nil
}

// Assign attaches a member to a job. A member can be assigned at most once
// per job; a repeat is reported as ErrDuplicateAssignment.
func (s *JobService) Assign(ctx context.Context, companyID, jobID, memberID, role string) (*domain.JobAssignment, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Assign",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("member.id", memberID),
		),
	)
	defer span.End()

	if role == "" {
		role = AssignmentRoleLead
	}
	if role != AssignmentRoleLead && role != AssignmentRoleHelper {
		return nil, ErrValidation
	}

	if _, err := s.Get(ctx, companyID, jobID); err != nil {
		return nil, err
	}
	if _, err := repo.GetMember(ctx, s.DB, memberID, companyID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	a, err := repo.CreateAssignment(ctx, s.DB, jobID, memberID, role)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateAssignment
		}
		return nil, err
	}
	return a, nil
}

// Assignments lists the crew attached to a job.
func (s *JobService) Assignments(ctx context.Context, companyID, jobID string) ([]domain.JobAssignment, error) {
	if _, err := s.Get(ctx, companyID, jobID); err != nil {
		return nil, err
	}
	return repo.ListAssignments(ctx, s.DB, jobID)
}

// Stats returns the count and last-modified timestamp used for ETags.
func (s *JobService) Stats(ctx context.Context, companyID string) (int64, *time.Time, error) {
	return repo.JobsStats(ctx, s.DB, companyID)
}

// transitionAllowed reports whether to is reachable from from in one step.
func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
