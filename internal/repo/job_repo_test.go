package repo

import (
	"context"
	"testing"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

func TestCreateAndGetJob(t *testing.T) {
	db := newTestDB(t, &domain.Customer{}, &domain.Job{})
	ctx := context.Background()

	cust, err := CreateCustomer(ctx, db, &domain.Customer{CompanyID: "co1", Name: "Acme HVAC"})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	j, err := CreateJob(ctx, db, &domain.Job{
		CompanyID:  "co1",
		CustomerID: cust.ID,
		Title:      "Furnace inspection",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if j.ID == "" || j.Status != domain.JobStatusScheduled {
		t.Fatalf("unexpected job defaults: %+v", j)
	}

	got, err := GetJob(ctx, db, j.ID, "co1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Title != "Furnace inspection" {
		t.Fatalf("unexpected job: %+v", got)
	}

	// Wrong company scope must not resolve the job.
	if _, err := GetJob(ctx, db, j.ID, "co2"); err == nil {
		t.Fatalf("cross-company fetch should fail")
	}
}

func TestListJobsPage_StatusFilter(t *testing.T) {
	db := newTestDB(t, &domain.Customer{}, &domain.Job{})
	ctx := context.Background()

	cust, _ := CreateCustomer(ctx, db, &domain.Customer{CompanyID: "co1", Name: "Acme"})
	for _, st := range []string{
		domain.JobStatusScheduled, domain.JobStatusScheduled, domain.JobStatusCompleted,
	} {
		if _, err := CreateJob(ctx, db, &domain.Job{
			CompanyID: "co1", CustomerID: cust.ID, Title: "t", Status: st,
		}); err != nil {
			t.Fatalf("seed job: %v", err)
		}
	}

	total, err := CountJobs(ctx, db, "co1", domain.JobStatusScheduled)
	if err != nil || total != 2 {
		t.Fatalf("CountJobs(scheduled) = (%d, %v), want 2", total, err)
	}
	all, err := CountJobs(ctx, db, "co1", "")
	if err != nil || all != 3 {
		t.Fatalf("CountJobs(all) = (%d, %v), want 3", all, err)
	}

	items, err := ListJobsPage(ctx, db, "co1", domain.JobStatusScheduled, 0, 10)
	if err != nil || len(items) != 2 {
		t.Fatalf("ListJobsPage = (%d items, %v), want 2", len(items), err)
	}
}

func TestUpdateJobStatus_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Customer{}, &domain.Job{})
	if err := UpdateJobStatus(context.Background(), db, "missing", "co1", domain.JobStatusDispatched); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAssignment_Duplicate(t *testing.T) {
	db := newTestDB(t, &domain.Customer{}, &domain.Job{}, &domain.JobAssignment{})
	ctx := context.Background()

	cust, _ := CreateCustomer(ctx, db, &domain.Customer{CompanyID: "co1", Name: "Acme"})
	job, err := CreateJob(ctx, db, &domain.Job{CompanyID: "co1", CustomerID: cust.ID, Title: "t"})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	if _, err := CreateAssignment(ctx, db, job.ID, "m1", "lead"); err != nil {
		t.Fatalf("first assignment: %v", err)
	}
	if _, err := CreateAssignment(ctx, db, job.ID, "m1", "helper"); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for same (job, member), got %v", err)
	}
	if _, err := CreateAssignment(ctx, db, job.ID, "m2", "helper"); err != nil {
		t.Fatalf("second member should assign: %v", err)
	}

	n, err := CountAssignments(ctx, db, job.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountAssignments = (%d, %v), want 2", n, err)
	}
}
