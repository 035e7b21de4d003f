// Job HTTP handlers.
//
// This file exposes REST endpoints for job resources:
//   - POST   /jobs                   (create, idempotent with Idempotency-Key)
//   - GET    /jobs                   (list, paginated, optional status filter, ETag)
//   - GET    /jobs/{id}              (fetch)
//   - PATCH  /jobs/{id}/status       (state machine transition)
//   - POST   /jobs/{id}/assignments  (assign crew, idempotent)
//   - GET    /jobs/{id}/assignments  (list crew)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/services"
)

//
// DTOs
//

// CreateJobRequest is the JSON payload for creating a job.
type CreateJobRequest struct {
	CustomerID  string     `json:"customer_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Title       string     `json:"title" binding:"required,min=1,max=255" example:"Replace water heater"`
	Description string     `json:"description" example:"40gal unit, gas"`
	Address     string     `json:"address" example:"12 Oak St"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ChangeStatusRequest is the JSON payload for status-transition endpoints.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required" example:"dispatched"`
}

// AssignRequest is the JSON payload for assigning a member to a job.
type AssignRequest struct {
	MemberID string `json:"member_id" binding:"required" example:"6a1f41f3-13a1-4270-8b3f-4e45e40fdab2"`
	Role     string `json:"role" example:"lead"`
}

// ListJobsResponse wraps a page of jobs and pagination information.
type ListJobsResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	Pagination Pagination   `json:"pagination"`
}

//
// Handlers
//

// CreateJob godoc
// @ID          createJob
// @Summary     Create a job
// @Description Schedules a job for an existing customer. Safe to retry with an Idempotency-Key.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       body             body    handlers.CreateJobRequest  true  "Create job payload"
//
// @Success     201  {object} domain.Job
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Customer not found"
// @Failure     409  {object} handlers.ErrorResponse "Idempotency conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs [post]
func (h *Handlers) CreateJob(c *gin.Context) {
	h.withIdempotency(c, "jobs.create", func() (int, any) {
		var req CreateJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid JSON body")
		}

		j, err := h.jobs.Create(c.Request.Context(), companyID(c), req.CustomerID, req.Title, req.Description, req.Address, req.ScheduledAt)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrCustomerNotFound):
				return http.StatusNotFound, errBody(c, ErrCodeNotFound, "customer not found")
			case errors.Is(err, services.ErrValidation):
				return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "job title required")
			default:
				return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
			}
		}
		return http.StatusCreated, j
	})
}

// ListJobs godoc
// @ID          listJobs
// @Summary     List jobs (paginated)
// @Description Returns a page of the company's jobs, optionally filtered by status. Supports weak ETag.
// @Tags        Jobs
// @Produce     json
//
// @Param       status     query  string  false "Filter by status" Enums(scheduled,dispatched,in_progress,completed,canceled)
// @Param       page       query  int     false "Page number"      minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListJobsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	cid := companyID(c)
	page, pageSize := clampPagination(c)
	status := c.Query("status")

	// ETag pre-check covers the unfiltered collection only.
	if status == "" {
		if count, maxTS, err := h.jobs.Stats(ctx, cid); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"jobs:%s:%d:%d"`, cid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.jobs.ListPage(ctx, cid, status, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrBadStatus) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown job status")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListJobsResponse{
		Jobs:       items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetJob godoc
// @ID          getJob
// @Summary     Fetch a job
// @Tags        Jobs
// @Produce     json
//
// @Param       id  path  string  true "Job ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.Job
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Job not found"
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	j, err := h.jobs.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, j)
}

// ChangeJobStatus godoc
// @ID          changeJobStatus
// @Summary     Move a job through its status machine
// @Description Allowed moves: scheduled→dispatched→in_progress→completed; canceled from any non-terminal state.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true "Job ID (UUID)" format(uuid)
// @Param       body  body  handlers.ChangeStatusRequest  true  "Target status"
//
// @Success     200  {object} domain.Job
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Job not found"
// @Failure     409  {object} handlers.ErrorResponse "Transition not allowed"
// @Router      /jobs/{id}/status [patch]
func (h *Handlers) ChangeJobStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	j, err := h.jobs.ChangeStatus(c.Request.Context(), companyID(c), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadStatus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown job status")
		case errors.Is(err, services.ErrJobNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		case errors.Is(err, services.ErrBadTransition):
			fail(c, http.StatusConflict, ErrCodeConflict, "status transition not allowed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, j)
}

// AssignJob godoc
// @ID          assignJob
// @Summary     Assign a team member to a job
// @Description Attaches a member to the job crew. Safe to retry with an Idempotency-Key; a member can be assigned at most once.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       id               path    string  true  "Job ID (UUID)" format(uuid)
// @Param       body             body    handlers.AssignRequest  true  "Assignment payload"
//
// @Success     201  {object} domain.JobAssignment
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Job or member not found"
// @Failure     409  {object} handlers.ErrorResponse "Already assigned / idempotency conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs/{id}/assignments [post]
func (h *Handlers) AssignJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	h.withIdempotency(c, "jobs."+id+".assign", func() (int, any) {
		var req AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "member_id required")
		}

		a, err := h.jobs.Assign(c.Request.Context(), companyID(c), id, req.MemberID, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrJobNotFound):
				return http.StatusNotFound, errBody(c, ErrCodeNotFound, "job not found")
			case errors.Is(err, services.ErrMemberNotFound):
				return http.StatusNotFound, errBody(c, ErrCodeNotFound, "member not found")
			case errors.Is(err, services.ErrDuplicateAssignment):
				return http.StatusConflict, errBody(c, ErrCodeConflict, "member already assigned to job")
			case errors.Is(err, services.ErrValidation):
				return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "role must be lead or helper")
			default:
				return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
			}
		}
		return http.StatusCreated, a
	})
}

// ListAssignments godoc
// @ID          listAssignments
// @Summary     List the crew assigned to a job
// @Tags        Jobs
// @Produce     json
//
// @Param       id  path  string  true "Job ID (UUID)" format(uuid)
//
// @Success     200  {array}  domain.JobAssignment
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Job not found"
// @Router      /jobs/{id}/assignments [get]
func (h *Handlers) ListAssignments(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	crew, err := h.jobs.Assignments(c.Request.Context(), companyID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, crew)
}
