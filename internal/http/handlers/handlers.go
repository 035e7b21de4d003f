// Package handlers – wiring and shared helpers.
//
// Handlers are transport-thin: they validate input, call application
// services through narrow interfaces, and translate results into HTTP
// responses. Mutating endpoints route their execution through the
// idempotency ledger when the client supplies an Idempotency-Key, so
// retries never re-run side effects.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/http/middleware"
	"github.com/fieldline/go-fieldservice-backend/internal/perm"
	"github.com/fieldline/go-fieldservice-backend/internal/services"
	"github.com/fieldline/go-fieldservice-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// CustomerService defines customer operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CustomerService interface {
	Create(ctx context.Context, companyID, name, email, phone, address, notes string) (*domain.Customer, error)
	Get(ctx context.Context, companyID, id string) (*domain.Customer, error)
	ListPage(ctx context.Context, companyID string, page, pageSize int) ([]domain.Customer, int64, error)
	Update(ctx context.Context, companyID, id string, name, email, phone, address, notes *string) (*domain.Customer, error)
	Stats(ctx context.Context, companyID string) (int64, *time.Time, error)
}

// JobService defines job lifecycle operations consumed by HTTP handlers.
type JobService interface {
	Create(ctx context.Context, companyID, customerID, title, description, address string, scheduledAt *time.Time) (*domain.Job, error)
	Get(ctx context.Context, companyID, id string) (*domain.Job, error)
	ListPage(ctx context.Context, companyID, status string, page, pageSize int) ([]domain.Job, int64, error)
	ChangeStatus(ctx context.Context, companyID, id, status string) (*domain.Job, error)
	Assign(ctx context.Context, companyID, jobID, memberID, role string) (*domain.JobAssignment, error)
	Assignments(ctx context.Context, companyID, jobID string) ([]domain.JobAssignment, error)
	Stats(ctx context.Context, companyID string) (int64, *time.Time, error)
}

// InvoiceService defines invoice operations consumed by HTTP handlers.
type InvoiceService interface {
	Create(ctx context.Context, companyID, customerID, number string, jobID *string, totalCents int64, currency string, dueAt *time.Time) (*domain.Invoice, error)
	Get(ctx context.Context, companyID, id string) (*domain.Invoice, error)
	ListPage(ctx context.Context, companyID string, page, pageSize int) ([]domain.Invoice, int64, error)
	ChangeStatus(ctx context.Context, companyID, id, status string) (*domain.Invoice, error)
}

// LeadService defines sales-pipeline operations consumed by HTTP handlers.
type LeadService interface {
	Create(ctx context.Context, companyID, name, email, phone, source, notes string) (*domain.Lead, error)
	Get(ctx context.Context, companyID, id string) (*domain.Lead, error)
	ListPage(ctx context.Context, companyID string, page, pageSize int) ([]domain.Lead, int64, error)
	ChangeStatus(ctx context.Context, companyID, id, status string) (*domain.Lead, error)
	Convert(ctx context.Context, companyID, id string) (*domain.Customer, error)
}

// TeamService defines team administration and permission operations.
type TeamService interface {
	AddMember(ctx context.Context, companyID, userID, name, email, role string) (*domain.Member, error)
	ListMembers(ctx context.Context, companyID string) ([]domain.Member, error)
	MemberAccess(ctx context.Context, companyID, memberID string) (string, perm.Map, error)
	Access(ctx context.Context, userID string) (string, perm.Map, error)
	SetMemberOverrides(ctx context.Context, companyID, memberID string, overrides map[string]bool) (*domain.Member, error)
	SetRoleOverrides(ctx context.Context, companyID, role string, overrides map[string]bool) (perm.RoleOverrides, error)
	RoleOverrides(ctx context.Context, companyID string) (perm.RoleOverrides, error)
	MergedDefaults(ctx context.Context, companyID string) (map[string]perm.Map, error)
}

// WebhookService defines payment-webhook processing.
type WebhookService interface {
	Parse(payload []byte) (*services.PaymentEvent, error)
	Process(ctx context.Context, ev *services.PaymentEvent, payload []byte) error
}

// Ledger is the idempotency ledger contract used by mutating handlers.
type Ledger interface {
	Begin(ctx context.Context, scope, key string, payload []byte) (services.Outcome, *domain.IdempotencyRecord, error)
	Complete(ctx context.Context, scope, key string, status int, body string) error
	Abandon(ctx context.Context, scope, key string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the public API. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	customers CustomerService
	jobs      JobService
	invoices  InvoiceService
	leads     LeadService
	team      TeamService
	webhooks  WebhookService
	ledger    Ledger
}

// New constructs a Handlers instance bound to the given services. The ledger
// may be nil, in which case mutating endpoints execute without idempotency
// protection (used by some tests).
func New(customers CustomerService, jobs JobService, invoices InvoiceService, leads LeadService, team TeamService, webhooks WebhookService, ledger Ledger) *Handlers {
	return &Handlers{
		customers: customers,
		jobs:      jobs,
		invoices:  invoices,
		leads:     leads,
		team:      team,
		webhooks:  webhooks,
		ledger:    ledger,
	}
}

// userID extracts the authenticated user id for handler use. It defers to
// the shared middleware helper so handlers, permission gates, and the rate
// limiter all agree on identity.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// companyID resolves the caller's tenant. The demo deployment carries it in
// the X-Company-ID header with a stable fallback, mirroring the X-User-ID
// convention.
func companyID(c *gin.Context) string {
	if c != nil && c.Request != nil {
		if h := c.GetHeader("X-Company-ID"); h != "" {
			return h
		}
	}
	return "demo-company"
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginate builds the Pagination block for a page of total items.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Idempotency plumbing
//

// readBody returns the raw request body. The body is re-buffered so that
// ShouldBindJSON can still consume it afterwards.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request == nil || c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

// withIdempotency routes a mutating handler through the ledger. When the
// request carries no key, exec runs directly. Otherwise the ledger decides:
// proceed executes and records the produced response, replay returns the
// recorded response byte-for-byte, conflict and in-progress abort with 409,
// and a ledger storage error aborts with 500 before any side effects.
// Validation rejections (400) release the claim instead of recording it, so
// the key remains usable for a corrected retry.
//
// exec must return the status code and a JSON-serializable body.
func (h *Handlers) withIdempotency(c *gin.Context, op string, exec func() (int, any)) {
	key, hasKey := middleware.GetIdempotencyKey(c)
	if !hasKey || h.ledger == nil {
		status, body := exec()
		writeResult(c, status, body)
		return
	}

	raw, err := readBody(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	ctx := c.Request.Context()
	scope := fmt.Sprintf("user:%s:%s", userID(c), op)

	outcome, rec, err := h.ledger.Begin(ctx, scope, key, raw)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "idempotency ledger unavailable")
		return
	}

	switch outcome {
	case services.OutcomeReplay:
		middleware.MarkReplay(c)
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
		return
	case services.OutcomeConflict:
		failIdem(c, http.StatusConflict, ErrCodeConflict, "Idempotency key conflict")
		return
	case services.OutcomeInProgress:
		failIdem(c, http.StatusConflict, ErrCodeConflict, "Request already in progress")
		return
	}

	status, body := exec()

	// A rejected submission never consumes the key: release the claim so a
	// corrected retry with the same key executes instead of hitting a
	// conflict. Business failures (404, 409, ...) stay recorded and replay.
	if status == http.StatusBadRequest {
		if aerr := h.ledger.Abandon(ctx, scope, key); aerr != nil {
			middleware.LoggerFrom(c).Error().Err(aerr).Str("scope", op).Msg("idempotency abandon failed")
		}
		writeResult(c, status, body)
		return
	}

	// Record only the final response; a failed completion is logged but does
	// not break the response already produced for the caller.
	encoded, jerr := json.Marshal(body)
	if jerr == nil {
		if cerr := h.ledger.Complete(ctx, scope, key, status, string(encoded)); cerr != nil {
			middleware.LoggerFrom(c).Error().Err(cerr).Str("scope", op).Msg("idempotency complete failed")
		}
	}
	writeResult(c, status, body)
}

// writeResult serializes an exec result, preserving the error-envelope abort
// semantics for failure statuses.
func writeResult(c *gin.Context, status int, body any) {
	if status >= http.StatusBadRequest {
		c.AbortWithStatusJSON(status, body)
		return
	}
	ok(c, status, body)
}

// errBody builds the envelope used when a ledger-wrapped exec fails; the
// same body is recorded so retries replay the failure verbatim.
func errBody(c *gin.Context, code, msg string) ErrorResponse {
	return ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
}

