// Invoice HTTP handlers.
//
// This file exposes REST endpoints for invoice resources:
//   - POST   /invoices              (create, idempotent with Idempotency-Key)
//   - GET    /invoices              (list, paginated)
//   - GET    /invoices/{id}         (fetch)
//   - PATCH  /invoices/{id}/status  (draft → sent → paid | void)
package handlers

import (
	"errors"
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

// CreateInvoiceRequest is the JSON payload for issuing an invoice.
type CreateInvoiceRequest struct {
	CustomerID string     `json:"customer_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	JobID      *string    `json:"job_id,omitempty"`
	Number     string     `json:"number" binding:"required,min=1,max=32" example:"INV-2026-0042"`
	TotalCents int64      `json:"total_cents" binding:"min=0" example:"12500"`
	Currency   string     `json:"currency" example:"USD"`
	DueAt      *time.Time `json:"due_at,omitempty"`
}

// ListInvoicesResponse wraps a page of invoices and pagination information.
type ListInvoicesResponse struct {
	Invoices   []domain.Invoice `json:"invoices"`
	Pagination Pagination       `json:"pagination"`
}

//
// Handlers
//

// CreateInvoice godoc
// @ID          createInvoice
// @Summary     Issue an invoice
// @Description Creates a draft invoice for a customer, optionally tied to a job. Safe to retry with an Idempotency-Key.
// @Tags        Invoices
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       body             body    handlers.CreateInvoiceRequest  true  "Create invoice payload"
//
// @Success     201  {object} domain.Invoice
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Customer or job not found"
// @Failure     409  {object} handlers.ErrorResponse "Number taken / idempotency conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /invoices [post]
func (h *Handlers) CreateInvoice(c *gin.Context) {
	h.withIdempotency(c, "invoices.create", func() (int, any) {
		var req CreateInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid JSON body")
		}

		inv, err := h.invoices.Create(c.Request.Context(), companyID(c), req.CustomerID, req.Number, req.JobID, req.TotalCents, req.Currency, req.DueAt)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrCustomerNotFound):
				return http.StatusNotFound, errBody(c, ErrCodeNotFound, "customer not found")
			case errors.Is(err, services.ErrJobNotFound):
				return http.StatusNotFound, errBody(c, ErrCodeNotFound, "job not found")
			case errors.Is(err, services.ErrDuplicateInvoiceNumber):
				return http.StatusConflict, errBody(c, ErrCodeConflict, "invoice number already exists")
			case errors.Is(err, services.ErrValidation):
				return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid invoice payload")
			default:
				return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
			}
		}
		return http.StatusCreated, inv
	})
}

// ListInvoices godoc
// @ID          listInvoices
// @Summary     List invoices (paginated)
// @Tags        Invoices
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListInvoicesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /invoices [get]
func (h *Handlers) ListInvoices(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.invoices.ListPage(c.Request.Context(), companyID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListInvoicesResponse{
		Invoices:   items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetInvoice godoc
// @ID          getInvoice
// @Summary     Fetch an invoice
// @Tags        Invoices
// @Produce     json
//
// @Param       id  path  string  true "Invoice ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.Invoice
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Invoice not found"
// @Router      /invoices/{id} [get]
func (h *Handlers) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invoice id must be a UUID")
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "invoice not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, inv)
}

// ChangeInvoiceStatus godoc
// @ID          changeInvoiceStatus
// @Summary     Move an invoice through its status machine
// @Description Allowed moves: draft→sent, draft→void, sent→paid, sent→void. Paying stamps paid_at.
// @Tags        Invoices
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true "Invoice ID (UUID)" format(uuid)
// @Param       body  body  handlers.ChangeStatusRequest  true  "Target status"
//
// @Success     200  {object} domain.Invoice
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Invoice not found"
// @Failure     409  {object} handlers.ErrorResponse "Transition not allowed"
// @Router      /invoices/{id}/status [patch]
func (h *Handlers) ChangeInvoiceStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invoice id must be a UUID")
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	inv, err := h.invoices.ChangeStatus(c.Request.Context(), companyID(c), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadStatus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown invoice status")
		case errors.Is(err, services.ErrInvoiceNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "invoice not found")
		case errors.Is(err, services.ErrBadTransition):
			fail(c, http.StatusConflict, ErrCodeConflict, "status transition not allowed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, inv)
}
