// Lead HTTP handlers.
//
// This file exposes REST endpoints for sales-pipeline resources:
//   - POST   /leads               (capture, idempotent with Idempotency-Key)
//   - GET    /leads               (list, paginated)
//   - PATCH  /leads/{id}/status   (pipeline moves)
//   - POST   /leads/{id}/convert  (won lead → customer)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/services"
)

//
// DTOs
//

// CreateLeadRequest is the JSON payload for capturing a lead.
type CreateLeadRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=255" example:"Bob Jones"`
	Email  string `json:"email" example:"bob@example.com"`
	Phone  string `json:"phone" example:"+1-555-0101"`
	Source string `json:"source" example:"referral"`
	Notes  string `json:"notes" example:"asked about tankless units"`
}

// ListLeadsResponse wraps a page of leads and pagination information.
type ListLeadsResponse struct {
	Leads      []domain.Lead `json:"leads"`
	Pagination Pagination    `json:"pagination"`
}

//
// Handlers
//

// CreateLead godoc
// @ID          createLead
// @Summary     Capture a lead
// @Description Adds a lead to the sales pipeline. Safe to retry with an Idempotency-Key.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       body             body    handlers.CreateLeadRequest  true  "Create lead payload"
//
// @Success     201  {object} domain.Lead
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Idempotency conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads [post]
func (h *Handlers) CreateLead(c *gin.Context) {
	h.withIdempotency(c, "leads.create", func() (int, any) {
		var req CreateLeadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid JSON body")
		}

		l, err := h.leads.Create(c.Request.Context(), companyID(c), req.Name, req.Email, req.Phone, req.Source, req.Notes)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "lead name required")
			}
			return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
		}
		return http.StatusCreated, l
	})
}

// ListLeads godoc
// @ID          listLeads
// @Summary     List leads (paginated)
// @Tags        Leads
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListLeadsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads [get]
func (h *Handlers) ListLeads(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.leads.ListPage(c.Request.Context(), companyID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListLeadsResponse{
		Leads:      items,
		Pagination: paginate(page, pageSize, total),
	})
}

// ChangeLeadStatus godoc
// @ID          changeLeadStatus
// @Summary     Move a lead along the pipeline
// @Description Allowed moves: new→contacted→qualified→won; lost from any non-terminal state.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true "Lead ID (UUID)" format(uuid)
// @Param       body  body  handlers.ChangeStatusRequest  true  "Target status"
//
// @Success     200  {object} domain.Lead
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Lead not found"
// @Failure     409  {object} handlers.ErrorResponse "Transition not allowed"
// @Router      /leads/{id}/status [patch]
func (h *Handlers) ChangeLeadStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lead id must be a UUID")
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	l, err := h.leads.ChangeStatus(c.Request.Context(), companyID(c), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadStatus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown lead status")
		case errors.Is(err, services.ErrLeadNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
		case errors.Is(err, services.ErrBadTransition):
			fail(c, http.StatusConflict, ErrCodeConflict, "status transition not allowed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, l)
}

// ConvertLead godoc
// @ID          convertLead
// @Summary     Convert a won lead into a customer
// @Description Creates a customer from a lead in the won state, carrying over contact details. Safe to retry with an Idempotency-Key.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       id               path    string  true  "Lead ID (UUID)" format(uuid)
//
// @Success     201  {object} domain.Customer
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Lead not found"
// @Failure     409  {object} handlers.ErrorResponse "Lead not won / idempotency conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/{id}/convert [post]
func (h *Handlers) ConvertLead(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lead id must be a UUID")
		return
	}

	h.withIdempotency(c, "leads."+id+".convert", func() (int, any) {
		cust, err := h.leads.Convert(c.Request.Context(), companyID(c), id)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrLeadNotFound):
				return http.StatusNotFound, errBody(c, ErrCodeNotFound, "lead not found")
			case errors.Is(err, services.ErrBadTransition):
				return http.StatusConflict, errBody(c, ErrCodeConflict, "lead must be won before conversion")
			default:
				return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
			}
		}
		return http.StatusCreated, cust
	})
}
