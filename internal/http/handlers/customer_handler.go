// Customer HTTP handlers.
//
// This file exposes REST endpoints for customer resources:
//   - POST   /customers        (create, idempotent with Idempotency-Key)
//   - GET    /customers        (list, paginated, ETag support)
//   - GET    /customers/{id}   (fetch)
//   - PATCH  /customers/{id}   (partial update)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/services"
)

//
// DTOs
//

// CreateCustomerRequest is the JSON payload for creating a customer.
type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=255" example:"Ada Lovelace"`
	Email   string `json:"email" example:"ada@example.com"`
	Phone   string `json:"phone" example:"+1-555-0100"`
	Address string `json:"address" example:"12 Oak St, Nashville TN"`
	Notes   string `json:"notes" example:"gate code 4411"`
}

// UpdateCustomerRequest is the JSON payload for a partial customer update.
// Only present fields are modified.
type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// ListCustomersResponse wraps a page of customers and pagination information.
type ListCustomersResponse struct {
	Customers  []domain.Customer `json:"customers"`
	Pagination Pagination        `json:"pagination"`
}

//
// Handlers
//

// CreateCustomer godoc
// @ID          createCustomer
// @Summary     Create a customer
// @Description Creates a customer in the caller's company. Safe to retry with an Idempotency-Key.
// @Tags        Customers
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)" example(user123)
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       body             body    handlers.CreateCustomerRequest  true  "Create customer payload"
//
// @Success     201  {object}  domain.Customer
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Idempotency conflict"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /customers [post]
func (h *Handlers) CreateCustomer(c *gin.Context) {
	h.withIdempotency(c, "customers.create", func() (int, any) {
		var req CreateCustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid JSON body")
		}

		cust, err := h.customers.Create(c.Request.Context(), companyID(c), req.Name, req.Email, req.Phone, req.Address, req.Notes)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "customer name required")
			}
			return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
		}
		return http.StatusCreated, cust
	})
}

// ListCustomers godoc
// @ID          listCustomers
// @Summary     List customers (paginated)
// @Description Returns a page of the company's customers. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Customers
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"      example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListCustomersResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /customers [get]
func (h *Handlers) ListCustomers(c *gin.Context) {
	ctx := c.Request.Context()
	cid := companyID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.customers.Stats(ctx, cid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"customers:%s:%d:%d"`, cid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.customers.ListPage(ctx, cid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCustomersResponse{
		Customers:  items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetCustomer godoc
// @ID          getCustomer
// @Summary     Fetch a customer
// @Tags        Customers
// @Produce     json
//
// @Param       id  path  string  true "Customer ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.Customer
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Customer not found"
// @Router      /customers/{id} [get]
func (h *Handlers) GetCustomer(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "customer id must be a UUID")
		return
	}

	cust, err := h.customers.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrCustomerNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "customer not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, cust)
}

// UpdateCustomer godoc
// @ID          updateCustomer
// @Summary     Update a customer (partial)
// @Tags        Customers
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true "Customer ID (UUID)" format(uuid)
// @Param       body  body  handlers.UpdateCustomerRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Customer
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Customer not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /customers/{id} [patch]
func (h *Handlers) UpdateCustomer(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "customer id must be a UUID")
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cust, err := h.customers.Update(c.Request.Context(), companyID(c), id, req.Name, req.Email, req.Phone, req.Address, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCustomerNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "customer not found")
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "customer name must not be blank")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, cust)
}
