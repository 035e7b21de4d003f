// Team and permission HTTP handlers.
//
// This file exposes REST endpoints for team administration:
//   - GET    /team                       (list members)
//   - POST   /team                       (add member, idempotent)
//   - GET    /team/permissions           (merged per-role view)
//   - PATCH  /team/permissions           (company role overrides)
//   - GET    /team/{id}/permissions      (one member's effective map)
//   - PATCH  /team/{id}/permissions      (user overrides)
//   - GET    /me/access                  (caller's role + effective map)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/perm"
	"github.com/fieldline/go-fieldservice-backend/internal/services"
)

//
// DTOs
//

// AddMemberRequest is the JSON payload for adding a team member.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required" example:"user123"`
	Name   string `json:"name" binding:"required,min=1,max=255" example:"Grace Hopper"`
	Email  string `json:"email" example:"grace@example.com"`
	Role   string `json:"role" example:"technician"`
}

// SetOverridesRequest carries a partial permission map. Absent flags fall
// through to the next precedence layer; explicit false revokes.
type SetOverridesRequest struct {
	Overrides map[string]bool `json:"overrides" binding:"required"`
}

// SetRoleOverridesRequest carries a partial permission map for one role.
type SetRoleOverridesRequest struct {
	Role      string          `json:"role" binding:"required" example:"technician"`
	Overrides map[string]bool `json:"overrides"`
}

// AccessResponse is the caller-facing view of their effective permissions.
type AccessResponse struct {
	Role        string   `json:"role" example:"technician"`
	Permissions perm.Map `json:"permissions"`
}

//
// Handlers
//

// ListTeam godoc
// @ID          listTeam
// @Summary     List team members
// @Tags        Team
// @Produce     json
//
// @Success     200  {array}  domain.Member
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /team [get]
func (h *Handlers) ListTeam(c *gin.Context) {
	members, err := h.team.ListMembers(c.Request.Context(), companyID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if members == nil {
		members = []domain.Member{}
	}
	ok(c, http.StatusOK, members)
}

// AddTeamMember godoc
// @ID          addTeamMember
// @Summary     Add a team member
// @Description Adds a user to the company's team under a built-in role. Safe to retry with an Idempotency-Key.
// @Tags        Team
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       body             body    handlers.AddMemberRequest  true  "Add member payload"
//
// @Success     201  {object} domain.Member
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Member exists / idempotency conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /team [post]
func (h *Handlers) AddTeamMember(c *gin.Context) {
	h.withIdempotency(c, "team.add", func() (int, any) {
		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid JSON body")
		}

		m, err := h.team.AddMember(c.Request.Context(), companyID(c), req.UserID, req.Name, req.Email, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrDuplicateMember):
				return http.StatusConflict, errBody(c, ErrCodeConflict, "member already exists")
			case errors.Is(err, services.ErrValidation):
				return http.StatusBadRequest, errBody(c, ErrCodeBadRequest, "invalid member payload")
			default:
				return http.StatusInternalServerError, errBody(c, ErrCodeCreateFailed, err.Error())
			}
		}
		return http.StatusCreated, m
	})
}

// GetMemberPermissions godoc
// @ID          getMemberPermissions
// @Summary     Fetch one member's effective permission map
// @Tags        Team
// @Produce     json
//
// @Param       id  path  string  true "Member ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.AccessResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Member not found"
// @Router      /team/{id}/permissions [get]
func (h *Handlers) GetMemberPermissions(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "member id must be a UUID")
		return
	}

	role, m, err := h.team.MemberAccess(c.Request.Context(), companyID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "member not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, AccessResponse{Role: role, Permissions: m})
}

// SetMemberPermissions godoc
// @ID          setMemberPermissions
// @Summary     Replace a member's permission overrides
// @Description Stores a partial map that wins over company role overrides and role defaults. Explicit false revokes; absent flags fall through.
// @Tags        Team
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true "Member ID (UUID)" format(uuid)
// @Param       body  body  handlers.SetOverridesRequest  true  "Partial permission map"
//
// @Success     200  {object} handlers.AccessResponse
// @Failure     400  {object} handlers.ErrorResponse "Unknown flag name"
// @Failure     404  {object} handlers.ErrorResponse "Member not found"
// @Router      /team/{id}/permissions [patch]
func (h *Handlers) SetMemberPermissions(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "member id must be a UUID")
		return
	}

	var req SetOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "overrides required")
		return
	}

	if _, err := h.team.SetMemberOverrides(c.Request.Context(), companyID(c), id, req.Overrides); err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "member not found")
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown permission flag")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}

	role, m, err := h.team.MemberAccess(c.Request.Context(), companyID(c), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, AccessResponse{Role: role, Permissions: m})
}

// GetRolePermissions godoc
// @ID          getRolePermissions
// @Summary     Per-role permission maps with company overrides applied
// @Description Returns, for every built-in role, the full permission map after the company's role overrides. Intended for the admin UI.
// @Tags        Team
// @Produce     json
//
// @Success     200  {object} map[string]perm.Map
// @Failure     404  {object} handlers.ErrorResponse "Company not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /team/permissions [get]
func (h *Handlers) GetRolePermissions(c *gin.Context) {
	merged, err := h.team.MergedDefaults(c.Request.Context(), companyID(c))
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "company not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, merged)
}

// SetRolePermissions godoc
// @ID          setRolePermissions
// @Summary     Replace the company's overrides for one role
// @Description Stores a partial map applied to every member of the role, beneath per-user overrides. An empty map clears the role's overrides.
// @Tags        Team
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SetRoleOverridesRequest  true  "Role and partial permission map"
//
// @Success     200  {object} map[string]perm.Map
// @Failure     400  {object} handlers.ErrorResponse "Unknown role or flag name"
// @Failure     404  {object} handlers.ErrorResponse "Company not found"
// @Router      /team/permissions [patch]
func (h *Handlers) SetRolePermissions(c *gin.Context) {
	var req SetRoleOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role required")
		return
	}

	if _, err := h.team.SetRoleOverrides(c.Request.Context(), companyID(c), req.Role, req.Overrides); err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "company not found")
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown role or permission flag")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}

	merged, err := h.team.MergedDefaults(c.Request.Context(), companyID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, merged)
}

// MyAccess godoc
// @ID          myAccess
// @Summary     Caller's role and effective permissions
// @Description Single source of truth for client UIs: which areas the caller may see, after all override layers.
// @Tags        Me
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
//
// @Success     200  {object} handlers.AccessResponse
// @Failure     404  {object} handlers.ErrorResponse "No membership"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /me/access [get]
func (h *Handlers) MyAccess(c *gin.Context) {
	role, m, err := h.team.Access(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no membership for user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, AccessResponse{Role: role, Permissions: m})
}
