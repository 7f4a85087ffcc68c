package roles

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/pkg/response"
)

// Handler handles role registry HTTP endpoints.
type Handler struct {
	registry *Registry
	repo     *Repository
}

// NewHandler creates a roles handler.
func NewHandler(registry *Registry, repo *Repository) *Handler {
	return &Handler{registry: registry, repo: repo}
}

// List handles GET /roles. Returns the effective registry of the caller's club.
func (h *Handler) List(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	list, err := h.registry.Effective(c.Request.Context(), clubID)
	if err != nil {
		response.Internal(c, "failed to load roles")
		return
	}
	response.OK(c, list)
}

// RoleRequest is the body for POST /roles and PUT /roles/:id.
type RoleRequest struct {
	Name             string `json:"name" binding:"required"`
	Category         string `json:"category" binding:"required"`
	Cardinality      string `json:"cardinality" binding:"required"`
	ApprovalRequired bool   `json:"approval_required"`
	MembersOnly      bool   `json:"members_only"`
	ProjectBearing   bool   `json:"project_bearing"`
}

func (r *RoleRequest) toRole(clubID uuid.UUID) (*models.Role, string) {
	name := strings.TrimSpace(r.Name)
	if name == "" || len(name) > 128 {
		return nil, "name must be 1-128 characters"
	}
	card, err := models.ParseCardinality(r.Cardinality)
	if err != nil {
		return nil, "cardinality must be single_distinct, single_shared or multi"
	}
	switch models.RoleCategory(r.Category) {
	case models.RoleCategoryOfficer, models.RoleCategorySpeech, models.RoleCategoryFunctional:
	default:
		return nil, "category must be officer, speech or functional"
	}
	id := clubID
	return &models.Role{
		ClubID:           &id,
		Name:             name,
		Category:         models.RoleCategory(r.Category),
		Cardinality:      card,
		ApprovalRequired: r.ApprovalRequired,
		MembersOnly:      r.MembersOnly,
		ProjectBearing:   r.ProjectBearing,
	}, ""
}

// Create handles POST /roles. Creates a club-local role, overriding a global
// role of the same name for this club.
func (h *Handler) Create(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var body RoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, msg := body.toRole(clubID)
	if role == nil {
		response.BadRequest(c, msg)
		return
	}
	if err := h.repo.Create(c.Request.Context(), role); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			response.Conflict(c, "a role with this name already exists for this club")
			return
		}
		response.Internal(c, "failed to create role")
		return
	}
	h.registry.Invalidate(c.Request.Context(), clubID)
	response.Created(c, role)
}

// Update handles PUT /roles/:id. Only club-local roles are mutable.
func (h *Handler) Update(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}
	var body RoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, msg := body.toRole(clubID)
	if role == nil {
		response.BadRequest(c, msg)
		return
	}
	existing, err := h.repo.GetByID(c.Request.Context(), roleID)
	if err != nil || existing == nil || existing.ClubID == nil || *existing.ClubID != clubID {
		response.NotFound(c, "role not found")
		return
	}
	role.ID = roleID
	if err := h.repo.Update(c.Request.Context(), role); err != nil {
		response.Internal(c, "failed to update role")
		return
	}
	h.registry.Invalidate(c.Request.Context(), clubID)
	response.OK(c, role)
}

// Delete handles DELETE /roles/:id. Only club-local roles can be removed;
// the global role of the same name becomes effective again.
func (h *Handler) Delete(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}
	ok, err := h.repo.Delete(c.Request.Context(), clubID, roleID)
	if err != nil {
		response.Internal(c, "failed to delete role")
		return
	}
	if !ok {
		response.NotFound(c, "role not found")
		return
	}
	h.registry.Invalidate(c.Request.Context(), clubID)
	response.NoContent(c)
}

// Aliases handles GET /roles/aliases.
func (h *Handler) Aliases(c *gin.Context) {
	list, err := h.repo.ListAliases(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load aliases")
		return
	}
	response.OK(c, list)
}
