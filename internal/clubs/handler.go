package clubs

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/pkg/response"
)

// Slug must be lowercase alphanumeric and hyphens only, 2-64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Handler handles club HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a clubs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateClubRequest is the body for POST /clubs.
type CreateClubRequest struct {
	Name     string          `json:"name" binding:"required"`
	Slug     string          `json:"slug" binding:"required"`
	Settings json.RawMessage `json:"settings"`
}

// Create handles POST /clubs.
func (h *Handler) Create(c *gin.Context) {
	var body CreateClubRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	body.Slug = strings.ToLower(strings.TrimSpace(body.Slug))
	if !slugRegex.MatchString(body.Slug) {
		response.BadRequest(c, "slug must be 2-64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 255 {
		response.BadRequest(c, "name must be 1-255 characters")
		return
	}
	club := &models.Club{Name: body.Name, Slug: body.Slug, Settings: body.Settings}
	if err := h.repo.Create(c.Request.Context(), club); err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique") {
			response.Conflict(c, "a club with this slug already exists")
			return
		}
		response.Internal(c, "failed to create club")
		return
	}
	response.Created(c, club)
}

// GetBySlug handles GET /clubs/:slug. Public lookup for the login screen.
func (h *Handler) GetBySlug(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	club, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil || club == nil {
		response.NotFound(c, "club not found")
		return
	}
	response.OK(c, club)
}

// Me handles GET /club. Returns the caller's club.
func (h *Handler) Me(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	club, err := h.repo.GetByID(c.Request.Context(), clubID)
	if err != nil || club == nil {
		response.NotFound(c, "club not found")
		return
	}
	response.OK(c, club)
}

// UpdateSettingsRequest is the body for PUT /club/settings.
type UpdateSettingsRequest struct {
	Settings json.RawMessage `json:"settings" binding:"required"`
}

// UpdateSettings handles PUT /club/settings (admin only).
func (h *Handler) UpdateSettings(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var body UpdateSettingsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "settings required")
		return
	}
	if !json.Valid(body.Settings) {
		response.BadRequest(c, "settings must be a JSON document")
		return
	}
	if err := h.repo.UpdateSettings(c.Request.Context(), clubID, body.Settings); err != nil {
		response.Internal(c, "failed to update settings")
		return
	}
	response.NoContent(c)
}

// ListContacts handles GET /club/contacts.
func (h *Handler) ListContacts(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	list, err := h.repo.ListContacts(c.Request.Context(), clubID)
	if err != nil {
		response.Internal(c, "failed to load contacts")
		return
	}
	response.OK(c, list)
}
