package projection

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/pkg/response"
)

// Handler handles projection HTTP endpoints.
type Handler struct {
	cache *Cache
	pool  *pgxpool.Pool
}

// NewHandler creates a projection handler.
func NewHandler(cache *Cache, pool *pgxpool.Pool) *Handler {
	return &Handler{cache: cache, pool: pool}
}

// Bookings handles GET /meetings/:id/bookings. The full agenda read model of
// one meeting.
func (h *Handler) Bookings(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var ok bool
	if err := h.pool.QueryRow(c.Request.Context(),
		`SELECT true FROM meetings WHERE id = $1 AND club_id = $2`, meetingID, clubID).Scan(&ok); err != nil {
		response.NotFound(c, "meeting not found")
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	var viewerType models.ContactType
	if err := h.pool.QueryRow(c.Request.Context(),
		`SELECT type FROM contacts WHERE id = $1`, contactID).Scan(&viewerType); err != nil {
		response.Internal(c, "failed to build projection")
		return
	}
	view, err := h.cache.Get(c.Request.Context(), meetingID)
	if err != nil {
		response.Internal(c, "failed to build projection")
		return
	}
	response.OK(c, view.PersonalizeFor(contactID, viewerType))
}

// MyRoles handles GET /meetings/:id/my-roles. Returns the role names the
// calling contact holds in the meeting.
func (h *Handler) MyRoles(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	names, err := h.cache.builder.RolesOfContact(c.Request.Context(), meetingID, contactID)
	if err != nil {
		response.Internal(c, "failed to load roles")
		return
	}
	if names == nil {
		names = []string{}
	}
	response.OK(c, gin.H{"roles": names})
}
