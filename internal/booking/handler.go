package booking

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/pkg/response"
)

// WriteError maps an engine error to an HTTP response.
func WriteError(c *gin.Context, err error) {
	reason := ReasonOf(err)
	switch KindOf(err) {
	case KindNotFound:
		response.NotFound(c, reason)
	case KindNotBookable:
		response.Conflict(c, reason)
	case KindConflict:
		response.Conflict(c, reason)
	case KindConfig:
		response.Internal(c, reason)
	case KindTransient:
		response.ServiceUnavailable(c, reason)
	default:
		response.Internal(c, "internal error")
	}
}

// Handler handles booking HTTP endpoints.
type Handler struct {
	engine *Engine
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHandler creates a booking handler.
func NewHandler(engine *Engine, pool *pgxpool.Pool, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, pool: pool, logger: logger}
}

// meetingInClub verifies the meeting belongs to the caller's club.
func (h *Handler) meetingInClub(c *gin.Context) (uuid.UUID, bool) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return uuid.Nil, false
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var ok bool
	err = h.pool.QueryRow(c.Request.Context(),
		`SELECT true FROM meetings WHERE id = $1 AND club_id = $2`, meetingID, clubID).Scan(&ok)
	if err != nil {
		response.NotFound(c, "meeting not found")
		return uuid.Nil, false
	}
	return meetingID, true
}

// BookRequest is the body for POST /meetings/:id/book. Exactly one of
// slot_id and role_id must be set.
type BookRequest struct {
	SlotID *uuid.UUID `json:"slot_id"`
	RoleID *uuid.UUID `json:"role_id"`
}

// Book handles POST /meetings/:id/book. Books the calling contact onto a
// slot, or onto the best open slot of a role.
func (h *Handler) Book(c *gin.Context) {
	meetingID, ok := h.meetingInClub(c)
	if !ok {
		return
	}
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if (req.SlotID == nil) == (req.RoleID == nil) {
		response.BadRequest(c, "exactly one of slot_id and role_id required")
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	res, err := h.engine.Book(c.Request.Context(), meetingID, Target{SlotID: req.SlotID, RoleID: req.RoleID}, contactID)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.OK(c, res)
}

// CancelRequest is the body for POST /meetings/:id/slots/:slotID/cancel.
// ContactID is honored only for officers and admins; members cancel themselves.
type CancelRequest struct {
	ContactID *uuid.UUID `json:"contact_id"`
}

// Cancel handles POST /meetings/:id/slots/:slotID/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	meetingID, ok := h.meetingInClub(c)
	if !ok {
		return
	}
	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.ContactID != nil {
		role := c.MustGet(middleware.ContextAccessRole).(string)
		if role != "officer" && role != "admin" {
			response.Forbidden(c, "only officers can cancel for others")
			return
		}
		contactID = *req.ContactID
	}
	res, err := h.engine.Cancel(c.Request.Context(), meetingID, slotID, contactID)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.OK(c, res)
}

// AssignRequest is the body for PUT /meetings/:id/slots/:slotID/assign.
type AssignRequest struct {
	ContactIDs []uuid.UUID `json:"contact_ids"`
}

// Assign handles PUT /meetings/:id/slots/:slotID/assign (officer/admin only).
// Replaces the owner set; an empty list clears the slot.
func (h *Handler) Assign(c *gin.Context) {
	meetingID, ok := h.meetingInClub(c)
	if !ok {
		return
	}
	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.engine.Assign(c.Request.Context(), meetingID, slotID, req.ContactIDs)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.OK(c, res)
}

// Approve handles POST /meetings/:id/slots/:slotID/approve (officer/admin
// only). Promotes the earliest waitlisted contact of an approval-gated slot.
func (h *Handler) Approve(c *gin.Context) {
	meetingID, ok := h.meetingInClub(c)
	if !ok {
		return
	}
	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	res, err := h.engine.ApproveWaitlist(c.Request.Context(), meetingID, slotID)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.OK(c, res)
}
