package roster

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/clubs"
	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/pkg/response"
)

// MeetingStore is the meeting lookup the handler needs for club scoping.
type MeetingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
}

// Handler serves the attendance surface of a meeting.
type Handler struct {
	repo        *Repository
	meetingRepo MeetingStore
	clubRepo    *clubs.Repository
}

// NewHandler creates a roster handler.
func NewHandler(repo *Repository, meetingRepo MeetingStore, clubRepo *clubs.Repository) *Handler {
	return &Handler{repo: repo, meetingRepo: meetingRepo, clubRepo: clubRepo}
}

func (h *Handler) meetingInClub(c *gin.Context, meetingID uuid.UUID) bool {
	m, err := h.meetingRepo.GetByID(c.Request.Context(), meetingID)
	if err != nil {
		response.NotFound(c, "meeting not found")
		return false
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	if m.ClubID != clubID {
		response.NotFound(c, "meeting not found")
		return false
	}
	return true
}

// List handles GET /meetings/:id/roster.
func (h *Handler) List(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if !h.meetingInClub(c, meetingID) {
		return
	}
	list, err := h.repo.ListByMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Internal(c, "failed to list roster")
		return
	}
	if list == nil {
		list = []AttendeeRow{}
	}
	response.OK(c, gin.H{"attendees": list, "count": len(list)})
}

// RSVPRequest optionally names another contact; officers use it to RSVP
// guests who have no login.
type RSVPRequest struct {
	ContactID *uuid.UUID `json:"contact_id,omitempty"`
}

// RSVP handles POST /meetings/:id/rsvp. A contact without a role joins the
// attendance list; contacts who already hold roles are on it via the engine.
func (h *Handler) RSVP(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if !h.meetingInClub(c, meetingID) {
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.ContactID != nil {
		role := c.MustGet(middleware.ContextAccessRole).(string)
		if role != "officer" && role != "admin" {
			response.Forbidden(c, "only officers can rsvp on behalf of others")
			return
		}
		contactID = *req.ContactID
	}
	entry, err := h.repo.RSVP(c.Request.Context(), meetingID, contactID)
	if err != nil {
		response.Internal(c, "failed to record rsvp")
		return
	}
	response.OK(c, entry)
}

// GuestRSVPRequest is the body for the public guest RSVP.
type GuestRSVPRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
}

// PublicRSVP handles POST /clubs/:slug/meetings/:id/rsvp (no auth). Visitors
// announce themselves by email; a guest contact is created on first visit.
func (h *Handler) PublicRSVP(c *gin.Context) {
	club, err := h.clubRepo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.NotFound(c, "club not found")
		return
	}
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	m, err := h.meetingRepo.GetByID(c.Request.Context(), meetingID)
	if err != nil || m.ClubID != club.ID {
		response.NotFound(c, "meeting not found")
		return
	}
	if !m.Status.Bookable() {
		response.Conflict(c, "meeting is not open for rsvp")
		return
	}
	var req GuestRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and full_name required")
		return
	}
	entry, err := h.repo.GuestRSVP(c.Request.Context(), club.ID, meetingID, req.Email, req.FullName)
	if err != nil {
		response.Internal(c, "failed to record rsvp")
		return
	}
	response.Created(c, entry)
}

// CancelRSVP handles DELETE /meetings/:id/rsvp. Entries that carry roles are
// left alone; cancel the bookings instead.
func (h *Handler) CancelRSVP(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if !h.meetingInClub(c, meetingID) {
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	removed, err := h.repo.CancelRSVP(c.Request.Context(), meetingID, contactID)
	if err != nil {
		response.Internal(c, "failed to cancel rsvp")
		return
	}
	if !removed {
		response.BadRequest(c, "roster entry has roles attached")
		return
	}
	response.OK(c, gin.H{"removed": true})
}
