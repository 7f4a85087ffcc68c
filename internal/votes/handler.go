package votes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/meetings"
	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/internal/realtime"
	"github.com/gavel-club/backend/pkg/response"
)

// CreateCategoryRequest is the body for POST /meetings/:id/vote-categories.
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// CastRequest is the body for POST /vote-categories/:id/vote.
type CastRequest struct {
	NomineeID uuid.UUID `json:"nominee_id" binding:"required"`
}

// Handler handles award voting HTTP endpoints.
type Handler struct {
	repo        *Repository
	meetingRepo *meetings.Repository
	hub         *realtime.Hub
}

// NewHandler creates a votes handler.
func NewHandler(repo *Repository, meetingRepo *meetings.Repository, hub *realtime.Hub) *Handler {
	return &Handler{repo: repo, meetingRepo: meetingRepo, hub: hub}
}

func (h *Handler) meetingInClub(c *gin.Context, meetingID uuid.UUID) (*models.Meeting, bool) {
	m, err := h.meetingRepo.GetByID(c.Request.Context(), meetingID)
	if err != nil {
		response.NotFound(c, "meeting not found")
		return nil, false
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	if m.ClubID != clubID {
		response.NotFound(c, "meeting not found")
		return nil, false
	}
	return m, true
}

// CreateCategory handles POST /meetings/:id/vote-categories (officer/admin).
func (h *Handler) CreateCategory(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if _, ok := h.meetingInClub(c, meetingID); !ok {
		return
	}
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	vc := &models.VoteCategory{MeetingID: meetingID, Name: req.Name}
	if err := h.repo.CreateCategory(c.Request.Context(), vc); err != nil {
		response.Internal(c, "failed to create category")
		return
	}
	h.hub.BroadcastToMeetingAndPublish(meetingID, "vote_category_opened", vc)
	response.Created(c, vc)
}

// ListCategories handles GET /meetings/:id/vote-categories.
func (h *Handler) ListCategories(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if _, ok := h.meetingInClub(c, meetingID); !ok {
		return
	}
	list, err := h.repo.ListCategories(c.Request.Context(), meetingID)
	if err != nil {
		response.Internal(c, "failed to list categories")
		return
	}
	response.OK(c, list)
}

// Cast handles POST /vote-categories/:id/vote.
func (h *Handler) Cast(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	vc, err := h.repo.GetCategory(c.Request.Context(), categoryID)
	if err != nil {
		response.NotFound(c, "category not found")
		return
	}
	if _, ok := h.meetingInClub(c, vc.MeetingID); !ok {
		return
	}
	if !vc.Open {
		response.BadRequest(c, "voting is closed for this category")
		return
	}
	var req CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "nominee_id required")
		return
	}
	voterID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	if err := h.repo.Cast(c.Request.Context(), categoryID, vc.MeetingID, voterID, req.NomineeID); err != nil {
		response.Internal(c, "failed to record vote")
		return
	}
	response.OK(c, gin.H{"category_id": categoryID, "nominee_id": req.NomineeID})
}

// CloseCategory handles POST /vote-categories/:id/close (officer/admin).
// Closing publishes the tally to the meeting room.
func (h *Handler) CloseCategory(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	vc, err := h.repo.GetCategory(c.Request.Context(), categoryID)
	if err != nil {
		response.NotFound(c, "category not found")
		return
	}
	if _, ok := h.meetingInClub(c, vc.MeetingID); !ok {
		return
	}
	if err := h.repo.CloseCategory(c.Request.Context(), categoryID); err != nil {
		response.Internal(c, "failed to close category")
		return
	}
	tally, err := h.repo.Tally(c.Request.Context(), categoryID)
	if err != nil {
		response.Internal(c, "failed to tally votes")
		return
	}
	h.hub.BroadcastToMeetingAndPublish(vc.MeetingID, "vote_result", tally)
	response.OK(c, tally)
}

// Tally handles GET /vote-categories/:id/tally (officer/admin).
func (h *Handler) Tally(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	vc, err := h.repo.GetCategory(c.Request.Context(), categoryID)
	if err != nil {
		response.NotFound(c, "category not found")
		return
	}
	if _, ok := h.meetingInClub(c, vc.MeetingID); !ok {
		return
	}
	tally, err := h.repo.Tally(c.Request.Context(), categoryID)
	if err != nil {
		response.Internal(c, "failed to tally votes")
		return
	}
	response.OK(c, tally)
}
