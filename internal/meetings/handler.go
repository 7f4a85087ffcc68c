package meetings

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/booking"
	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/internal/roles"
	"github.com/gavel-club/backend/pkg/response"
	"github.com/gavel-club/backend/pkg/storage"
)

// Handler handles meeting and agenda HTTP endpoints.
type Handler struct {
	repo     *Repository
	registry *roles.Registry
	engine   *booking.Engine
	s3       *storage.S3
	logger   *zap.Logger
}

// NewHandler creates a meetings handler. s3 may be nil when media uploads are disabled.
func NewHandler(repo *Repository, registry *roles.Registry, engine *booking.Engine, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, registry: registry, engine: engine, s3: s3, logger: logger}
}

// CreateRequest is the body for POST /meetings. Either a builtin template
// name or an explicit entry list drives the agenda.
type CreateRequest struct {
	Title    string          `json:"title" binding:"required"`
	StartsAt string          `json:"starts_at" binding:"required"`
	Template string          `json:"template"`
	Entries  []TemplateEntry `json:"entries"`
}

// Create handles POST /meetings (officer/admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}

	entries := req.Entries
	var template *string
	if len(entries) == 0 {
		name := req.Template
		if name == "" {
			name = "standard"
		}
		var ok bool
		entries, ok = TemplateByName(name)
		if !ok {
			response.BadRequest(c, "unknown template "+name)
			return
		}
		template = &name
	}

	m := &models.Meeting{
		ClubID:    clubID,
		Title:     req.Title,
		StartsAt:  startsAt,
		Status:    models.MeetingDraft,
		Template:  template,
		CreatedBy: contactID,
	}
	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		h.logger.Error("create meeting failed", zap.Error(err))
		response.Internal(c, "failed to create meeting")
		return
	}

	slots, err := ExpandTemplate(c.Request.Context(), h.registry, clubID, m.ID, entries)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.CreateSlots(c.Request.Context(), slots); err != nil {
		h.logger.Error("create slots failed", zap.Error(err), zap.String("meeting_id", m.ID.String()))
		response.Internal(c, "failed to create agenda")
		return
	}
	response.Created(c, gin.H{"meeting": m, "slots": len(slots)})
}

// List handles GET /meetings. Query ?status= filters by lifecycle state.
func (h *Handler) List(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var status *models.MeetingStatus
	if s := c.Query("status"); s != "" {
		parsed, err := models.ParseMeetingStatus(s)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		status = &parsed
	}
	list, err := h.repo.List(c.Request.Context(), clubID, status)
	if err != nil {
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, list)
}

// meetingOf loads a meeting and checks club scope.
func (h *Handler) meetingOf(c *gin.Context) (*models.Meeting, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return nil, false
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
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

// Get handles GET /meetings/:id. Returns the meeting with its agenda.
func (h *Handler) Get(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	slots, err := h.repo.ListSlots(c.Request.Context(), m.ID)
	if err != nil {
		response.Internal(c, "failed to load agenda")
		return
	}
	response.OK(c, gin.H{"meeting": m, "slots": slots})
}

// UpdateRequest is the body for PUT /meetings/:id.
type UpdateRequest struct {
	Title    string  `json:"title" binding:"required"`
	StartsAt *string `json:"starts_at"`
}

// Update handles PUT /meetings/:id (officer/admin only).
func (h *Handler) Update(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var startsAt *time.Time
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		startsAt = &t
	}
	if err := h.repo.Update(c.Request.Context(), m.ID, req.Title, startsAt); err != nil {
		response.Internal(c, "failed to update meeting")
		return
	}
	response.NoContent(c)
}

// UpdateStatusRequest is the body for PATCH /meetings/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /meetings/:id/status (officer/admin only).
func (h *Handler) UpdateStatus(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status, err := models.ParseMeetingStatus(req.Status)
	if err != nil {
		response.BadRequest(c, "invalid status")
		return
	}
	if err := h.repo.UpdateStatus(c.Request.Context(), m.ID, status); err != nil {
		response.Internal(c, "failed to update status")
		return
	}
	response.NoContent(c)
}

// Delete handles DELETE /meetings/:id (admin only). Cascades through
// waitlists, ownership, roster, votes and slots.
func (h *Handler) Delete(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	if err := h.engine.DeleteMeeting(c.Request.Context(), m.ID); err != nil {
		booking.WriteError(c, err)
		return
	}
	response.NoContent(c)
}

// Templates handles GET /meetings/templates.
func (h *Handler) Templates(c *gin.Context) {
	out := make(map[string][]TemplateEntry, len(builtinTemplates))
	for _, name := range TemplateNames() {
		entries, _ := TemplateByName(name)
		out[name] = entries
	}
	response.OK(c, out)
}

// AddSlotRequest is the body for POST /meetings/:id/slots.
type AddSlotRequest struct {
	RoleID      uuid.UUID  `json:"role_id" binding:"required"`
	Title       *string    `json:"title"`
	ProjectID   *uuid.UUID `json:"project_id"`
	DurationMin *int       `json:"duration_min"`
	DurationMax *int       `json:"duration_max"`
}

// AddSlot handles POST /meetings/:id/slots (officer/admin only).
func (h *Handler) AddSlot(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	var req AddSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sl := &models.Slot{
		MeetingID:   m.ID,
		RoleID:      req.RoleID,
		Title:       req.Title,
		ProjectID:   req.ProjectID,
		DurationMin: req.DurationMin,
		DurationMax: req.DurationMax,
	}
	if err := h.repo.AddSlot(c.Request.Context(), sl); err != nil {
		response.Internal(c, "failed to add slot")
		return
	}
	response.Created(c, sl)
}

// UpdateSlotRequest is the body for PUT /meetings/:id/slots/:slotID.
type UpdateSlotRequest struct {
	Title       *string    `json:"title"`
	ProjectID   *uuid.UUID `json:"project_id"`
	StartsAt    *string    `json:"starts_at"`
	DurationMin *int       `json:"duration_min"`
	DurationMax *int       `json:"duration_max"`
}

func (h *Handler) slotOf(c *gin.Context, meetingID uuid.UUID) (*models.Slot, bool) {
	slotID, err := uuid.Parse(c.Param("slotID"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return nil, false
	}
	sl, err := h.repo.GetSlot(c.Request.Context(), slotID)
	if err != nil || sl.MeetingID != meetingID {
		response.NotFound(c, "slot not found")
		return nil, false
	}
	return sl, true
}

// UpdateSlot handles PUT /meetings/:id/slots/:slotID (officer/admin only).
func (h *Handler) UpdateSlot(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	sl, ok := h.slotOf(c, m.ID)
	if !ok {
		return
	}
	var req UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var startsAt *time.Time
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		startsAt = &t
	}
	if err := h.repo.UpdateSlot(c.Request.Context(), sl.ID, req.Title, req.ProjectID, startsAt, req.DurationMin, req.DurationMax); err != nil {
		response.Internal(c, "failed to update slot")
		return
	}
	response.NoContent(c)
}

// CancelSlot handles DELETE /meetings/:id/slots/:slotID (officer/admin
// only). Owners are removed through the engine first so waitlists and the
// roster converge.
func (h *Handler) CancelSlot(c *gin.Context) {
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	sl, ok := h.slotOf(c, m.ID)
	if !ok {
		return
	}
	if _, err := h.engine.Assign(c.Request.Context(), m.ID, sl.ID, nil); err != nil {
		booking.WriteError(c, err)
		return
	}
	if err := h.repo.CancelSlot(c.Request.Context(), sl.ID); err != nil {
		response.Internal(c, "failed to cancel slot")
		return
	}
	response.NoContent(c)
}

// MediaUploadRequest is the body for POST /meetings/:id/slots/:slotID/media.
type MediaUploadRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// CreateMediaUpload handles POST /meetings/:id/slots/:slotID/media. Creates
// the media row and returns a pre-signed PUT URL for direct upload.
func (h *Handler) CreateMediaUpload(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	sl, ok := h.slotOf(c, m.ID)
	if !ok {
		return
	}
	var req MediaUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename required")
		return
	}
	contentType := storage.ContentTypeForFilename(req.Filename)
	key := storage.MediaKey(m.ID.String(), uuid.New().String(), req.Filename)
	media, err := h.repo.CreateMedia(c.Request.Context(), sl.ID, key, contentType)
	if err != nil {
		response.Internal(c, "failed to create media")
		return
	}
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), h.s3.MediaBucket(), key, contentType, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to presign upload")
		return
	}
	response.Created(c, gin.H{"media": media, "upload_url": url})
}

// GetMediaURL handles GET /meetings/:id/slots/:slotID/media. Returns a
// pre-signed GET URL for the slot's attached media.
func (h *Handler) GetMediaURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	m, ok := h.meetingOf(c)
	if !ok {
		return
	}
	sl, ok := h.slotOf(c, m.ID)
	if !ok {
		return
	}
	if sl.MediaID == nil {
		response.NotFound(c, "slot has no media")
		return
	}
	media, err := h.repo.GetMedia(c.Request.Context(), *sl.MediaID)
	if err != nil {
		response.NotFound(c, "media not found")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.MediaBucket(), media.StoreKey, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to presign download")
		return
	}
	response.OK(c, gin.H{"url": url, "mime_type": media.MimeType})
}
