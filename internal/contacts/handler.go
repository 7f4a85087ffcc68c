package contacts

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/pkg/response"
	"github.com/gavel-club/backend/pkg/storage"
)

// projectRefPattern matches explicit project references like "PM3.1".
var projectRefPattern = regexp.MustCompile(`^[A-Z]{2,4}[1-5]\.[0-9]+$`)

// Handler handles contact profile and administration endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a contacts handler. s3 may be nil when object storage
// is not configured; avatar endpoints then return 503.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// Me handles GET /contacts/me.
func (h *Handler) Me(c *gin.Context) {
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	contact, err := h.repo.GetByID(c.Request.Context(), clubID, contactID)
	if err != nil {
		response.NotFound(c, "contact not found")
		return
	}
	response.OK(c, contact)
}

// UpdateMeRequest is the body for PATCH /contacts/me. ClearNextProject set
// to true empties the next project independently of the other fields.
type UpdateMeRequest struct {
	FullName         *string    `json:"full_name,omitempty"`
	PathwayID        *uuid.UUID `json:"pathway_id,omitempty"`
	Credentials      *string    `json:"credentials,omitempty"`
	NextProject      *string    `json:"next_project,omitempty"`
	ClearNextProject bool       `json:"clear_next_project,omitempty"`
}

// UpdateMe handles PATCH /contacts/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.FullName != nil && *req.FullName == "" {
		response.BadRequest(c, "full_name must not be empty")
		return
	}
	if req.NextProject != nil && !projectRefPattern.MatchString(*req.NextProject) {
		response.BadRequest(c, "next_project must look like PM3.1")
		return
	}
	if req.ClearNextProject {
		if err := h.repo.ClearNextProject(c.Request.Context(), contactID); err != nil {
			response.Internal(c, "failed to update profile")
			return
		}
		req.NextProject = nil
	}
	contact, err := h.repo.UpdateProfile(c.Request.Context(), contactID, ProfileUpdate{
		FullName:    req.FullName,
		PathwayID:   req.PathwayID,
		Credentials: req.Credentials,
		NextProject: req.NextProject,
	})
	if err != nil {
		h.logger.Error("profile update failed", zap.Error(err), zap.String("contact_id", contactID.String()))
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, contact)
}

// AvatarUploadRequest is the body for POST /contacts/me/avatar.
type AvatarUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// AvatarUpload handles POST /contacts/me/avatar. Returns a presigned PUT URL
// and records the new object key; the previous avatar object is removed.
func (h *Handler) AvatarUpload(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}
	contactID := c.MustGet(middleware.ContextContactID).(uuid.UUID)
	var req AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename and content_type required")
		return
	}
	if !storage.ValidateAvatarFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported avatar file type")
		return
	}

	key := storage.AvatarKey(contactID.String(), req.Filename)
	uploadURL, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), h.s3.AvatarsBucket(), key, req.ContentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign avatar upload failed", zap.Error(err))
		response.Internal(c, "failed to prepare upload")
		return
	}
	old, err := h.repo.SetAvatarKey(c.Request.Context(), contactID, &key)
	if err != nil {
		response.Internal(c, "failed to store avatar key")
		return
	}
	if old != nil && *old != key {
		if err := h.s3.DeleteAvatar(c.Request.Context(), *old); err != nil {
			h.logger.Warn("delete old avatar failed", zap.Error(err), zap.String("key", *old))
		}
	}
	response.OK(c, gin.H{"upload_url": uploadURL, "key": key})
}

// AvatarURL handles GET /contacts/:id/avatar. Returns a presigned download URL.
func (h *Handler) AvatarURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid contact id")
		return
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	contact, err := h.repo.GetByID(c.Request.Context(), clubID, id)
	if err != nil {
		response.NotFound(c, "contact not found")
		return
	}
	if contact.AvatarKey == nil {
		response.NotFound(c, "contact has no avatar")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.AvatarsBucket(), *contact.AvatarKey, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to prepare download")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// CreateRequest is the body for POST /contacts (officer/admin).
type CreateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Type     string `json:"type" binding:"required"`
}

// Create handles POST /contacts. Officers add guests and fellow officers
// who have not registered themselves; the account carries no credentials.
func (h *Handler) Create(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	typ := models.ContactType(req.Type)
	switch typ {
	case models.ContactMember, models.ContactOfficer, models.ContactGuest:
	default:
		response.BadRequest(c, "type must be member, officer or guest")
		return
	}
	accessRole := "member"
	if typ == models.ContactOfficer {
		accessRole = "officer"
	}
	contact, err := h.repo.CreateManaged(c.Request.Context(), clubID, req.Email, req.FullName, typ, accessRole)
	if err != nil {
		h.logger.Error("create contact failed", zap.Error(err), zap.String("club_id", clubID.String()))
		response.Conflict(c, "contact with this email already exists")
		return
	}
	response.Created(c, contact)
}

// UpdateStandingRequest is the body for PATCH /contacts/:id/standing.
type UpdateStandingRequest struct {
	Type string `json:"type" binding:"required"`
}

// UpdateStanding handles PATCH /contacts/:id/standing (officer/admin).
// Promotes a guest to member, a member to officer, or demotes.
func (h *Handler) UpdateStanding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid contact id")
		return
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	var req UpdateStandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "type required")
		return
	}
	typ := models.ContactType(req.Type)
	switch typ {
	case models.ContactMember, models.ContactOfficer, models.ContactGuest:
	default:
		response.BadRequest(c, "type must be member, officer or guest")
		return
	}
	accessRole := "member"
	if typ == models.ContactOfficer {
		accessRole = "officer"
	}
	contact, err := h.repo.UpdateStanding(c.Request.Context(), clubID, id, typ, accessRole)
	if err != nil {
		response.NotFound(c, "contact not found")
		return
	}
	response.OK(c, contact)
}

// Pathways handles GET /pathways.
func (h *Handler) Pathways(c *gin.Context) {
	list, err := h.repo.ListPathways(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list pathways")
		return
	}
	response.OK(c, gin.H{"pathways": list})
}
