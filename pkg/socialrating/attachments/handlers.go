package attachments

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
	"github.com/socialrating/socialrating/pkg/socialrating/policy"
	"github.com/socialrating/socialrating/pkg/socialrating/resolver"
)

// Handler handles attachment metadata requests. Like comments,
// attachments hang off whatever entity the route resolved last, so the
// handler is registered under several route groups. Blob storage lives
// outside the core; only metadata is served here.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new attachments handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateAttachmentRequest represents the request to record an attachment
type CreateAttachmentRequest struct {
	Filename    string `json:"filename" binding:"required"`
	Mimetype    string `json:"mimetype"`
	Size        int64  `json:"size"`
	Description string `json:"description"`
}

// UpdateAttachmentRequest represents the request to update an attachment
type UpdateAttachmentRequest struct {
	Description string `json:"description"`
}

// AttachmentResponse represents an attachment in API responses
type AttachmentResponse struct {
	ID          uint   `json:"id"`
	TargetType  string `json:"target_type"`
	TargetID    uint   `json:"target_id"`
	ActorID     uint   `json:"actor_id"`
	Filename    string `json:"filename"`
	Mimetype    string `json:"mimetype,omitempty"`
	Size        int64  `json:"size"`
	Description string `json:"description,omitempty"`
}

func response(att *models.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          att.ID,
		TargetType:  att.TargetType,
		TargetID:    att.TargetID,
		ActorID:     att.ActorID,
		Filename:    att.Filename,
		Mimetype:    att.Mimetype,
		Size:        att.Size,
		Description: att.Description,
	}
}

// List returns the attachments of the resolved subject
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	subject := chain.Subject

	var atts []models.Attachment
	if err := h.db.
		Where("target_type = ? AND target_id = ?", subject.ObjectType(), subject.ObjectRef()).
		Order("created_at").Find(&atts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attachments"})
		return
	}

	out := make([]AttachmentResponse, len(atts))
	for i := range atts {
		out[i] = response(&atts[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create records an attachment on the resolved subject (requires
// add_attachment on the subject)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	subject := chain.Subject

	allowed, err := perms.Can(h.db, chain.Actor, "add_attachment", subject)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to attach files here"})
		return
	}

	var req CreateAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	att := models.Attachment{
		TargetType:  subject.ObjectType(),
		TargetID:    subject.ObjectRef(),
		ActorID:     chain.Actor.ID,
		Filename:    req.Filename,
		Mimetype:    req.Mimetype,
		Size:        req.Size,
		Description: req.Description,
	}
	if err := policy.Save(h.db, chain.Actor, &att, "create", "Attachment added"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&att))
}

// Get returns the resolved attachment
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	c.JSON(http.StatusOK, response(chain.Attachment))
}

// Update updates the resolved attachment's description (requires
// change_attachment, held only by the uploader)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	att := chain.Attachment

	allowed, err := perms.Can(h.db, chain.Actor, "change_attachment", att)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this attachment"})
		return
	}

	var req UpdateAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	att.Description = req.Description
	if err := policy.Save(h.db, chain.Actor, att, "update", "Attachment updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(att))
}

// Delete deletes the resolved attachment (requires delete_attachment,
// held by the uploader and by team admins)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	att := chain.Attachment

	allowed, err := perms.Can(h.db, chain.Actor, "delete_attachment", att)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this attachment"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, att, "Attachment deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted"})
}

// RegisterRoutes registers list/create routes below a resolved subject
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterAttachmentRoutes registers the routes below a resolved attachment
func (h *Handler) RegisterAttachmentRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
