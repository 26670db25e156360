package comments

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

// Handler handles comment requests. Comments attach to whatever entity
// the route resolved last (item, review or thread), so the same handler
// is registered under several route groups.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new comments handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateCommentRequest represents the request to create a comment
type CreateCommentRequest struct {
	Body      string `json:"body" binding:"required"`
	ReplyToID *uint  `json:"reply_to_id"`
}

// UpdateCommentRequest represents the request to update a comment
type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// CommentResponse represents a comment in API responses
type CommentResponse struct {
	ID         uint   `json:"id"`
	TargetType string `json:"target_type"`
	TargetID   uint   `json:"target_id"`
	ActorID    uint   `json:"actor_id"`
	ReplyToID  *uint  `json:"reply_to_id,omitempty"`
	Body       string `json:"body"`
}

func response(comment *models.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		TargetType: comment.TargetType,
		TargetID:   comment.TargetID,
		ActorID:    comment.ActorID,
		ReplyToID:  comment.ReplyToID,
		Body:       comment.Body,
	}
}

// List returns the comments attached to the resolved subject
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	subject := chain.Subject

	var comments []models.Comment
	if err := h.db.
		Where("target_type = ? AND target_id = ?", subject.ObjectType(), subject.ObjectRef()).
		Order("created_at").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	out := make([]CommentResponse, len(comments))
	for i := range comments {
		out[i] = response(&comments[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a comment on the resolved subject (requires add_comment
// on the subject). Commenting on a locked thread is rejected.
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	subject := chain.Subject

	if thread, ok := subject.(*models.Thread); ok && thread.Locked {
		c.JSON(http.StatusForbidden, gin.H{"error": "This thread is locked"})
		return
	}

	allowed, err := perms.Can(h.db, chain.Actor, "add_comment", subject)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to comment here"})
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment := models.Comment{
		TargetType: subject.ObjectType(),
		TargetID:   subject.ObjectRef(),
		ActorID:    chain.Actor.ID,
		ReplyToID:  req.ReplyToID,
		Body:       req.Body,
	}
	if err := policy.Save(h.db, chain.Actor, &comment, "create", "Comment created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&comment))
}

// Get returns the resolved comment
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	c.JSON(http.StatusOK, response(chain.Comment))
}

// Update updates the resolved comment (requires change_comment, held
// only by the author)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	comment := chain.Comment

	allowed, err := perms.Can(h.db, chain.Actor, "change_comment", comment)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this comment"})
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment.Body = req.Body
	if err := policy.Save(h.db, chain.Actor, comment, "update", "Comment updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(comment))
}

// Delete deletes the resolved comment (requires delete_comment, held by
// the author and by team admins)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	comment := chain.Comment

	allowed, err := perms.Can(h.db, chain.Actor, "delete_comment", comment)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this comment"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, comment, "Comment deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// RegisterRoutes registers list/create routes below a resolved subject
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterCommentRoutes registers the routes below a resolved comment
func (h *Handler) RegisterCommentRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
