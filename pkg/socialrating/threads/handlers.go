package threads

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

// Handler handles thread-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new threads handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateThreadRequest represents the request to create a thread
type CreateThreadRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body"`
}

// UpdateThreadRequest represents the request to update a thread. Locked
// toggles whether new comments are accepted.
type UpdateThreadRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Locked  *bool  `json:"locked"`
}

// ThreadResponse represents a thread in API responses
type ThreadResponse struct {
	ID           uint                  `json:"id"`
	Subject      string                `json:"subject"`
	Slug         string                `json:"slug"`
	Body         string                `json:"body"`
	ActorID      uint                  `json:"actor_id"`
	Locked       bool                  `json:"locked"`
	CommentCount int                   `json:"comment_count,omitempty"`
	Breadcrumbs  []resolver.Breadcrumb `json:"breadcrumbs,omitempty"`
}

func response(thread *models.Thread) ThreadResponse {
	return ThreadResponse{
		ID:      thread.ID,
		Subject: thread.Subject,
		Slug:    thread.Slug,
		Body:    thread.Body,
		ActorID: thread.ActorID,
		Locked:  thread.Locked,
	}
}

// List returns the threads of the resolved forum
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var threads []models.Thread
	if err := h.db.Where("forum_id = ?", chain.Forum.ID).Order("created_at desc").Find(&threads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch threads"})
		return
	}

	out := make([]ThreadResponse, len(threads))
	for i := range threads {
		out[i] = response(&threads[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a thread in the resolved forum (requires add_thread,
// which all team members hold on the forum)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_thread", chain.Forum)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to post in this forum"})
		return
	}

	var req CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread := models.Thread{
		ForumID: chain.Forum.ID,
		ActorID: chain.Actor.ID,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := policy.Save(h.db, chain.Actor, &thread, "create", "Thread created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&thread))
}

// Get returns the resolved thread
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var commentCount int64
	h.db.Model(&models.Comment{}).
		Where("target_type = ? AND target_id = ?", chain.Thread.ObjectType(), chain.Thread.ID).
		Count(&commentCount)

	out := response(chain.Thread)
	out.CommentCount = int(commentCount)
	out.Breadcrumbs = chain.Breadcrumbs
	c.JSON(http.StatusOK, out)
}

// Update updates the resolved thread (requires change_thread, held by
// the author and by team admins). Only change_thread holders may toggle
// the locked flag.
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	thread := chain.Thread

	allowed, err := perms.Can(h.db, chain.Actor, "change_thread", thread)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this thread"})
		return
	}

	var req UpdateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Subject != "" {
		thread.Subject = req.Subject
	}
	if req.Body != "" {
		thread.Body = req.Body
	}
	if req.Locked != nil {
		thread.Locked = *req.Locked
	}
	if err := policy.Save(h.db, chain.Actor, thread, "update", "Thread updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(thread))
}

// Delete deletes the resolved thread and its comments (requires
// delete_thread, held by the author and by team admins)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	thread := chain.Thread

	allowed, err := perms.Can(h.db, chain.Actor, "delete_thread", thread)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this thread"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, thread, "Thread deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Thread deleted"})
}

// RegisterRoutes registers list/create routes below a resolved forum
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterThreadRoutes registers the routes below a resolved thread
func (h *Handler) RegisterThreadRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
