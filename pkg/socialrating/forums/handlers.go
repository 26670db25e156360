package forums

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

// Handler handles forum-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new forums handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ForumRequest represents the request to create or update a forum
type ForumRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ForumResponse represents a forum in API responses
type ForumResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ThreadCount int    `json:"thread_count,omitempty"`
}

func response(forum *models.Forum) ForumResponse {
	return ForumResponse{
		ID:          forum.ID,
		Name:        forum.Name,
		Slug:        forum.Slug,
		Description: forum.Description,
	}
}

// List returns the forums of the resolved team
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var forums []models.Forum
	if err := h.db.Where("team_id = ?", chain.Team.ID).Order("name").Find(&forums).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch forums"})
		return
	}

	out := make([]ForumResponse, len(forums))
	for i := range forums {
		out[i] = response(&forums[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a forum in the resolved team (requires add_forum)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_forum", chain.Team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add forums to this team"})
		return
	}

	var req ForumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	forum := models.Forum{
		TeamID:      chain.Team.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := policy.Save(h.db, chain.Actor, &forum, "create", "Forum created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&forum))
}

// Get returns the resolved forum
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var threadCount int64
	h.db.Model(&models.Thread{}).Where("forum_id = ?", chain.Forum.ID).Count(&threadCount)

	out := response(chain.Forum)
	out.ThreadCount = int(threadCount)
	c.JSON(http.StatusOK, out)
}

// Update updates the resolved forum (requires change_forum)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	forum := chain.Forum

	allowed, err := perms.Can(h.db, chain.Actor, "change_forum", forum)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this forum"})
		return
	}

	var req ForumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	forum.Name = req.Name
	forum.Description = req.Description
	if err := policy.Save(h.db, chain.Actor, forum, "update", "Forum updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(forum))
}

// Delete deletes the resolved forum and its threads (requires delete_forum)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	forum := chain.Forum

	allowed, err := perms.Can(h.db, chain.Actor, "delete_forum", forum)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this forum"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, forum, "Forum deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Forum deleted"})
}

// RegisterRoutes registers list/create routes below a resolved team
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterForumRoutes registers the routes below a resolved forum
func (h *Handler) RegisterForumRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
