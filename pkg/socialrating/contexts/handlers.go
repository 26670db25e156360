package contexts

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

// Handler handles context-related requests. A Context groups reviews,
// for example an event during which the reviews were written.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new contexts handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ContextRequest represents the request to create or update a context
type ContextRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ContextResponse represents a context in API responses
type ContextResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func response(context *models.Context) ContextResponse {
	return ContextResponse{
		ID:          context.ID,
		Name:        context.Name,
		Slug:        context.Slug,
		Description: context.Description,
	}
}

// List returns the contexts of the resolved team
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var contexts []models.Context
	if err := h.db.Where("team_id = ?", chain.Team.ID).Order("name").Find(&contexts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contexts"})
		return
	}

	out := make([]ContextResponse, len(contexts))
	for i := range contexts {
		out[i] = response(&contexts[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a context in the resolved team (requires add_context)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_context", chain.Team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add contexts to this team"})
		return
	}

	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	context := models.Context{
		TeamID:      chain.Team.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := policy.Save(h.db, chain.Actor, &context, "create", "Context created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&context))
}

// Get returns the resolved context
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	c.JSON(http.StatusOK, response(chain.Context))
}

// Update updates the resolved context (requires change_context)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	context := chain.Context

	allowed, err := perms.Can(h.db, chain.Actor, "change_context", context)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this context"})
		return
	}

	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	context.Name = req.Name
	context.Description = req.Description
	if err := policy.Save(h.db, chain.Actor, context, "update", "Context updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(context))
}

// Delete deletes the resolved context (requires delete_context)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	context := chain.Context

	allowed, err := perms.Can(h.db, chain.Actor, "delete_context", context)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this context"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, context, "Context deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Context deleted"})
}

// RegisterRoutes registers list/create routes below a resolved team
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterContextRoutes registers the routes below a resolved context
func (h *Handler) RegisterContextRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
