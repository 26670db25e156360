package categories

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

// Handler handles category-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new categories handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateCategoryRequest represents the request to create a category
type CreateCategoryRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	Weight           int    `json:"weight"`
	DefaultContextID *uint  `json:"default_context_id"`
	RequiresContext  bool   `json:"requires_context"`
}

// UpdateCategoryRequest represents the request to update a category
type UpdateCategoryRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Weight           *int   `json:"weight"`
	DefaultContextID *uint  `json:"default_context_id"`
	RequiresContext  *bool  `json:"requires_context"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID              uint                  `json:"id"`
	Name            string                `json:"name"`
	Slug            string                `json:"slug"`
	Description     string                `json:"description"`
	Weight          int                   `json:"weight"`
	RequiresContext bool                  `json:"requires_context"`
	Breadcrumbs     []resolver.Breadcrumb `json:"breadcrumbs,omitempty"`
}

func response(category *models.Category) CategoryResponse {
	return CategoryResponse{
		ID:              category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
		Description:     category.Description,
		Weight:          category.Weight,
		RequiresContext: category.RequiresContext,
	}
}

// List returns the categories of the resolved team, heaviest weight first
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var categories []models.Category
	if err := h.db.Where("team_id = ?", chain.Team.ID).Order("weight desc, name").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = response(&categories[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a category in the resolved team (requires add_category)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_category", chain.Team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add categories to this team"})
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := models.Category{
		TeamID:           chain.Team.ID,
		Name:             req.Name,
		Description:      req.Description,
		Weight:           req.Weight,
		DefaultContextID: req.DefaultContextID,
		RequiresContext:  req.RequiresContext,
	}
	if err := policy.Save(h.db, chain.Actor, &category, "create", "Category created"); err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, response(&category))
}

// Get returns the resolved category
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	out := response(chain.Category)
	out.Breadcrumbs = chain.Breadcrumbs
	c.JSON(http.StatusOK, out)
}

// Update updates the resolved category (requires change_category)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	category := chain.Category

	allowed, err := perms.Can(h.db, chain.Actor, "change_category", category)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this category"})
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Description != "" {
		category.Description = req.Description
	}
	if req.Weight != nil {
		category.Weight = *req.Weight
	}
	if req.DefaultContextID != nil {
		category.DefaultContextID = req.DefaultContextID
	}
	if req.RequiresContext != nil {
		category.RequiresContext = *req.RequiresContext
	}

	if err := policy.Save(h.db, chain.Actor, category, "update", "Category updated"); err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, response(category))
}

// Delete deletes the resolved category and everything below it (requires
// delete_category)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	category := chain.Category

	allowed, err := perms.Can(h.db, chain.Actor, "delete_category", category)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this category"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, category, "Category deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// RegisterRoutes registers list/create routes below a resolved team
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterCategoryRoutes registers the routes below a resolved category
func (h *Handler) RegisterCategoryRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
