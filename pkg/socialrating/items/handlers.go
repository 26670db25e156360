package items

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

// Handler handles item-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new items handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ItemRequest represents the request to create or update an item
type ItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ItemResponse represents an item in API responses
type ItemResponse struct {
	ID          uint                  `json:"id"`
	Name        string                `json:"name"`
	Slug        string                `json:"slug"`
	Description string                `json:"description"`
	ReviewCount int                   `json:"review_count,omitempty"`
	Breadcrumbs []resolver.Breadcrumb `json:"breadcrumbs,omitempty"`
}

func response(item *models.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Slug:        item.Slug,
		Description: item.Description,
	}
}

// List returns the items of the resolved category
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var items []models.Item
	if err := h.db.Where("category_id = ?", chain.Category.ID).Order("name").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = response(&items[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates an item in the resolved category. All team members hold
// add_item on the category.
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_item", chain.Category)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add items to this category"})
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := models.Item{
		CategoryID:  chain.Category.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := policy.Save(h.db, chain.Actor, &item, "create", "Item created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&item))
}

// Get returns the resolved item
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var reviewCount int64
	h.db.Model(&models.Review{}).Where("item_id = ?", chain.Item.ID).Count(&reviewCount)

	out := response(chain.Item)
	out.ReviewCount = int(reviewCount)
	out.Breadcrumbs = chain.Breadcrumbs
	c.JSON(http.StatusOK, out)
}

// Update updates the resolved item (requires change_item, which all team
// members hold)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	item := chain.Item

	allowed, err := perms.Can(h.db, chain.Actor, "change_item", item)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this item"})
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item.Name = req.Name
	item.Description = req.Description
	if err := policy.Save(h.db, chain.Actor, item, "update", "Item updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(item))
}

// Delete deletes the resolved item and its reviews (requires delete_item,
// which only team admins hold)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	item := chain.Item

	allowed, err := perms.Can(h.db, chain.Actor, "delete_item", item)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this item"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, item, "Item deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

// RegisterRoutes registers list/create routes below a resolved category
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterItemRoutes registers the routes below a resolved item
func (h *Handler) RegisterItemRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
