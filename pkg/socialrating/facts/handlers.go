package facts

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

// Handler handles fact-definition requests. A Fact defines a dynamic
// per-Category attribute; the value storage itself lives behind the
// schema-extension boundary.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new facts handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// FactRequest represents the request to create or update a fact
type FactRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// FactResponse represents a fact in API responses
type FactResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func response(fact *models.Fact) FactResponse {
	return FactResponse{
		ID:          fact.ID,
		Name:        fact.Name,
		Slug:        fact.Slug,
		Description: fact.Description,
	}
}

// List returns the facts of the resolved category
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var facts []models.Fact
	if err := h.db.Where("category_id = ?", chain.Category.ID).Order("name").Find(&facts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch facts"})
		return
	}

	out := make([]FactResponse, len(facts))
	for i := range facts {
		out[i] = response(&facts[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a fact in the resolved category (requires add_fact)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_fact", chain.Category)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add facts to this category"})
		return
	}

	var req FactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fact := models.Fact{
		CategoryID:  chain.Category.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := policy.Save(h.db, chain.Actor, &fact, "create", "Fact created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&fact))
}

// Get returns the resolved fact
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	c.JSON(http.StatusOK, response(chain.Fact))
}

// Update updates the resolved fact (requires change_fact)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	fact := chain.Fact

	allowed, err := perms.Can(h.db, chain.Actor, "change_fact", fact)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this fact"})
		return
	}

	var req FactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fact.Name = req.Name
	fact.Description = req.Description
	if err := policy.Save(h.db, chain.Actor, fact, "update", "Fact updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(fact))
}

// Delete deletes the resolved fact (requires delete_fact)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	fact := chain.Fact

	allowed, err := perms.Can(h.db, chain.Actor, "delete_fact", fact)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this fact"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, fact, "Fact deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fact deleted"})
}

// RegisterRoutes registers list/create routes below a resolved category
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterFactRoutes registers the routes below a resolved fact
func (h *Handler) RegisterFactRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
