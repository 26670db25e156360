package ratings

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

// Handler handles rating-definition requests. A Rating is a voteable
// dimension of a Category; team admins manage them.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new ratings handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RatingRequest represents the request to create or update a rating
type RatingRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	MaxRating   int    `json:"max_rating" binding:"required"`
	Icon        string `json:"icon"`
}

// RatingResponse represents a rating in API responses
type RatingResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	MaxRating   int    `json:"max_rating"`
	Icon        string `json:"icon"`
}

func response(rating *models.Rating) RatingResponse {
	return RatingResponse{
		ID:          rating.ID,
		Name:        rating.Name,
		Slug:        rating.Slug,
		Description: rating.Description,
		MaxRating:   rating.MaxRating,
		Icon:        rating.Icon,
	}
}

// List returns the ratings of the resolved category
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var ratings []models.Rating
	if err := h.db.Where("category_id = ?", chain.Category.ID).Order("name").Find(&ratings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ratings"})
		return
	}

	out := make([]RatingResponse, len(ratings))
	for i := range ratings {
		out[i] = response(&ratings[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a rating in the resolved category (requires add_rating)
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_rating", chain.Category)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add ratings to this category"})
		return
	}

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating := models.Rating{
		CategoryID:  chain.Category.ID,
		Name:        req.Name,
		Description: req.Description,
		MaxRating:   req.MaxRating,
	}
	if req.Icon != "" {
		rating.Icon = req.Icon
	}
	if err := policy.Save(h.db, chain.Actor, &rating, "create", "Rating created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&rating))
}

// Get returns the resolved rating
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	c.JSON(http.StatusOK, response(chain.Rating))
}

// Update updates the resolved rating (requires change_rating)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	rating := chain.Rating

	allowed, err := perms.Can(h.db, chain.Actor, "change_rating", rating)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this rating"})
		return
	}

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating.Name = req.Name
	rating.Description = req.Description
	rating.MaxRating = req.MaxRating
	if req.Icon != "" {
		rating.Icon = req.Icon
	}
	if err := policy.Save(h.db, chain.Actor, rating, "update", "Rating updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(rating))
}

// Delete deletes the resolved rating and its votes (requires delete_rating)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	rating := chain.Rating

	allowed, err := perms.Can(h.db, chain.Actor, "delete_rating", rating)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this rating"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, rating, "Rating deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rating deleted"})
}

// RegisterRoutes registers list/create routes below a resolved category
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterRatingRoutes registers the routes below a resolved rating
func (h *Handler) RegisterRatingRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
