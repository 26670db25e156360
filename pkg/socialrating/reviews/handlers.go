package reviews

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

// Handler handles review-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new reviews handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateReviewRequest represents the request to create a review
type CreateReviewRequest struct {
	Headline  string `json:"headline" binding:"required"`
	Body      string `json:"body"`
	ContextID *uint  `json:"context_id"`
}

// UpdateReviewRequest represents the request to update a review
type UpdateReviewRequest struct {
	Headline  string `json:"headline"`
	Body      string `json:"body"`
	ContextID *uint  `json:"context_id"`
}

// ReviewResponse represents a review in API responses
type ReviewResponse struct {
	UUID        string                `json:"uuid"`
	Headline    string                `json:"headline"`
	Body        string                `json:"body"`
	ActorID     uint                  `json:"actor_id"`
	ContextID   *uint                 `json:"context_id,omitempty"`
	VoteCount   int                   `json:"vote_count,omitempty"`
	Breadcrumbs []resolver.Breadcrumb `json:"breadcrumbs,omitempty"`
}

func response(review *models.Review) ReviewResponse {
	return ReviewResponse{
		UUID:      review.UUID,
		Headline:  review.Headline,
		Body:      review.Body,
		ActorID:   review.ActorID,
		ContextID: review.ContextID,
	}
}

// List returns the reviews of the resolved item
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var reviews []models.Review
	if err := h.db.Where("item_id = ?", chain.Item.ID).Order("created_at").Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	out := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = response(&reviews[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a review of the resolved item (requires add_review,
// which all team members hold on the item). When the category declares a
// default context and the request names none, the default applies.
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_review", chain.Item)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to review this item"})
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contextID := req.ContextID
	if contextID == nil && chain.Category.DefaultContextID != nil {
		contextID = chain.Category.DefaultContextID
	}

	review := models.Review{
		ItemID:    chain.Item.ID,
		ActorID:   chain.Actor.ID,
		ContextID: contextID,
		Headline:  req.Headline,
		Body:      req.Body,
	}
	if err := policy.Save(h.db, chain.Actor, &review, "create", "Review created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&review))
}

// Get returns the resolved review
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var voteCount int64
	h.db.Model(&models.Vote{}).Where("review_id = ?", chain.Review.ID).Count(&voteCount)

	out := response(chain.Review)
	out.VoteCount = int(voteCount)
	out.Breadcrumbs = chain.Breadcrumbs
	c.JSON(http.StatusOK, out)
}

// Update updates the resolved review (requires change_review, held only
// by the author)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	review := chain.Review

	allowed, err := perms.Can(h.db, chain.Actor, "change_review", review)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this review"})
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Headline != "" {
		review.Headline = req.Headline
	}
	if req.Body != "" {
		review.Body = req.Body
	}
	if req.ContextID != nil {
		review.ContextID = req.ContextID
	}

	if err := policy.Save(h.db, chain.Actor, review, "update", "Review updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(review))
}

// Delete deletes the resolved review and its votes (requires
// delete_review, held by the author and by team admins)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	review := chain.Review

	allowed, err := perms.Can(h.db, chain.Actor, "delete_review", review)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this review"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, review, "Review deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}

// RegisterRoutes registers list/create routes below a resolved item
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterReviewRoutes registers the routes below a resolved review
func (h *Handler) RegisterReviewRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
