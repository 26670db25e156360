package votes

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

// Handler handles vote-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new votes handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateVoteRequest represents the request to create a vote
type CreateVoteRequest struct {
	RatingID uint   `json:"rating_id" binding:"required"`
	Vote     int    `json:"vote" binding:"required"`
	Comment  string `json:"comment"`
}

// UpdateVoteRequest represents the request to update a vote
type UpdateVoteRequest struct {
	Vote    int    `json:"vote" binding:"required"`
	Comment string `json:"comment"`
}

// VoteResponse represents a vote in API responses
type VoteResponse struct {
	UUID     string `json:"uuid"`
	RatingID uint   `json:"rating_id"`
	Vote     int    `json:"vote"`
	Comment  string `json:"comment,omitempty"`
}

func response(vote *models.Vote) VoteResponse {
	return VoteResponse{
		UUID:     vote.UUID,
		RatingID: vote.RatingID,
		Vote:     vote.Vote,
		Comment:  vote.Comment,
	}
}

// List returns the votes of the resolved review
func (h *Handler) List(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var votes []models.Vote
	if err := h.db.Where("review_id = ?", chain.Review.ID).Find(&votes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch votes"})
		return
	}

	out := make([]VoteResponse, len(votes))
	for i := range votes {
		out[i] = response(&votes[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a vote on the resolved review (requires add_vote, held
// only by the review author). Vote bounds and the rating/category
// consistency check run before anything is written; a second vote on the
// same (review, rating) pair is a conflict.
func (h *Handler) Create(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	allowed, err := perms.Can(h.db, chain.Actor, "add_vote", chain.Review)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the review author may vote on it"})
		return
	}

	var req CreateVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vote := models.Vote{
		ReviewID: chain.Review.ID,
		RatingID: req.RatingID,
		Vote:     req.Vote,
		Comment:  req.Comment,
	}
	if err := policy.Save(h.db, chain.Actor, &vote, "create", "Vote created"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response(&vote))
}

// Get returns the resolved vote
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	c.JSON(http.StatusOK, response(chain.Vote))
}

// Update updates the resolved vote (requires change_vote, held only by
// the review author)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	vote := chain.Vote

	allowed, err := perms.Can(h.db, chain.Actor, "change_vote", vote)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this vote"})
		return
	}

	var req UpdateVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vote.Vote = req.Vote
	vote.Comment = req.Comment
	if err := policy.Save(h.db, chain.Actor, vote, "update", "Vote updated"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response(vote))
}

// Delete deletes the resolved vote (requires delete_vote, held by the
// review author and by team admins)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	vote := chain.Vote

	allowed, err := perms.Can(h.db, chain.Actor, "delete_vote", vote)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this vote"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, vote, "Vote deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote deleted"})
}

// RegisterRoutes registers list/create routes below a resolved review
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterVoteRoutes registers the routes below a resolved vote
func (h *Handler) RegisterVoteRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
