package teams

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/auth"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
	"github.com/socialrating/socialrating/pkg/socialrating/policy"
	"github.com/socialrating/socialrating/pkg/socialrating/resolver"
)

// Handler handles team-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new teams handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateTeamRequest represents the request to create a team
type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateTeamRequest represents the request to update a team
type UpdateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TeamResponse represents a team in API responses
type TeamResponse struct {
	ID          uint                  `json:"id"`
	Name        string                `json:"name"`
	Slug        string                `json:"slug"`
	Description string                `json:"description"`
	Admin       bool                  `json:"admin,omitempty"` // current actor's role
	MemberCount int                   `json:"member_count,omitempty"`
	Grants      []string              `json:"grants,omitempty"` // display only
	Breadcrumbs []resolver.Breadcrumb `json:"breadcrumbs,omitempty"`
}

// List returns all teams the current actor is a member of
func (h *Handler) List(c *gin.Context) {
	actor := auth.GetActor(c)

	var memberships []models.Membership
	if err := h.db.Preload("Team").Where("actor_id = ?", actor.ID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch teams"})
		return
	}

	teams := make([]TeamResponse, len(memberships))
	for i, m := range memberships {
		var memberCount int64
		h.db.Model(&models.Membership{}).Where("team_id = ?", m.TeamID).Count(&memberCount)

		teams[i] = TeamResponse{
			ID:          m.Team.ID,
			Name:        m.Team.Name,
			Slug:        m.Team.Slug,
			Description: m.Team.Description,
			Admin:       m.Admin,
			MemberCount: int(memberCount),
		}
	}

	c.JSON(http.StatusOK, teams)
}

// Create creates a new team. The creator becomes founder and the first
// admin member; the team's member-group and admin-group are created in
// the same transaction.
func (h *Handler) Create(c *gin.Context) {
	actor := auth.GetActor(c)

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var team *models.Team
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = policy.SetupTeam(tx, req.Name, req.Description, actor)
		if err != nil {
			return apperr.FromDB(err, "team")
		}
		return models.RecordEvent(tx, actor, team, "create", "Team created")
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Slug:        team.Slug,
		Description: team.Description,
		Admin:       true,
		MemberCount: 1,
	})
}

// Get returns the resolved team, with the current actor's grants for
// display
func (h *Handler) Get(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	team := chain.Team

	var memberCount int64
	h.db.Model(&models.Membership{}).Where("team_id = ?", team.ID).Count(&memberCount)

	grants, err := perms.GrantsFor(h.db, &chain.Actor.User, team)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch grants"})
		return
	}
	names := make([]string, 0, len(grants))
	for name := range grants {
		names = append(names, name)
	}

	c.JSON(http.StatusOK, TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Slug:        team.Slug,
		Description: team.Description,
		MemberCount: int(memberCount),
		Grants:      names,
		Breadcrumbs: chain.Breadcrumbs,
	})
}

// Update updates a team (requires change_team)
func (h *Handler) Update(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	team := chain.Team

	allowed, err := perms.Can(h.db, chain.Actor, "change_team", team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to change this team"})
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		team.Name = req.Name
	}
	if req.Description != "" {
		team.Description = req.Description
	}

	if err := policy.Save(h.db, chain.Actor, team, "update", "Team updated"); err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Slug:        team.Slug,
		Description: team.Description,
	})
}

// Delete deletes a team and everything it owns (requires delete_team)
func (h *Handler) Delete(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	team := chain.Team

	allowed, err := perms.Can(h.db, chain.Actor, "delete_team", team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this team"})
		return
	}

	if err := policy.Delete(h.db, chain.Actor, team, "Team deleted"); err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

// RegisterRoutes registers the routes that need no resolved team
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}

// RegisterTeamRoutes registers the routes below a resolved team
func (h *Handler) RegisterTeamRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.DELETE("", h.Delete)
}
