package teams

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
	"github.com/socialrating/socialrating/pkg/socialrating/policy"
	"github.com/socialrating/socialrating/pkg/socialrating/resolver"
)

// MemberResponse represents a team member in API responses
type MemberResponse struct {
	ActorID uint   `json:"actor_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Admin   bool   `json:"admin"`
}

// AddMemberRequest represents a request to add a member
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Admin bool   `json:"admin"`
}

// UpdateMemberRequest represents a request to update a member's admin flag
type UpdateMemberRequest struct {
	Admin bool `json:"admin"`
}

// ListMembers returns all members of the resolved team
func (h *Handler) ListMembers(c *gin.Context) {
	chain := resolver.ChainFrom(c)

	var memberships []models.Membership
	if err := h.db.Preload("Actor.User").Where("team_id = ?", chain.Team.ID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = MemberResponse{
			ActorID: m.ActorID,
			Email:   m.Actor.User.Email,
			Name:    m.Actor.User.Name,
			Admin:   m.Admin,
		}
	}

	c.JSON(http.StatusOK, members)
}

// AddMember adds an actor to the team (requires change_team). The group
// sync runs in the same transaction as the membership save.
func (h *Handler) AddMember(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	team := chain.Team

	allowed, err := perms.Can(h.db, chain.Actor, "change_team", team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Team admin access required"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var targetUser models.User
	if err := h.db.Where("email = ?", req.Email).First(&targetUser).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	var targetActor models.Actor
	if err := h.db.Where("user_id = ?", targetUser.ID).First(&targetActor).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var existing models.Membership
	if err := h.db.Where("actor_id = ? AND team_id = ?", targetActor.ID, team.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Actor is already a member"})
		return
	}

	membership := models.Membership{
		ActorID: targetActor.ID,
		TeamID:  team.ID,
		Admin:   req.Admin,
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&membership).Error; err != nil {
			return apperr.FromDB(err, "membership")
		}
		if err := policy.SyncMembership(tx, &membership); err != nil {
			return err
		}
		return models.RecordEvent(tx, chain.Actor, team, "update", "Member added: "+targetUser.Email)
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, MemberResponse{
		ActorID: targetActor.ID,
		Email:   targetUser.Email,
		Name:    targetUser.Name,
		Admin:   req.Admin,
	})
}

// UpdateMember updates a member's admin flag (requires change_team).
// Note that clearing the flag does not remove the user from the team's
// admin-group; SyncMembership only ever adds.
func (h *Handler) UpdateMember(c *gin.Context) {
	chain := resolver.ChainFrom(c)
	team := chain.Team

	allowed, err := perms.Can(h.db, chain.Actor, "change_team", team)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Team admin access required"})
		return
	}

	actorID, err := strconv.ParseUint(c.Param("actor_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actor ID"})
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var membership models.Membership
	if err := h.db.Preload("Actor.User").Where("actor_id = ? AND team_id = ?", actorID, team.ID).First(&membership).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	membership.Admin = req.Admin
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&membership).Error; err != nil {
			return apperr.FromDB(err, "membership")
		}
		return policy.SyncMembership(tx, &membership)
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, MemberResponse{
		ActorID: membership.ActorID,
		Email:   membership.Actor.User.Email,
		Name:    membership.Actor.User.Name,
		Admin:   membership.Admin,
	})
}

// RegisterMemberRoutes registers member management routes below a
// resolved team
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/members", h.ListMembers)
	rg.POST("/members", h.AddMember)
	rg.PUT("/members/:actor_id", h.UpdateMember)
}
