package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/auth"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
	"github.com/socialrating/socialrating/pkg/socialrating/policy"
)

// Handler handles superuser-only administrative requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Superuser   bool   `json:"superuser"`
	CreatedAt   string `json:"created_at"`
	ActorUUID   string `json:"actor_uuid,omitempty"`
	ReviewCount int64  `json:"review_count"`
}

// RegrantRequest names the object whose grants should be rebuilt
type RegrantRequest struct {
	ObjectType string `json:"object_type" binding:"required"`
	ObjectID   uint   `json:"object_id" binding:"required"`
}

// StatsResponse represents system-wide statistics
type StatsResponse struct {
	TotalUsers   int64 `json:"total_users"`
	TotalTeams   int64 `json:"total_teams"`
	TotalItems   int64 `json:"total_items"`
	TotalReviews int64 `json:"total_reviews"`
	TotalVotes   int64 `json:"total_votes"`
	TotalEvents  int64 `json:"total_events"`
	Superusers   int64 `json:"superusers"`
}

func (h *Handler) userResponse(user *models.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Active:    user.Active,
		Superuser: user.Superuser,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}

	var actor models.Actor
	if err := h.db.Where("user_id = ?", user.ID).First(&actor).Error; err == nil {
		resp.ActorUUID = actor.UUID
		h.db.Model(&models.Review{}).Where("actor_id = ?", actor.ID).Count(&resp.ReviewCount)
	}
	return resp
}

// ListUsers returns all users
func (h *Handler) ListUsers(c *gin.Context) {
	query := h.db.Order("created_at DESC")

	// Optional search by email or name
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = h.userResponse(&users[i])
	}
	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, h.userResponse(&user))
}

// DeleteUser deletes a user. The user's Actor survives and is re-pointed
// at the sentinel user, so reviews, votes and comments keep a valid
// author. The user's direct grants are removed; content-derived grants
// now belong to an actor nobody can log in as.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.Email == models.SentinelEmail {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete the sentinel user"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		sentinel, err := models.SentinelUser(tx)
		if err != nil {
			return err
		}

		var actor models.Actor
		if err := tx.Where("user_id = ?", user.ID).First(&actor).Error; err == nil {
			if err := tx.Unscoped().Where("actor_id = ?", actor.ID).
				Delete(&models.Membership{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&actor).Update("user_id", sentinel.ID).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("subject_type = ? AND subject_id = ?", perms.SubjectUser, user.ID).
			Delete(&perms.Grant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&perms.GroupMember{}).Error; err != nil {
			return err
		}
		// hard delete, so the email can register again
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User deleted, actor re-pointed at sentinel")
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// Regrant rebuilds the policy grants for a single object. Assignment is
// idempotent, so running it against an object with intact grants is a
// no-op; it exists to repair objects after manual data surgery.
func (h *Handler) Regrant(c *gin.Context) {
	var req RegrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		obj, err := policy.ObjectByRef(tx, req.ObjectType, req.ObjectID)
		if err != nil {
			return err
		}
		if err := policy.Apply(tx, obj); err != nil {
			return err
		}
		actor := auth.GetActor(c)
		return models.RecordEvent(tx, actor, obj, "update", "Grants rebuilt by administrator")
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grants rebuilt"})
}

// GetStats returns system-wide statistics
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Team{}).Count(&stats.TotalTeams)
	h.db.Model(&models.Item{}).Count(&stats.TotalItems)
	h.db.Model(&models.Review{}).Count(&stats.TotalReviews)
	h.db.Model(&models.Vote{}).Count(&stats.TotalVotes)
	h.db.Model(&models.Event{}).Count(&stats.TotalEvents)
	h.db.Model(&models.User{}).Where("superuser = ?", true).Count(&stats.Superusers)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.DELETE("/users/:id", h.DeleteUser)
	rg.POST("/regrant", h.Regrant)
}
