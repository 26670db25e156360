package policy

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
)

// SyncMembership brings the permission-store groups in line with a
// Membership. Must be called in the same transaction as every Membership
// save. The actor's user is always ensured into the team's member-group,
// and into the admin-group iff the admin flag is set. Both operations are
// idempotent.
//
// There is deliberately no removal path: flipping the admin flag back to
// false leaves the user in the admin-group. That matches the historical
// behavior of the permission model; a downgrade is logged so operators can
// see it happening.
func SyncMembership(tx *gorm.DB, membership *models.Membership) error {
	var team models.Team
	if err := tx.First(&team, membership.TeamID).Error; err != nil {
		return err
	}

	userID, err := userIDForActor(tx, membership.ActorID)
	if err != nil {
		return err
	}

	if err := perms.EnsureGroupMember(tx, team.GroupID, userID); err != nil {
		return err
	}

	if membership.Admin {
		return perms.EnsureGroupMember(tx, team.AdminGroupID, userID)
	}

	var count int64
	if err := tx.Model(&perms.GroupMember{}).
		Where("group_id = ? AND user_id = ?", team.AdminGroupID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logrus.WithFields(logrus.Fields{
			"team":  team.Slug,
			"actor": membership.ActorID,
		}).Warn("Membership admin flag cleared but admin-group membership retained")
	}
	return nil
}

// SetupTeam creates a Team together with its member-group and admin-group,
// makes the founder the first admin member, and applies the grant policy.
// Everything happens in the caller's transaction so a failure at any step
// leaves no half-created tenant behind.
func SetupTeam(tx *gorm.DB, name, description string, founder *models.Actor) (*models.Team, error) {
	team := models.Team{
		Name:        name,
		Description: description,
		FounderID:   founder.ID,
	}
	// derive the slug early, the group names embed it
	if err := team.BeforeSave(tx); err != nil {
		return nil, err
	}

	memberGroup := perms.Group{Name: fmt.Sprintf("team-%s-members", team.Slug)}
	if err := tx.Create(&memberGroup).Error; err != nil {
		return nil, err
	}
	adminGroup := perms.Group{Name: fmt.Sprintf("team-%s-admins", team.Slug)}
	if err := tx.Create(&adminGroup).Error; err != nil {
		return nil, err
	}

	team.GroupID = memberGroup.ID
	team.AdminGroupID = adminGroup.ID
	if err := tx.Create(&team).Error; err != nil {
		return nil, err
	}

	membership := models.Membership{
		ActorID: founder.ID,
		TeamID:  team.ID,
		Admin:   true,
	}
	if err := tx.Create(&membership).Error; err != nil {
		return nil, err
	}
	if err := SyncMembership(tx, &membership); err != nil {
		return nil, err
	}

	if err := Apply(tx, &team); err != nil {
		return nil, err
	}
	return &team, nil
}
