package policy

import (
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
)

// Save persists obj, applies the grant policy and records an audit event,
// all in one transaction. A grant-policy failure rolls the save back: an
// entity must never exist without its grants.
func Save(db *gorm.DB, actor *models.Actor, obj models.Object, eventType, description string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(obj).Error; err != nil {
			return apperr.FromDB(err, obj.ObjectType())
		}
		if err := Apply(tx, obj); err != nil {
			return err
		}
		return models.RecordEvent(tx, actor, obj, eventType, description)
	})
}

// Delete removes obj and everything it transitively owns, purging the
// grants of every deleted object, and records an audit event
func Delete(db *gorm.DB, actor *models.Actor, obj models.Object, description string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := models.CascadeDelete(tx, obj, purgeGrants); err != nil {
			return apperr.FromDB(err, obj.ObjectType())
		}
		if team, ok := obj.(*models.Team); ok {
			if err := teardownTeamGroups(tx, team); err != nil {
				return err
			}
		}
		return models.RecordEvent(tx, actor, obj, "delete", description)
	})
}

// teardownTeamGroups removes the team's member and admin groups, their
// memberships and any grants held by them. The group names embed the team
// slug, so a later team must be able to claim the name.
func teardownTeamGroups(tx *gorm.DB, team *models.Team) error {
	groupIDs := []uint{team.GroupID, team.AdminGroupID}
	if err := tx.Where("group_id IN ?", groupIDs).Delete(&perms.GroupMember{}).Error; err != nil {
		return err
	}
	if err := tx.Where("subject_type = ? AND subject_id IN ?", perms.SubjectGroup, groupIDs).
		Delete(&perms.Grant{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", groupIDs).Delete(&perms.Group{}).Error
}

// purgeGrants drops the grants scoped to obj so a later object reusing
// its id does not inherit stale permissions
func purgeGrants(tx *gorm.DB, obj models.Object) error {
	return tx.Where("object_type = ? AND object_id = ?", obj.ObjectType(), obj.ObjectRef()).
		Delete(&perms.Grant{}).Error
}
