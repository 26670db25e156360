// Package perms is the permission store: a capability database mapping
// (subject, permission, object) triples to grants. Subjects are either
// individual users or groups. Grants are only ever added, never revoked;
// they disappear with the object they are scoped to.
package perms

import (
	"time"

	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/models"
)

// Subject types for Grant rows
const (
	SubjectUser  = "user"
	SubjectGroup = "group"
)

// Group is an opaque group handle in the permission store. Teams own two
// of these: a member-group and an admin-group.
type Group struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
}

// GroupMember links a User into a Group
type GroupMember struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_group_user" json:"user_id"`
}

// Grant records that a subject holds a permission, either on one object
// (ObjectID > 0) or on a whole entity class (ObjectID == 0).
type Grant struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SubjectType string    `gorm:"not null;uniqueIndex:idx_grant,priority:1" json:"subject_type"`
	SubjectID   uint      `gorm:"not null;uniqueIndex:idx_grant,priority:2" json:"subject_id"`
	Permission  string    `gorm:"not null;uniqueIndex:idx_grant,priority:3" json:"permission"`
	ObjectType  string    `gorm:"not null;uniqueIndex:idx_grant,priority:4" json:"object_type"`
	ObjectID    uint      `gorm:"not null;uniqueIndex:idx_grant,priority:5" json:"object_id"`
}

// AllModels returns the permission-store models for migration
func AllModels() []interface{} {
	return []interface{}{
		&Group{},
		&GroupMember{},
		&Grant{},
	}
}

// Migrate runs auto-migration for the domain models and the permission
// store together
func Migrate(db *gorm.DB) error {
	all := append(models.AllModels(), AllModels()...)
	return db.AutoMigrate(all...)
}

// Assign records a grant. Asserting a grant that already exists is a
// no-op, which is what makes the grant policy safe to re-run.
func Assign(tx *gorm.DB, subjectType string, subjectID uint, permission, objectType string, objectID uint) error {
	grant := Grant{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Permission:  permission,
		ObjectType:  objectType,
		ObjectID:    objectID,
	}
	return tx.Where(&grant).FirstOrCreate(&grant).Error
}

// AssignToUser grants permission on obj to an individual user
func AssignToUser(tx *gorm.DB, userID uint, permission string, obj models.Object) error {
	return Assign(tx, SubjectUser, userID, permission, obj.ObjectType(), obj.ObjectRef())
}

// AssignToGroup grants permission on obj to a group
func AssignToGroup(tx *gorm.DB, groupID uint, permission string, obj models.Object) error {
	return Assign(tx, SubjectGroup, groupID, permission, obj.ObjectType(), obj.ObjectRef())
}

// EnsureGroupMember adds a user to a group. Adding a user that is already
// a member is a no-op.
func EnsureGroupMember(tx *gorm.DB, groupID, userID uint) error {
	member := GroupMember{GroupID: groupID, UserID: userID}
	return tx.Where(&member).FirstOrCreate(&member).Error
}

// groupIDs returns the ids of all groups the user belongs to
func groupIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&GroupMember{}).Where("user_id = ?", userID).Pluck("group_id", &ids).Error
	return ids, err
}

// HasPermission reports whether the user holds the permission on the given
// object, either directly, via any group the user belongs to, or via a
// class-level grant. Superusers bypass all checks.
func HasPermission(db *gorm.DB, user *models.User, permission, objectType string, objectID uint) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.Superuser {
		return true, nil
	}

	ids, err := groupIDs(db, user.ID)
	if err != nil {
		return false, err
	}

	query := db.Model(&Grant{}).
		Where("permission = ? AND object_type = ? AND object_id IN ?", permission, objectType, []uint{objectID, 0})
	if len(ids) > 0 {
		query = query.Where(
			"(subject_type = ? AND subject_id = ?) OR (subject_type = ? AND subject_id IN ?)",
			SubjectUser, user.ID, SubjectGroup, ids,
		)
	} else {
		query = query.Where("subject_type = ? AND subject_id = ?", SubjectUser, user.ID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Can reports whether the actor holds the permission on obj. A nil actor
// is the anonymous identity and can hold no grants. The actor's User is
// loaded on demand when the association was not preloaded.
func Can(db *gorm.DB, actor *models.Actor, permission string, obj models.Object) (bool, error) {
	if actor == nil {
		return false, nil
	}

	user := actor.User
	if user.ID == 0 {
		if err := db.First(&user, actor.UserID).Error; err != nil {
			return false, err
		}
	}
	return HasPermission(db, &user, permission, obj.ObjectType(), obj.ObjectRef())
}

// GrantsFor returns the set of permission names the user holds on obj,
// combining direct, group and class-level grants. Used for display and
// prefetching only, never for authorization decisions.
func GrantsFor(db *gorm.DB, user *models.User, obj models.Object) (map[string]bool, error) {
	grants := make(map[string]bool)
	if user == nil {
		return grants, nil
	}

	ids, err := groupIDs(db, user.ID)
	if err != nil {
		return nil, err
	}

	query := db.Model(&Grant{}).
		Where("object_type = ? AND object_id IN ?", obj.ObjectType(), []uint{obj.ObjectRef(), 0})
	if len(ids) > 0 {
		query = query.Where(
			"(subject_type = ? AND subject_id = ?) OR (subject_type = ? AND subject_id IN ?)",
			SubjectUser, user.ID, SubjectGroup, ids,
		)
	} else {
		query = query.Where("subject_type = ? AND subject_id = ?", SubjectUser, user.ID)
	}

	var names []string
	if err := query.Pluck("permission", &names).Error; err != nil {
		return nil, err
	}
	for _, name := range names {
		grants[name] = true
	}
	return grants, nil
}
