package models

import "gorm.io/gorm"

// PurgeFunc is called for every object CascadeDelete removes, before the
// row itself is deleted. The permission layer hooks in here to drop the
// grants scoped to each object.
type PurgeFunc func(tx *gorm.DB, obj Object) error

// CascadeDelete deletes obj and everything it transitively owns: direct
// children by foreign key, and generically attached comments and
// attachments by (target type, id). Rows are hard-deleted so the unique
// keys (slugs, one vote per review and rating, one review per actor and
// item) free up for re-creation. Runs inside the caller's transaction.
// purge may be nil.
func CascadeDelete(tx *gorm.DB, obj Object, purge PurgeFunc) error {
	switch o := obj.(type) {
	case *Team:
		if err := cascadeChildren(tx, &[]Category{}, purge, "team_id = ?", o.ID); err != nil {
			return err
		}
		if err := cascadeChildren(tx, &[]Forum{}, purge, "team_id = ?", o.ID); err != nil {
			return err
		}
		if err := cascadeChildren(tx, &[]Context{}, purge, "team_id = ?", o.ID); err != nil {
			return err
		}
		// memberships are not grant-scoped objects, a batch delete is enough
		if err := tx.Unscoped().Where("team_id = ?", o.ID).Delete(&Membership{}).Error; err != nil {
			return err
		}

	case *Category:
		if err := cascadeChildren(tx, &[]Item{}, purge, "category_id = ?", o.ID); err != nil {
			return err
		}
		if err := cascadeChildren(tx, &[]Rating{}, purge, "category_id = ?", o.ID); err != nil {
			return err
		}
		if err := cascadeChildren(tx, &[]Fact{}, purge, "category_id = ?", o.ID); err != nil {
			return err
		}

	case *Item:
		if err := cascadeChildren(tx, &[]Review{}, purge, "item_id = ?", o.ID); err != nil {
			return err
		}

	case *Rating:
		if err := cascadeChildren(tx, &[]Vote{}, purge, "rating_id = ?", o.ID); err != nil {
			return err
		}

	case *Review:
		if err := cascadeChildren(tx, &[]Vote{}, purge, "review_id = ?", o.ID); err != nil {
			return err
		}

	case *Forum:
		if err := cascadeChildren(tx, &[]Thread{}, purge, "forum_id = ?", o.ID); err != nil {
			return err
		}
	}

	if err := deleteAttached(tx, obj, purge); err != nil {
		return err
	}
	if purge != nil {
		if err := purge(tx, obj); err != nil {
			return err
		}
	}
	return tx.Unscoped().Delete(obj).Error
}

// cascadeChildren loads the matching child rows and cascades into each
// one, so every deleted object gets its own attachment and purge cleanup
func cascadeChildren[T any, PT interface {
	*T
	Object
}](tx *gorm.DB, children *[]T, purge PurgeFunc, query string, args ...interface{}) error {
	if err := tx.Where(query, args...).Find(children).Error; err != nil {
		return err
	}
	for i := range *children {
		if err := CascadeDelete(tx, PT(&(*children)[i]), purge); err != nil {
			return err
		}
	}
	return nil
}

// deleteAttached removes the generically attached comments and attachments
// of obj. Events are kept: the audit trail outlives the object.
func deleteAttached(tx *gorm.DB, obj Object, purge PurgeFunc) error {
	if err := cascadeChildren(tx, &[]Comment{}, purge,
		"target_type = ? AND target_id = ?", obj.ObjectType(), obj.ObjectRef()); err != nil {
		return err
	}
	return cascadeChildren(tx, &[]Attachment{}, purge,
		"target_type = ? AND target_id = ?", obj.ObjectType(), obj.ObjectRef())
}
