// Package policy implements the grant policy: the deterministic rule set
// that computes, per entity type, which subjects get which permissions on
// an object. Apply runs inside the same transaction as every create and
// update, and is idempotent so it can be re-run at any time to repair
// drifted permissions.
//
// The rules follow a two-tier model throughout: read and admin-level
// permissions flow from the owning Team's member-group and admin-group,
// while edit/delete on user contributions (reviews, votes, attachments,
// comments, threads) goes to the individual author as well.
package policy

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
)

// Apply ensures all grants for obj exist. Any failure must abort the
// caller's transaction: an object persisted without its view grant would
// be invisible to everyone but superusers.
func Apply(tx *gorm.DB, obj models.Object) error {
	switch o := obj.(type) {
	case *models.Team:
		return applyTeam(tx, o)
	case *models.Category:
		return applyCategory(tx, o)
	case *models.Context:
		return applyContext(tx, o)
	case *models.Item:
		return applyItem(tx, o)
	case *models.Rating:
		return applyRating(tx, o)
	case *models.Fact:
		return applyFact(tx, o)
	case *models.Review:
		return applyReview(tx, o)
	case *models.Vote:
		return applyVote(tx, o)
	case *models.Attachment:
		return applyAttachment(tx, o)
	case *models.Comment:
		return applyComment(tx, o)
	case *models.Forum:
		return applyForum(tx, o)
	case *models.Thread:
		return applyThread(tx, o)
	default:
		return fmt.Errorf("no grant policy for object type %q", obj.ObjectType())
	}
}

// assignAll is a small helper asserting a list of permissions for one
// group subject
func assignAll(tx *gorm.DB, groupID uint, obj models.Object, permissions ...string) error {
	for _, permission := range permissions {
		if err := perms.AssignToGroup(tx, groupID, permission, obj); err != nil {
			return err
		}
	}
	return nil
}

// assignAllToUser asserts a list of permissions for one user subject
func assignAllToUser(tx *gorm.DB, userID uint, obj models.Object, permissions ...string) error {
	for _, permission := range permissions {
		if err := perms.AssignToUser(tx, userID, permission, obj); err != nil {
			return err
		}
	}
	return nil
}

// userIDForActor resolves the User behind an Actor
func userIDForActor(tx *gorm.DB, actorID uint) (uint, error) {
	var actor models.Actor
	if err := tx.First(&actor, actorID).Error; err != nil {
		return 0, err
	}
	return actor.UserID, nil
}

func applyTeam(tx *gorm.DB, team *models.Team) error {
	if err := assignAll(tx, team.GroupID, team, "view_team"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, team,
		"change_team", "delete_team", "add_category", "add_context", "add_forum")
}

func applyCategory(tx *gorm.DB, category *models.Category) error {
	var team models.Team
	if err := tx.First(&team, category.TeamID).Error; err != nil {
		return err
	}
	if err := assignAll(tx, team.GroupID, category, "view_category", "add_item"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, category,
		"change_category", "delete_category", "add_fact", "add_rating")
}

func applyContext(tx *gorm.DB, context *models.Context) error {
	var team models.Team
	if err := tx.First(&team, context.TeamID).Error; err != nil {
		return err
	}
	if err := assignAll(tx, team.GroupID, context, "view_context"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, context, "change_context", "delete_context")
}

func applyItem(tx *gorm.DB, item *models.Item) error {
	team, err := item.Team(tx)
	if err != nil {
		return err
	}
	if err := assignAll(tx, team.GroupID, item,
		"view_item", "change_item", "add_review", "add_attachment", "add_comment"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, item, "delete_item")
}

func applyRating(tx *gorm.DB, rating *models.Rating) error {
	team, err := rating.Team(tx)
	if err != nil {
		return err
	}
	if err := assignAll(tx, team.GroupID, rating, "view_rating"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, rating, "change_rating", "delete_rating")
}

func applyFact(tx *gorm.DB, fact *models.Fact) error {
	team, err := fact.Team(tx)
	if err != nil {
		return err
	}
	if err := assignAll(tx, team.GroupID, fact, "view_fact"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, fact, "change_fact", "delete_fact")
}

func applyReview(tx *gorm.DB, review *models.Review) error {
	team, err := review.Team(tx)
	if err != nil {
		return err
	}
	userID, err := userIDForActor(tx, review.ActorID)
	if err != nil {
		return err
	}

	if err := assignAll(tx, team.GroupID, review, "view_review"); err != nil {
		return err
	}
	if err := assignAllToUser(tx, userID, review,
		"change_review", "delete_review", "add_attachment", "add_vote"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, review, "delete_review")
}

func applyVote(tx *gorm.DB, vote *models.Vote) error {
	team, err := vote.Team(tx)
	if err != nil {
		return err
	}

	var review models.Review
	if err := tx.First(&review, vote.ReviewID).Error; err != nil {
		return err
	}
	userID, err := userIDForActor(tx, review.ActorID)
	if err != nil {
		return err
	}

	if err := assignAll(tx, team.GroupID, vote, "view_vote"); err != nil {
		return err
	}
	if err := assignAllToUser(tx, userID, vote, "change_vote", "delete_vote"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, vote, "delete_vote")
}

func applyAttachment(tx *gorm.DB, attachment *models.Attachment) error {
	team, err := TeamForTarget(tx, attachment.TargetType, attachment.TargetID)
	if err != nil {
		return err
	}
	userID, err := userIDForActor(tx, attachment.ActorID)
	if err != nil {
		return err
	}

	if err := assignAll(tx, team.GroupID, attachment, "view_attachment"); err != nil {
		return err
	}
	if err := assignAllToUser(tx, userID, attachment, "change_attachment", "delete_attachment"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, attachment, "delete_attachment")
}

func applyComment(tx *gorm.DB, comment *models.Comment) error {
	team, err := TeamForTarget(tx, comment.TargetType, comment.TargetID)
	if err != nil {
		return err
	}
	userID, err := userIDForActor(tx, comment.ActorID)
	if err != nil {
		return err
	}

	if err := assignAll(tx, team.GroupID, comment, "view_comment", "add_comment"); err != nil {
		return err
	}
	if err := assignAllToUser(tx, userID, comment, "change_comment", "delete_comment"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, comment, "delete_comment")
}

func applyForum(tx *gorm.DB, forum *models.Forum) error {
	var team models.Team
	if err := tx.First(&team, forum.TeamID).Error; err != nil {
		return err
	}
	if err := assignAll(tx, team.GroupID, forum, "view_forum", "add_thread"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, forum, "change_forum", "delete_forum")
}

func applyThread(tx *gorm.DB, thread *models.Thread) error {
	team, err := thread.Team(tx)
	if err != nil {
		return err
	}
	userID, err := userIDForActor(tx, thread.ActorID)
	if err != nil {
		return err
	}

	if err := assignAll(tx, team.GroupID, thread, "view_thread", "add_comment"); err != nil {
		return err
	}
	if err := assignAllToUser(tx, userID, thread, "change_thread", "delete_thread"); err != nil {
		return err
	}
	return assignAll(tx, team.AdminGroupID, thread, "change_thread", "delete_thread")
}

// ObjectByRef loads the entity behind a generic (object type, id) pair.
// Used for generic comment/attachment targets and for the admin re-grant
// endpoint.
func ObjectByRef(tx *gorm.DB, objectType string, objectID uint) (models.Object, error) {
	var obj models.Object
	switch objectType {
	case "team":
		obj = &models.Team{}
	case "category":
		obj = &models.Category{}
	case "context":
		obj = &models.Context{}
	case "item":
		obj = &models.Item{}
	case "rating":
		obj = &models.Rating{}
	case "fact":
		obj = &models.Fact{}
	case "review":
		obj = &models.Review{}
	case "vote":
		obj = &models.Vote{}
	case "attachment":
		obj = &models.Attachment{}
	case "comment":
		obj = &models.Comment{}
	case "forum":
		obj = &models.Forum{}
	case "thread":
		obj = &models.Thread{}
	default:
		return nil, apperr.Validation("unknown object type %q", objectType)
	}

	if err := tx.First(obj, objectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound(objectType)
		}
		return nil, err
	}
	return obj, nil
}

// TeamForTarget resolves the Team that transitively owns the entity behind
// a generic (object type, id) pair
func TeamForTarget(tx *gorm.DB, objectType string, objectID uint) (*models.Team, error) {
	obj, err := ObjectByRef(tx, objectType, objectID)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *models.Team:
		return o, nil
	case *models.Category:
		var team models.Team
		if err := tx.First(&team, o.TeamID).Error; err != nil {
			return nil, err
		}
		return &team, nil
	case *models.Context:
		var team models.Team
		if err := tx.First(&team, o.TeamID).Error; err != nil {
			return nil, err
		}
		return &team, nil
	case *models.Forum:
		var team models.Team
		if err := tx.First(&team, o.TeamID).Error; err != nil {
			return nil, err
		}
		return &team, nil
	case *models.Item:
		return o.Team(tx)
	case *models.Rating:
		return o.Team(tx)
	case *models.Fact:
		return o.Team(tx)
	case *models.Review:
		return o.Team(tx)
	case *models.Vote:
		return o.Team(tx)
	case *models.Thread:
		return o.Team(tx)
	case *models.Comment:
		return TeamForTarget(tx, o.TargetType, o.TargetID)
	case *models.Attachment:
		return TeamForTarget(tx, o.TargetType, o.TargetID)
	default:
		return nil, apperr.Validation("object type %q has no owning team", objectType)
	}
}
