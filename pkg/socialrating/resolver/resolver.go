// Package resolver walks a chain of nested identifiers (team slug,
// category slug, item slug, review uuid, ...), resolving each ancestor
// scoped to its parent and authorizing "view" on it before moving on.
// The walk is an explicit ordered pipeline of steps driven by Resolve;
// it fails fast, so an actor who is denied at the Team level never learns
// whether a deeper Category or Item exists.
package resolver

import (
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
)

// Breadcrumb is a (display name, canonical path) pair recorded for every
// resolved ancestor
type Breadcrumb struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Chain is the state accumulated while walking a path. Resolved ancestors
// are exposed as typed fields; Subject is the most recently resolved
// object and is what later permission checks and generic lookups run
// against.
type Chain struct {
	Actor *models.Actor

	Team       *models.Team
	Category   *models.Category
	Context    *models.Context
	Forum      *models.Forum
	Item       *models.Item
	Rating     *models.Rating
	Fact       *models.Fact
	Review     *models.Review
	Vote       *models.Vote
	Thread     *models.Thread
	Comment    *models.Comment
	Attachment *models.Attachment

	Breadcrumbs []Breadcrumb
	Subject     models.Object

	path string
}

// Segment is one step of a path to resolve, pairing a Step with the
// identifier from the request
type Segment struct {
	Step Step
	ID   string
}

// Step resolves one level of the hierarchy. Param is the URL parameter
// the identifier comes from; prefix is the path component used when
// building canonical breadcrumb paths.
type Step struct {
	Param  string
	prefix string
	lookup func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error)
}

// notFoundOr maps a gorm record miss to the masking NotFound error; any
// other error passes through
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

// TeamStep resolves a Team by its globally unique slug
var TeamStep = Step{
	Param:  "team_slug",
	prefix: "teams",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var team models.Team
		if err := db.Where("slug = ?", id).First(&team).Error; err != nil {
			return nil, "", notFoundOr(err, "team")
		}
		chain.Team = &team
		return &team, team.Name, nil
	},
}

// CategoryStep resolves a Category scoped to the resolved Team
var CategoryStep = Step{
	Param:  "category_slug",
	prefix: "categories",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var category models.Category
		if err := db.Where("team_id = ? AND slug = ?", chain.Team.ID, id).First(&category).Error; err != nil {
			return nil, "", notFoundOr(err, "category")
		}
		chain.Category = &category
		return &category, category.Name, nil
	},
}

// ContextStep resolves a Context scoped to the resolved Team
var ContextStep = Step{
	Param:  "context_slug",
	prefix: "contexts",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var context models.Context
		if err := db.Where("team_id = ? AND slug = ?", chain.Team.ID, id).First(&context).Error; err != nil {
			return nil, "", notFoundOr(err, "context")
		}
		chain.Context = &context
		return &context, context.Name, nil
	},
}

// ForumStep resolves a Forum scoped to the resolved Team
var ForumStep = Step{
	Param:  "forum_slug",
	prefix: "forums",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var forum models.Forum
		if err := db.Where("team_id = ? AND slug = ?", chain.Team.ID, id).First(&forum).Error; err != nil {
			return nil, "", notFoundOr(err, "forum")
		}
		chain.Forum = &forum
		return &forum, forum.Name, nil
	},
}

// ItemStep resolves an Item scoped to the resolved Category
var ItemStep = Step{
	Param:  "item_slug",
	prefix: "items",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var item models.Item
		if err := db.Where("category_id = ? AND slug = ?", chain.Category.ID, id).First(&item).Error; err != nil {
			return nil, "", notFoundOr(err, "item")
		}
		chain.Item = &item
		return &item, item.Name, nil
	},
}

// RatingStep resolves a Rating scoped to the resolved Category
var RatingStep = Step{
	Param:  "rating_slug",
	prefix: "ratings",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var rating models.Rating
		if err := db.Where("category_id = ? AND slug = ?", chain.Category.ID, id).First(&rating).Error; err != nil {
			return nil, "", notFoundOr(err, "rating")
		}
		chain.Rating = &rating
		return &rating, rating.Name, nil
	},
}

// FactStep resolves a Fact scoped to the resolved Category
var FactStep = Step{
	Param:  "fact_slug",
	prefix: "facts",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var fact models.Fact
		if err := db.Where("category_id = ? AND slug = ?", chain.Category.ID, id).First(&fact).Error; err != nil {
			return nil, "", notFoundOr(err, "fact")
		}
		chain.Fact = &fact
		return &fact, fact.Name, nil
	},
}

// ReviewStep resolves a Review scoped to the resolved Item
var ReviewStep = Step{
	Param:  "review_uuid",
	prefix: "reviews",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var review models.Review
		if err := db.Where("item_id = ? AND uuid = ?", chain.Item.ID, id).First(&review).Error; err != nil {
			return nil, "", notFoundOr(err, "review")
		}
		chain.Review = &review
		return &review, review.Headline, nil
	},
}

// VoteStep resolves a Vote scoped to the resolved Review
var VoteStep = Step{
	Param:  "vote_uuid",
	prefix: "votes",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var vote models.Vote
		if err := db.Where("review_id = ? AND uuid = ?", chain.Review.ID, id).First(&vote).Error; err != nil {
			return nil, "", notFoundOr(err, "vote")
		}
		chain.Vote = &vote
		return &vote, vote.UUID, nil
	},
}

// ThreadStep resolves a Thread scoped to the resolved Forum
var ThreadStep = Step{
	Param:  "thread_slug",
	prefix: "threads",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		var thread models.Thread
		if err := db.Where("forum_id = ? AND slug = ?", chain.Forum.ID, id).First(&thread).Error; err != nil {
			return nil, "", notFoundOr(err, "thread")
		}
		chain.Thread = &thread
		return &thread, thread.Subject, nil
	},
}

// CommentStep resolves a Comment attached to whichever object is the
// current subject. Available under any resolved node.
var CommentStep = Step{
	Param:  "comment_id",
	prefix: "comments",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		commentID, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, "", apperr.NotFound("comment")
		}
		var comment models.Comment
		err = db.Where("id = ? AND target_type = ? AND target_id = ?",
			commentID, chain.Subject.ObjectType(), chain.Subject.ObjectRef()).First(&comment).Error
		if err != nil {
			return nil, "", notFoundOr(err, "comment")
		}
		chain.Comment = &comment
		return &comment, "Comment", nil
	},
}

// AttachmentStep resolves an Attachment attached to whichever object is
// the current subject. Available under any resolved node.
var AttachmentStep = Step{
	Param:  "attachment_id",
	prefix: "attachments",
	lookup: func(db *gorm.DB, chain *Chain, id string) (models.Object, string, error) {
		attachmentID, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, "", apperr.NotFound("attachment")
		}
		var attachment models.Attachment
		err = db.Where("id = ? AND target_type = ? AND target_id = ?",
			attachmentID, chain.Subject.ObjectType(), chain.Subject.ObjectRef()).First(&attachment).Error
		if err != nil {
			return nil, "", notFoundOr(err, "attachment")
		}
		chain.Attachment = &attachment
		return &attachment, attachment.Filename, nil
	},
}

// Advance resolves one step: scoped lookup, view authorization, breadcrumb,
// and subject update, in that order
func (chain *Chain) Advance(db *gorm.DB, step Step, id string) error {
	obj, label, err := step.lookup(db, chain, id)
	if err != nil {
		return err
	}

	allowed, err := perms.Can(db, chain.Actor, "view_"+obj.ObjectType(), obj)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbidden("You do not have permission to view this " + obj.ObjectType())
	}

	chain.path = chain.path + "/" + step.prefix + "/" + id
	chain.Breadcrumbs = append(chain.Breadcrumbs, Breadcrumb{Label: label, Path: chain.path})
	chain.Subject = obj
	return nil
}

// Resolve walks an ordered list of segments for the given actor and
// returns the fully resolved chain. The first failing segment terminates
// the walk; later lookups never execute.
func Resolve(db *gorm.DB, actor *models.Actor, segments []Segment) (*Chain, error) {
	chain := &Chain{Actor: actor}
	for _, segment := range segments {
		if err := chain.Advance(db, segment.Step, segment.ID); err != nil {
			return nil, err
		}
	}
	return chain, nil
}
