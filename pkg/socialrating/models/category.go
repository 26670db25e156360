package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
)

// Category defines a type of thing/place/event that can be reviewed.
// A Category belongs to a Team; team admins manage Categories.
type Category struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	TeamID           uint           `gorm:"not null;uniqueIndex:idx_category_team_slug,priority:1" json:"team_id"`
	Name             string         `gorm:"not null" json:"name"`
	Slug             string         `gorm:"not null;uniqueIndex:idx_category_team_slug,priority:2" json:"slug"`
	Description      string         `json:"description"`
	Weight           int            `gorm:"default:0" json:"weight"` // sort weight
	DefaultContextID *uint          `json:"default_context_id,omitempty"`
	RequiresContext  bool           `gorm:"default:false" json:"requires_context"`

	Team           Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	DefaultContext *Context `gorm:"foreignKey:DefaultContextID" json:"default_context,omitempty"`
	Facts          []Fact   `gorm:"foreignKey:CategoryID" json:"facts,omitempty"`
	Ratings        []Rating `gorm:"foreignKey:CategoryID" json:"ratings,omitempty"`
	Items          []Item   `gorm:"foreignKey:CategoryID" json:"items,omitempty"`
}

func (c *Category) ObjectType() string { return "category" }
func (c *Category) ObjectRef() uint    { return c.ID }

// BeforeSave derives the slug and checks that a default context, when
// set, belongs to the same team
func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	if c.DefaultContextID != nil {
		var context Context
		if err := tx.First(&context, *c.DefaultContextID).Error; err != nil {
			return err
		}
		if context.TeamID != c.TeamID {
			return apperr.Validation("default context %q belongs to a different team", context.Name)
		}
	}
	return nil
}

// Context groups reviews, for example an event like a music festival
// grouping concert reviews. A Context belongs to a Team.
type Context struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	TeamID      uint           `gorm:"not null;uniqueIndex:idx_context_team_slug,priority:1" json:"team_id"`
	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"not null;uniqueIndex:idx_context_team_slug,priority:2" json:"slug"`
	Description string         `json:"description"`

	Team Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

func (c *Context) ObjectType() string { return "context" }
func (c *Context) ObjectRef() uint    { return c.ID }

func (c *Context) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	return nil
}
