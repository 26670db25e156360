package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Forum is a discussion board belonging to a Team
type Forum struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	TeamID      uint           `gorm:"not null;uniqueIndex:idx_forum_team_slug,priority:1" json:"team_id"`
	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"not null;uniqueIndex:idx_forum_team_slug,priority:2" json:"slug"`
	Description string         `json:"description"`

	Team    Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Threads []Thread `gorm:"foreignKey:ForumID" json:"threads,omitempty"`
}

func (f *Forum) ObjectType() string { return "forum" }
func (f *Forum) ObjectRef() uint    { return f.ID }

func (f *Forum) BeforeSave(tx *gorm.DB) error {
	if f.Slug == "" {
		f.Slug = slug.Make(f.Name)
	}
	return nil
}

// Thread is a discussion thread in a Forum, started by an Actor
type Thread struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ForumID   uint           `gorm:"not null;uniqueIndex:idx_thread_forum_slug,priority:1" json:"forum_id"`
	ActorID   uint           `gorm:"not null" json:"actor_id"`
	Subject   string         `gorm:"not null" json:"subject"`
	Slug      string         `gorm:"not null;uniqueIndex:idx_thread_forum_slug,priority:2" json:"slug"`
	Body      string         `json:"body"`
	Locked    bool           `gorm:"default:false" json:"locked"`

	Forum Forum `gorm:"foreignKey:ForumID" json:"forum,omitempty"`
	Actor Actor `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (t *Thread) ObjectType() string { return "thread" }
func (t *Thread) ObjectRef() uint    { return t.ID }

func (t *Thread) BeforeSave(tx *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = slug.Make(t.Subject)
	}
	return nil
}

// Team returns the Team that owns this Thread, via its Forum
func (t *Thread) Team(db *gorm.DB) (*Team, error) {
	var forum Forum
	if err := db.First(&forum, t.ForumID).Error; err != nil {
		return nil, err
	}
	var team Team
	if err := db.First(&team, forum.TeamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}
