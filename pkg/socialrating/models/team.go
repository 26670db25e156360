package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Team is the tenant root. Everything belongs to a Team. Each Team owns a
// member-group and an admin-group in the permission store; both are created
// atomically with the Team and never reused.
type Team struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string         `json:"description"`
	FounderID    uint           `gorm:"not null" json:"founder_id"`
	GroupID      uint           `gorm:"not null" json:"-"` // member-group in the permission store
	AdminGroupID uint           `gorm:"not null" json:"-"` // admin-group in the permission store

	Founder Actor        `gorm:"foreignKey:FounderID" json:"founder,omitempty"`
	Members []Membership `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

func (t *Team) ObjectType() string { return "team" }
func (t *Team) ObjectRef() uint    { return t.ID }

// BeforeSave derives the slug from the name when none is set
func (t *Team) BeforeSave(tx *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = slug.Make(t.Name)
	}
	return nil
}

// Membership links an Actor to a Team, optionally as admin. Saving a
// Membership must be followed by policy.SyncMembership in the same
// transaction to keep the team's permission-store groups in sync.
type Membership struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ActorID   uint           `gorm:"not null;uniqueIndex:idx_actor_team" json:"actor_id"`
	TeamID    uint           `gorm:"not null;uniqueIndex:idx_actor_team" json:"team_id"`
	Admin     bool           `gorm:"default:false" json:"admin"`

	Actor Actor `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Team  Team  `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}
