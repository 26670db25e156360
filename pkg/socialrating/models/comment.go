package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
)

// Comment attaches to any other entity via a generic (object type, id)
// pair and supports threaded replies. A reply must target the same object
// as its parent.
type Comment struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	TargetType string         `gorm:"not null;index:idx_comment_target" json:"target_type"`
	TargetID   uint           `gorm:"not null;index:idx_comment_target" json:"target_id"`
	ActorID    uint           `gorm:"not null" json:"actor_id"`
	ReplyToID  *uint          `json:"reply_to_id,omitempty"`
	Body       string         `gorm:"not null" json:"body"`

	Actor   Actor    `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ReplyTo *Comment `gorm:"foreignKey:ReplyToID" json:"reply_to,omitempty"`
}

func (c *Comment) ObjectType() string { return "comment" }
func (c *Comment) ObjectRef() uint    { return c.ID }

// BeforeSave enforces that a reply targets the same object as its parent
func (c *Comment) BeforeSave(tx *gorm.DB) error {
	if c.ReplyToID == nil {
		return nil
	}

	var parent Comment
	if err := tx.First(&parent, *c.ReplyToID).Error; err != nil {
		return err
	}
	if parent.TargetType != c.TargetType || parent.TargetID != c.TargetID {
		return apperr.Validation("reply must target the same object as its parent comment")
	}
	return nil
}
