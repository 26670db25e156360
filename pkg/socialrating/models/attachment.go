package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment is a file attached to any other entity via a generic
// (object type, id) pair. Only the metadata is modelled here; blob
// storage and thumbnailing live outside the core.
type Attachment struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	TargetType  string         `gorm:"not null;index:idx_attachment_target" json:"target_type"`
	TargetID    uint           `gorm:"not null;index:idx_attachment_target" json:"target_id"`
	ActorID     uint           `gorm:"not null" json:"actor_id"` // the uploader
	Filename    string         `gorm:"not null" json:"filename"`
	Mimetype    string         `json:"mimetype"`
	Size        int64          `json:"size"`
	Description string         `json:"description"`

	Actor Actor `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (a *Attachment) ObjectType() string { return "attachment" }
func (a *Attachment) ObjectRef() uint    { return a.ID }
