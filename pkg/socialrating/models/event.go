package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is an audit-trail entry attached to any entity via a generic
// (object type, id) pair. The acting Actor is always passed in explicitly
// by the caller; there is no ambient "current actor" state.
type Event struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	TargetType  string    `gorm:"not null;index:idx_event_target" json:"target_type"`
	TargetID    uint      `gorm:"not null;index:idx_event_target" json:"target_id"`
	ActorID     uint      `gorm:"not null" json:"actor_id"`
	EventType   string    `gorm:"not null" json:"event_type"` // create, update, delete
	Description string    `json:"description"`

	Actor Actor `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

// RecordEvent writes an audit Event for obj within the given transaction
func RecordEvent(tx *gorm.DB, actor *Actor, obj Object, eventType, description string) error {
	event := Event{
		TargetType:  obj.ObjectType(),
		TargetID:    obj.ObjectRef(),
		ActorID:     actor.ID,
		EventType:   eventType,
		Description: description,
	}
	return tx.Create(&event).Error
}
