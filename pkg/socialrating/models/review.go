package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
)

// Review is an Actor's written review of an Item. Votes hang off the
// Review. If the Item's Category requires a Context, the Review must
// reference one.
type Review struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UUID      string         `gorm:"uniqueIndex;not null" json:"uuid"`
	ItemID    uint           `gorm:"not null;uniqueIndex:idx_review_actor_item,priority:2" json:"item_id"`
	ActorID   uint           `gorm:"not null;uniqueIndex:idx_review_actor_item,priority:1" json:"actor_id"`
	ContextID *uint          `json:"context_id,omitempty"`
	Headline  string         `gorm:"not null" json:"headline"`
	Body      string         `json:"body"`

	Item    Item     `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Actor   Actor    `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Context *Context `gorm:"foreignKey:ContextID" json:"context,omitempty"`
	Votes   []Vote   `gorm:"foreignKey:ReviewID" json:"votes,omitempty"`
}

func (r *Review) ObjectType() string { return "review" }
func (r *Review) ObjectRef() uint    { return r.ID }

// BeforeSave validates the context requirement before anything is written
func (r *Review) BeforeSave(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}

	var category Category
	err := tx.Model(&Category{}).
		Joins("JOIN items ON items.category_id = categories.id").
		Where("items.id = ?", r.ItemID).
		First(&category).Error
	if err != nil {
		return err
	}

	if category.RequiresContext && r.ContextID == nil {
		return apperr.Validation("category %q requires a context for reviews", category.Name)
	}
	return nil
}

// Team returns the Team that owns this Review, via Item and Category
func (r *Review) Team(db *gorm.DB) (*Team, error) {
	var item Item
	if err := db.First(&item, r.ItemID).Error; err != nil {
		return nil, err
	}
	return item.Team(db)
}
