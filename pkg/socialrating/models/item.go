package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Item is a thing/place/event based on a Category. The Category defines
// which Facts and Ratings apply to the Item. The owning Team is always
// derived through the Category, never stored on the Item itself.
type Item struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CategoryID  uint           `gorm:"not null;uniqueIndex:idx_item_category_slug,priority:1" json:"category_id"`
	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"not null;uniqueIndex:idx_item_category_slug,priority:2" json:"slug"`
	Description string         `json:"description"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Reviews  []Review `gorm:"foreignKey:ItemID" json:"reviews,omitempty"`
}

func (i *Item) ObjectType() string { return "item" }
func (i *Item) ObjectRef() uint    { return i.ID }

func (i *Item) BeforeSave(tx *gorm.DB) error {
	if i.Slug == "" {
		i.Slug = slug.Make(i.Name)
	}
	return nil
}

// Team returns the Team that owns this Item, via its Category
func (i *Item) Team(db *gorm.DB) (*Team, error) {
	var category Category
	if err := db.First(&category, i.CategoryID).Error; err != nil {
		return nil, err
	}
	var team Team
	if err := db.First(&team, category.TeamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}
