package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Fact is a per-Category dynamic attribute definition, for example
// "Address" or "Opening Hours" for a restaurant Category. Storage of the
// actual per-Item values lives behind a schema-extension boundary; only
// the definition is modelled here.
type Fact struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CategoryID  uint           `gorm:"not null;uniqueIndex:idx_fact_category_slug,priority:1" json:"category_id"`
	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"not null;uniqueIndex:idx_fact_category_slug,priority:2" json:"slug"`
	Description string         `json:"description"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (f *Fact) ObjectType() string { return "fact" }
func (f *Fact) ObjectRef() uint    { return f.ID }

func (f *Fact) BeforeSave(tx *gorm.DB) error {
	if f.Slug == "" {
		f.Slug = slug.Make(f.Name)
	}
	return nil
}

// Team returns the Team that owns this Fact, via its Category
func (f *Fact) Team(db *gorm.DB) (*Team, error) {
	var category Category
	if err := db.First(&category, f.CategoryID).Error; err != nil {
		return nil, err
	}
	var team Team
	if err := db.First(&team, category.TeamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}
