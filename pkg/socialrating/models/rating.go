package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
)

// Rating is a voteable dimension of a Category, for example "Sound Quality"
// for a concert venue. Votes against a Rating must fall in (0, MaxRating].
type Rating struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CategoryID  uint           `gorm:"not null;uniqueIndex:idx_rating_category_slug,priority:1" json:"category_id"`
	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"not null;uniqueIndex:idx_rating_category_slug,priority:2" json:"slug"`
	Description string         `json:"description"`
	MaxRating   int            `gorm:"default:5" json:"max_rating"`
	Icon        string         `gorm:"default:'fas fa-star'" json:"icon"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (r *Rating) ObjectType() string { return "rating" }
func (r *Rating) ObjectRef() uint    { return r.ID }

func (r *Rating) BeforeSave(tx *gorm.DB) error {
	if r.Slug == "" {
		r.Slug = slug.Make(r.Name)
	}
	if r.MaxRating < 2 || r.MaxRating > 100 {
		return apperr.Validation("max_rating must be between 2 and 100, got %d", r.MaxRating)
	}
	return nil
}

// Team returns the Team that owns this Rating, via its Category
func (r *Rating) Team(db *gorm.DB) (*Team, error) {
	var category Category
	if err := db.First(&category, r.CategoryID).Error; err != nil {
		return nil, err
	}
	var team Team
	if err := db.First(&team, category.TeamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}
