package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
)

// Vote is a numerical vote against one Rating, as part of one Review.
// There can be at most one Vote per (review, rating) pair.
type Vote struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UUID      string         `gorm:"uniqueIndex;not null" json:"uuid"`
	ReviewID  uint           `gorm:"not null;uniqueIndex:idx_vote_review_rating,priority:1" json:"review_id"`
	RatingID  uint           `gorm:"not null;uniqueIndex:idx_vote_review_rating,priority:2" json:"rating_id"`
	Vote      int            `gorm:"not null" json:"vote"`
	Comment   string         `gorm:"size:1000" json:"comment"`

	Review Review `gorm:"foreignKey:ReviewID" json:"review,omitempty"`
	Rating Rating `gorm:"foreignKey:RatingID" json:"rating,omitempty"`
}

func (v *Vote) ObjectType() string { return "vote" }
func (v *Vote) ObjectRef() uint    { return v.ID }

// BeforeSave checks the vote bounds and the cross-entity consistency
// between the Rating's Category and the Review's Item's Category. Runs
// before anything is written so an invalid Vote leaves no trace.
func (v *Vote) BeforeSave(tx *gorm.DB) error {
	if v.UUID == "" {
		v.UUID = uuid.NewString()
	}

	var rating Rating
	if err := tx.First(&rating, v.RatingID).Error; err != nil {
		return err
	}

	var review Review
	if err := tx.First(&review, v.ReviewID).Error; err != nil {
		return err
	}
	var item Item
	if err := tx.First(&item, review.ItemID).Error; err != nil {
		return err
	}

	if rating.CategoryID != item.CategoryID {
		return apperr.Validation("rating %q belongs to a different category than item %q", rating.Name, item.Name)
	}

	if v.Vote <= 0 || v.Vote > rating.MaxRating {
		return apperr.Validation("vote must be between 1 and %d, got %d", rating.MaxRating, v.Vote)
	}
	return nil
}

// Team returns the Team that owns this Vote, via the Review chain
func (v *Vote) Team(db *gorm.DB) (*Team, error) {
	var review Review
	if err := db.First(&review, v.ReviewID).Error; err != nil {
		return nil, err
	}
	return review.Team(db)
}
