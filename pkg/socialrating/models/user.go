package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SentinelEmail is the reserved address of the placeholder user that
// absorbs the Actor foreign key when the original user is deleted
const SentinelEmail = "deleted@socialrating.invalid"

// User is an authentication identity. Users can be deleted; their Actor
// survives and is re-pointed at the sentinel user.
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Active       bool           `gorm:"default:true" json:"active"`
	Superuser    bool           `gorm:"default:false" json:"superuser"`
}

// Actor is the durable identity all domain objects reference. An Actor is
// created whenever a User is created and is never deleted.
type Actor struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UUID      string    `gorm:"uniqueIndex;not null" json:"uuid"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *Actor) ObjectType() string { return "actor" }
func (a *Actor) ObjectRef() uint    { return a.ID }

// EnsureActor creates the Actor for a newly created User. Calling it for a
// User that already has an Actor is a no-op, logged as a warning since it
// usually means a duplicate signal from the registration path.
func EnsureActor(tx *gorm.DB, user *User) (*Actor, error) {
	var existing Actor
	if err := tx.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"actor":   existing.UUID,
		}).Warn("User already has an Actor, skipping creation")
		return &existing, nil
	}

	actor := Actor{
		UUID:   uuid.NewString(),
		UserID: user.ID,
	}
	if err := tx.Create(&actor).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"actor":   actor.UUID,
	}).Info("Created Actor for new User")
	return &actor, nil
}

// SentinelUser returns the placeholder "deleted" user, creating it on
// first use.
func SentinelUser(tx *gorm.DB) (*User, error) {
	var sentinel User
	err := tx.Where("email = ?", SentinelEmail).First(&sentinel).Error
	if err == nil {
		return &sentinel, nil
	}

	sentinel = User{
		Email:  SentinelEmail,
		Name:   "Deleted User",
		Active: false,
	}
	if err := tx.Create(&sentinel).Error; err != nil {
		return nil, err
	}
	return &sentinel, nil
}
