package models

import "gorm.io/gorm"

// Object is implemented by every entity that can carry grants, events,
// comments and attachments. ObjectRef is the database primary key; an
// ObjectRef of zero in the permission store means a class-level grant.
type Object interface {
	ObjectType() string
	ObjectRef() uint
}

// AllModels returns all domain models for migration
// Note: Team must be migrated before the models that depend on it
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Actor{},
		&Team{},
		&Membership{},
		&Category{},
		&Context{},
		&Fact{},
		&Item{},
		&Rating{},
		&Review{},
		&Vote{},
		&Attachment{},
		&Comment{},
		&Event{},
		&Forum{},
		&Thread{},
	}
}

// AutoMigrate runs GORM auto-migration for all domain models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
