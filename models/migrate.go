package models

import "gorm.io/gorm"

// Persistent lists the tables the review service stores
func Persistent() []any {
	return []any{
		&SimulationSave{},
		&SimulationSaveRow{},
		&ReferenceUpload{},
	}
}

// AutoMigrate creates or updates every persistent table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Persistent()...)
}
