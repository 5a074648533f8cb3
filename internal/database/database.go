// Package database initializes the Postgres connection and schema.
package database

import (
	"fmt"

	"github.com/lildude/clubtime/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init opens the database and performs schema migration.
func Init(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&model.Athlete{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return db, nil
}
