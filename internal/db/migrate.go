package db

import (
	"fmt"
	"time"

	"github.com/zulandar/garage/internal/config"
	"github.com/zulandar/garage/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Build{},
	}
}

// AutoMigrate creates or updates all tables. Idempotent; runs at every
// server start.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBuilds inserts catalog records from configuration. Rows whose id
// already exists are left untouched, so re-running init never clobbers
// edited records.
func SeedBuilds(db *gorm.DB, seeds []config.SeedBuild) error {
	for _, s := range seeds {
		build := models.Build{
			ID:            s.ID,
			Name:          s.Name,
			Category:      s.Category,
			Year:          s.Year,
			Description:   s.Description,
			Modifications: s.Modifications,
			Image:         s.Image,
			Engine:        s.Specs.Engine,
			Power:         s.Specs.Power,
			Torque:        s.Specs.Torque,
			Weight:        s.Specs.Weight,
			TopSpeed:      s.Specs.TopSpeed,
			CreatedAt:     time.Now().UTC(),
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&build)
		if result.Error != nil {
			return fmt.Errorf("db: seed build %q: %w", s.ID, result.Error)
		}
	}
	return nil
}
