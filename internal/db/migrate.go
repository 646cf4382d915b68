package db

import (
	"trendscout/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Trend{},
		&models.Observation{},
		&models.Campaign{},
		&models.Angle{},
		&models.GenerationAttempt{},
		&models.SourceHealth{},
		&models.CycleReport{},
		&models.CategoryBaseline{},
	)
}
