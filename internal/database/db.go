package database

import (
	"fmt"

	"dealership/internal/config"
	"dealership/internal/logger"
	"dealership/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection opens the gateway's own store and migrates its tables.
func NewConnection(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the persisted models.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.RateSnapshot{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to auto-migrate models")
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}
