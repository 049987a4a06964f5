package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/errors"
)

// Open connects to the sqlite database and migrates the schema.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "pilotforce.db"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open database", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate applies the schema for all storage models.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Company{},
		&Asset{},
		&Booking{},
		&Resource{},
		&ChunkSession{},
	)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.migrate", "auto migration failed", err)
	}
	return nil
}
