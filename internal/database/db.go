package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/model"
)

// Open initializes the SQLite database, runs migrations and, when enabled,
// seeds an empty catalog from the embedded mock data.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids busy errors.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Seed {
		if err := SeedIfEmpty(db, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("database ready", zap.String("path", cfg.Path))
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Store{},
		&model.InventoryEntry{},
		&model.Promotion{},
		&model.UserProfile{},
		&model.ChatLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
