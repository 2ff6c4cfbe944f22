// Package db is the local store for the session, profile and preferences.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/botdesk/botdesk/internal/db/models"
)

// Config holds database configuration.
type Config struct {
	Driver      string // "postgres" or "sqlite"
	Host        string // for postgres
	Port        int    // for postgres
	Database    string // database name for postgres, file path for sqlite
	Username    string // for postgres
	Password    string // for postgres
	SSLMode     string // for postgres
	SQLLogLevel string // silent, error, warn or info
}

// Connect establishes a connection to the database.
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	sqliteDriver := false

	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		// cfg.Database is a file path, or ":memory:"
		dialector = sqlite.Open(cfg.Database + "?_pragma=busy_timeout(5000)")
		sqliteDriver = true

	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.SQLLogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if sqliteDriver {
		// One connection keeps ":memory:" databases shared and writes serialized.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

// AutoMigrate runs automatic migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SessionRecord{},
		&models.Preference{},
	)
}
