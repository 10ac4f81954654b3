package database

import (
	"database/sql"
	"fmt"
	"site-monitor/internal/config"
	"site-monitor/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB(cfg *config.DatabaseConfig) error {
	// Connect to database based on type
	switch cfg.Type {
	case "sqlite":
		// Use pure Go SQLite driver (modernc.org/sqlite)
		sqlDB, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		DB, err = gorm.Open(sqlite.Dialector{
			Conn: sqlDB,
		}, &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to initialize GORM: %w", err)
		}
	// Add support for MySQL and PostgreSQL in the future
	// case "mysql":
	// case "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	// Auto migrate the schema
	if err := DB.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Monitor{},
		&models.MonitorLog{},
		&models.Notification{},
		&models.CronRun{},
		&models.Setting{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
