package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"keywe-backend/internal/config"
	"keywe-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Dialector picks the gorm driver for the configured database.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(cfg.DSN() + "?_foreign_keys=on&_busy_timeout=5000"), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Open connects without touching the global handle.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if os.Getenv("DB_DEBUG") == "true" {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// InitDB opens the configured database, migrates it and stores the handle in DB.
func InitDB(cfg *config.Config) error {
	db, err := Open(cfg.Database)
	if err != nil {
		return err
	}
	DB = db

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected and migrated")
	return nil
}

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Filter{},
		&models.FilterOption{},
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.AccessToken{},
		&models.Project{},
		&models.Property{},
		&models.Lead{},
		&models.Attachment{},
		&models.BudgetRange{},
		&models.PropertyType{},
		&models.BhkType{},
		&models.MoveInTimeline{},
		&models.NearbyLocation{},
		&models.Locality{},
		&models.UserPreference{},
		&models.ActivityLog{},
		&models.Statistics{},
	}
}

// Migrate creates or updates every table, including the many-to-many pivots.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}

	// Pivot lookups go from the option side when counting facets.
	indexes := []struct{ table, name, column string }{
		{models.PropertyFilterOptionTable, "idx_property_filter_option_option", "filter_option_id"},
		{"role_users", "idx_role_users_user", "user_id"},
	}
	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.column)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
