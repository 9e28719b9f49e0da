package database

import (
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"didauto/pkg/config"
)

// NewConnection opens the application database. When DATABASE_URL is set a
// Postgres connection is used, otherwise a SQLite file under DataDir.
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	dsn := filepath.Join(cfg.DataDir, "didauto.db")
	return gorm.Open(sqlite.Open(dsn), gormCfg)
}
