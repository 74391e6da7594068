package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

// NewSQLiteService opens a file-backed (or ":memory:") SQLite database for
// local runs. SQLite serialises writers, so the pool is pinned to one
// connection and every aggregate transaction runs on it.
func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "progress.db"
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = "file:" + dsn
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	return openSQLite(logg, dsn, false)
}

// NewMemorySQLite opens a private in-memory database named name.
func NewMemorySQLite(logg *logger.Logger, name string, quiet bool) (*Service, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	return openSQLite(logg, dsn, quiet)
}

func openSQLite(logg *logger.Logger, dsn string, quiet bool) (*Service, error) {
	cfg := gormConfig()
	if quiet {
		cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return &Service{db: db, log: logg.With("service", "SQLiteService"), driver: DriverSQLite}, nil
}
