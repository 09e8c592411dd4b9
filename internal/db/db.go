package db

import (
	"fmt"     // Error wrapping
	"strings" // DSN inspection

	"billing_system/internal/config" // Application configuration

	"github.com/glebarez/sqlite" // Pure Go SQLite driver for GORM
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // PostgreSQL driver for GORM (pgx)
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger levels
)

// Open connects to the database selected by the configuration
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return OpenSQLite(cfg.DatabaseDSN())
	case "postgres":
		return open(postgres.Open(cfg.DatabaseDSN()))
	default:
		return open(mysql.Open(cfg.DatabaseDSN()))
	}
}

// OpenSQLite opens a SQLite database; in-memory databases are pinned to one connection
// so every query sees the same schema.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}
	gdb, err := open(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}
	return gdb, nil
}

func open(dialector gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,                                  // Map unique violations to gorm.ErrDuplicatedKey
		Logger:         logger.Default.LogMode(logger.Silent), // Queries are logged by the services instead
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialector.Name(), err)
	}
	return gdb, nil
}
