package db

import (
	"fmt" // Error wrapping

	"billing_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Migrate performs automatic migration for the database schema
func Migrate(gdb *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := gdb.AutoMigrate(&domain.User{}, &domain.Merchant{}, &domain.Customer{}, &domain.Transaction{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// MySQL compares strings case-insensitively by default; usernames are case-sensitive
	if gdb.Dialector.Name() == "mysql" {
		if err := gdb.Exec("ALTER TABLE users MODIFY username VARCHAR(255) COLLATE utf8mb4_bin NOT NULL").Error; err != nil {
			return fmt.Errorf("username collation: %w", err)
		}
	}
	logrus.WithField("driver", gdb.Dialector.Name()).Info("Migration completed.")
	return nil
}
