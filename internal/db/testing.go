package db

import (
	"testing"

	"gorm.io/gorm"
)

// OpenTest returns a migrated in-memory SQLite database closed at test cleanup.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := OpenSQLite("file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}
