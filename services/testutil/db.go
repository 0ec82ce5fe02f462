package testutil

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a throwaway in-memory SQLite database named after the
// running test and migrates the given models into it. Callers pass the models
// their package exercises; testutil cannot name them itself without importing
// the packages whose tests import testutil.
func NewTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	if len(models) == 0 {
		t.Fatal("NewTestDB requires the models under test")
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}

	// a single connection keeps every test statement on the same shared
	// in-memory database and serializes concurrent transactions
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
