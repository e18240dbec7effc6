package testutil

import (
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbpkg "github.com/yungbote/painlens-backend/internal/data/db"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB opens the shared test database. TEST_POSTGRES_DSN selects a real postgres; without it
// the tests run against an in-memory sqlite.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		cfg := &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		}
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			db, dbErr = gorm.Open(postgres.Open(dsn), cfg)
		} else {
			db, dbErr = gorm.Open(sqlite.Open("file::memory:?cache=shared"), cfg)
			if dbErr == nil {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.SetMaxOpenConns(1)
				}
			}
		}
		if dbErr != nil {
			return
		}
		dbErr = dbpkg.AutoMigrateAll(db)
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

// IsPostgres reports whether the shared test database is postgres.
func IsPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres"
}

// Tx opens a transaction rolled back at test cleanup. With sqlite the pool holds a single
// connection, so everything in the test must go through the returned tx.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
