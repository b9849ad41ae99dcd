// Package testutil opens migrated databases for repo and service tests.
// Postgres is used when TEST_POSTGRES_DSN is set, in-memory SQLite otherwise.
package testutil

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/catalog-backend/internal/data/db"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

var (
	dbOnce sync.Once
	shared *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	memSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a process-wide migrated database. Pair it with Tx so every test
// rolls back its writes.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dbOnce.Do(func() {
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			shared, dbErr = open(postgres.Open(dsn))
			return
		}
		shared, dbErr = openMemory("shared")
	})
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return shared
}

// Fresh returns a private in-memory SQLite database, for tests that open their
// own transactions.
func Fresh(tb testing.TB) *gorm.DB {
	tb.Helper()
	g, err := openMemory(fmt.Sprintf("fresh_%d", memSeq.Add(1)))
	if err != nil {
		tb.Fatalf("failed to init fresh db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := g.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return g
}

func openMemory(name string) (*gorm.DB, error) {
	g, err := open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=off", name)))
	if err != nil {
		return nil, err
	}
	sqlDB, err := g.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return g, nil
}

func open(dialector gorm.Dialector) (*gorm.DB, error) {
	g, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrateAll(g); err != nil {
		return nil, err
	}
	if err := db.EnsureCatalogIndexes(g); err != nil {
		return nil, err
	}
	return g, nil
}

func Tx(tb testing.TB, g *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := g.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// Sample builds the embedded sample manifest with fresh IDs.
func Sample(tb testing.TB) *manifest.Result {
	tb.Helper()
	doc, err := manifest.Sample()
	if err != nil {
		tb.Fatalf("load sample manifest: %v", err)
	}
	res, err := manifest.Build(doc, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		tb.Fatalf("build sample manifest: %v", err)
	}
	return res
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
