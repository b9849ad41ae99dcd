package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
)

type casRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string
	LockVersion int
}

func (casRow) TableName() string { return "cas_row" }

func TestUpdateByVersion(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&casRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	row := casRow{ID: uuid.New(), Name: "a"}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: context.Background()}
	ok, err := guard.UpdateByVersion(dbc, "cas_row", row.ID, 0, map[string]any{"name": "b"})
	if err != nil || !ok {
		t.Fatalf("first update: ok=%v err=%v", ok, err)
	}
	ok, err = guard.UpdateByVersion(dbc, "cas_row", row.ID, 0, map[string]any{"name": "c"})
	if err != nil || ok {
		t.Fatalf("stale update: ok=%v err=%v", ok, err)
	}
	if err := RequireCASSuccess(ok, "stale"); !IsCode(err, CodeConflict) {
		t.Fatalf("RequireCASSuccess: want conflict got=%v", err)
	}

	var got casRow
	if err := db.First(&got, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Name != "b" || got.LockVersion != 1 {
		t.Fatalf("row: want=b/1 got=%s/%d", got.Name, got.LockVersion)
	}

	if _, err := guard.UpdateByVersion(dbc, "", row.ID, 0, nil); !IsCode(err, CodeValidation) {
		t.Fatalf("empty table: want validation got=%v", err)
	}
}
