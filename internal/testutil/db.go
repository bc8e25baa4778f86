package testutil

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/nizhen/weeklog/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB 打开内存 SQLite 并迁移全部四个集合
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	for _, table := range []string{schema.TableSnippets, schema.TableGoals, schema.TableReflections} {
		if err := db.Table(table).AutoMigrate(&schema.Entry{}); err != nil {
			t.Fatalf("migrate %s: %v", table, err)
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_week_endeavor ON %s(week_start, endeavor)", table, table)
		if err := db.Exec(idx).Error; err != nil {
			t.Fatalf("index %s: %v", table, err)
		}
	}
	if err := db.AutoMigrate(&schema.DailyScore{}); err != nil {
		t.Fatalf("migrate daily_scores: %v", err)
	}

	return db
}
