// Package dbtest opens isolated in-memory databases carrying the full
// assettrack schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Indexes that AutoMigrate cannot express; they mirror the goose migrations.
var schemaIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_items_serial_lower ON items (lower(serial_number))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_assignments_open_item ON assignments (item_id) WHERE actual_return_date IS NULL`,
}

// Open returns a client over a fresh sqlite database that lives until the
// test finishes.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// Keep one connection open so the shared in-memory database survives.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.ItemStatusEvent{},
		&models.Assignment{},
		&models.MaintenanceRequest{},
		&models.Discount{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	for _, stmt := range schemaIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create index: %v", err)
		}
	}

	return db.NewFromGorm(conn)
}
