package migrate

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCreateSQLMigrationBumpsCollidingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first, err := createSQLMigration(dir, "add_notes", now)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := createSQLMigration(dir, "add_tags", now)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if got := filepath.Base(first); got != "20260302090000_add_notes.sql" {
		t.Fatalf("unexpected first name %s", got)
	}
	if got := filepath.Base(second); got != "20260302090001_add_tags.sql" {
		t.Fatalf("expected bumped version, got %s", got)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("both migrations should validate: %v", err)
	}
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	if _, err := createSQLMigration(t.TempDir(), "!!!", time.Now()); err == nil {
		t.Fatal("expected error for a name with no usable characters")
	}
}
