package db

import (
	"path/filepath"
	"testing"
)

func TestMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrations_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var tableExists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT name FROM sqlite_master
			WHERE type='table' AND name='commit_equality'
		)
	`).Scan(&tableExists)
	if err != nil {
		t.Fatalf("Failed to check commit_equality table: %v", err)
	}
	if !tableExists {
		t.Error("commit_equality table was not created")
	}

	var indexExists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT name FROM sqlite_master
			WHERE type='index' AND name='idx_commit_equality_verdict'
		)
	`).Scan(&indexExists)
	if err != nil {
		t.Fatalf("Failed to check index: %v", err)
	}
	if !indexExists {
		t.Error("idx_commit_equality_verdict was not created")
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrations_idempotent_test.db")

	first, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	first.Close()

	second, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer second.Close()

	var version int
	if err := second.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty database path")
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one migration")
	}
	if migrations[0].upSQL == "" || migrations[0].downSQL == "" {
		t.Error("expected both up and down scripts for first migration")
	}
}
