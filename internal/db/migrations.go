package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationFile represents a migration file
type migrationFile struct {
	version int
	name    string
	upSQL   string
	downSQL string
}

var (
	upPattern   = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)
	downPattern = regexp.MustCompile(`^(\d+)_(.+)\.down\.sql$`)
)

// RunMigrations applies every embedded migration newer than the recorded
// schema version, each in its own transaction
func RunMigrations(db *sql.DB) error {
	currentVersion, dirty, err := getMigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in a dirty migration state (version %d), manual intervention required", currentVersion)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, migration := range migrations {
		if migration.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.version, err)
		}

		if _, err := tx.Exec(migration.upSQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", migration.version, migration.name, err)
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_migrations (version, dirty) VALUES (?, 0)`, migration.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.version, err)
		}
	}

	return nil
}

// loadMigrations reads the up and down scripts from the embedded directory
// and returns them ordered by version
func loadMigrations() ([]migrationFile, error) {
	byVersion := make(map[int]*migrationFile)

	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := upPattern.FindStringSubmatch(d.Name())
		isUp := matches != nil
		if !isUp {
			matches = downPattern.FindStringSubmatch(d.Name())
		}
		if matches == nil {
			return nil
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return fmt.Errorf("invalid migration version in %s: %w", d.Name(), err)
		}

		migration, exists := byVersion[version]
		if !exists {
			migration = &migrationFile{version: version, name: matches[2]}
			byVersion[version] = migration
		}

		sqlBytes, err := migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", path, err)
		}

		if isUp {
			migration.upSQL = string(sqlBytes)
		} else {
			migration.downSQL = string(sqlBytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	migrations := make([]migrationFile, 0, len(byVersion))
	for _, migration := range byVersion {
		migrations = append(migrations, *migration)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations, nil
}

// getMigrationVersion gets the current migration version from the database
func getMigrationVersion(db *sql.DB) (version int, dirty bool, err error) {
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var v sql.NullInt64
	var d sql.NullBool
	err = db.QueryRow("SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&v, &d)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query migration version: %w", err)
	}

	version = int(v.Int64)
	if d.Valid {
		dirty = d.Bool
	}

	return version, dirty, nil
}
