// Package migrations embeds the SQL schema migrations applied to
// internal/store's database ahead of GORM's own query layer, run through
// golang-migrate rather than GORM's AutoMigrate so the control-plane store
// gets explicit, reviewable up/down schema changes.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var fs embed.FS

// Run applies every pending migration to db, which must already be open
// against dialect "sqlite3" or "postgres". migrate.ErrNoChange (schema
// already current) is not treated as an error.
func Run(db *sql.DB, dialect string) error {
	source, err := iofs.New(fs, ".")
	if err != nil {
		return fmt.Errorf("migrations: load embedded source: %w", err)
	}

	var driver interface {
		Close() error
	}
	var m *migrate.Migrate

	switch dialect {
	case "sqlite3":
		d, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("migrations: sqlite3 driver: %w", err)
		}
		driver = d
		m, err = migrate.NewWithInstance("iofs", source, "sqlite3", d)
		if err != nil {
			return fmt.Errorf("migrations: init: %w", err)
		}
	case "postgres":
		d, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("migrations: postgres driver: %w", err)
		}
		driver = d
		m, err = migrate.NewWithInstance("iofs", source, "postgres", d)
		if err != nil {
			return fmt.Errorf("migrations: init: %w", err)
		}
	default:
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
	defer driver.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: apply: %w", err)
	}
	return nil
}
