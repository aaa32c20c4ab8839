package mysql

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the archive schema to the latest version. Each migration file holds one statement,
// so the DSN needs no multiStatements flag.
func Migrate(db *sql.DB) error {
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("failed to create MySQL migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "docrep", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("archive schema is dirty at version %d; fix it manually or force the version", from)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug().Uint("version", from).Msg("archive schema up to date")
			return nil
		}
		return fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	to, _, _ := m.Version()
	log.Info().Uint("from", from).Uint("to", to).Msg("archive schema migrated")
	return nil
}
