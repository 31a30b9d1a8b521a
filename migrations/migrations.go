// Package migrations embeds the database schema and applies it with
// golang-migrate. The same migrations are used at server startup and by
// the test harness, so the schema under test is the schema in production.
package migrations

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Up applies all pending migrations against the database identified by
// connString (postgres:// URL). A no-op when the schema is current.
func Up(connString string) error {
	src, err := iofs.New(schemaFS, "schema")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, connString)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
