// Package db applies schema migrations at startup so the server and the
// worker never run against a stale schema.
package db

import (
	"errors"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate brings the database at databaseURL up to the latest schema
// version. The migrations directory defaults to ./migrations and can be
// overridden via MIGRATIONS_PATH. An already up-to-date schema is not an
// error.
func Migrate(databaseURL string) error {
	sourceURL := util.GetEnvString("MIGRATIONS_PATH", "file://migrations")

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("[DB] Schema already up to date")
			return nil
		}
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("[DB] Schema migrated", "version", version, "dirty", dirty)
	return nil
}
