package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	dbdriver "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/puzzlemind/backend/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrate opens a short-lived connection, applies any pending schema
// migrations for the configured dialect, and closes it. Call before Connect
// so the long-lived pool never sees a half-migrated schema.
func Migrate(cfg config.DatabaseConfig) error {
	db, err := Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := iofs.New(migrationFiles, "migrations/"+cfg.Driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var drv dbdriver.Driver
	switch cfg.Driver {
	case "postgres":
		drv, err = migratepg.WithInstance(db, &migratepg.Config{})
	case "sqlite":
		drv, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, drv)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
