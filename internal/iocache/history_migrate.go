package iocache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationDirs maps each backend to its dialect of the history schema.
var migrationDirs = map[schema.DatabaseBackend]string{
	schema.SQLiteBackend:     "migrations/sqlite",
	schema.MySQLBackend:      "migrations/mysql",
	schema.PostgreSQLBackend: "migrations/postgres",
}

// MigrateHistory runs database migrations for the history store and returns the resulting version.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func MigrateHistory(backend schema.DatabaseBackend, connStr string, targetVersion int) (uint, error) {
	if backend == schema.NoneBackend {
		return 0, fmt.Errorf("migrations are not supported for NoneBackend")
	}

	// Multi-statement migration files need this on MySQL
	if backend == schema.MySQLBackend {
		cfg, err := gomysql.ParseDSN(connStr)
		if err != nil {
			return 0, fmt.Errorf("invalid MySQL connection string: %w", err)
		}
		cfg.MultiStatements = true
		connStr = cfg.FormatDSN()
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	m, err := newMigrate(db, backend)
	if err != nil {
		return 0, err
	}

	// Get current version
	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return currentVersion, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	// Perform migration
	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug().Uint("version", currentVersion).Msg("history schema already at target version")
		return currentVersion, nil
	}
	if err != nil {
		return currentVersion, fmt.Errorf("failed to migrate history schema: %w", err)
	}

	newVersion, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		newVersion, err = 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get new migration version: %w", err)
	}
	log.Info().Uint("from", currentVersion).Uint("to", newVersion).Msg("migrated history schema")
	return newVersion, nil
}

// newMigrate builds a migrate instance over db using the backend's embedded migrations.
func newMigrate(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	// Get the migrations subdirectory
	migrationFS, err := fs.Sub(migrationsFS, migrationDirs[backend])
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}

	// Create source driver from embedded FS
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "kpiscore", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
