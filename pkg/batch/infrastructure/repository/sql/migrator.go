package sql

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

//go:embed resource
var migrationFS embed.FS

// SchemaMigrator creates and upgrades the sessions/jobs schema.
type SchemaMigrator struct {
	migrationsTable string
}

// NewSchemaMigrator creates a migrator recording its progress in migrationsTable.
func NewSchemaMigrator(migrationsTable string) *SchemaMigrator {
	return &SchemaMigrator{migrationsTable: migrationsTable}
}

func (m *SchemaMigrator) databaseDriver(conn database.DBConnection) (migratedb.Driver, error) {
	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	switch conn.Type() {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: m.migrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: m.migrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: m.migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", conn.Type())
	}
}

// Up applies every pending migration for the connection's dialect.
func (m *SchemaMigrator) Up(ctx context.Context, conn database.DBConnection) error {
	dialectFS, err := fs.Sub(migrationFS, "resource/"+conn.Type())
	if err != nil {
		return fmt.Errorf("no migrations for database type %s: %w", conn.Type(), err)
	}
	source, err := iofs.New(dialectFS, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}
	// The database driver shares the store's *sql.DB, so only the source is closed here.
	defer source.Close()

	driver, err := m.databaseDriver(conn)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	instance, err := migrate.NewWithInstance("iofs", source, conn.Type(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed (DB: %s): %w", conn.Type(), err)
	}
	version, dirty, _ := instance.Version()
	logger.Debugf("Schema for '%s' at version %d (dirty=%t).", conn.Name(), version, dirty)
	return nil
}
