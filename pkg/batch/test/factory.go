package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/sweep/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm"
	// Registers the sqlite dialector used by NewSQLiteConnection.
	_ "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/sqlite"
	sqlrepo "github.com/tigerroll/sweep/pkg/batch/infrastructure/repository/sql"
)

// TestMigrationsTable is the migration bookkeeping table used by test stores.
const TestMigrationsTable = "sweep_schema_migrations"

// NewSQLiteConnection opens a file-backed SQLite connection in a temporary directory.
// The connection is closed when the test ends.
func NewSQLiteConnection(t *testing.T) dbadapter.DBConnection {
	t.Helper()
	cfg := dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "sweep.db"),
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	}
	conn, err := gormadapter.Open(cfg, "test_sqlite", "SILENT")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// NewSQLiteStore builds a migrated ConfigStore on a fresh SQLite file, the same way the application does.
func NewSQLiteStore(t *testing.T, opts ...sqlrepo.Option) (*sqlrepo.GormConfigStore, dbadapter.DBConnection) {
	t.Helper()
	conn := NewSQLiteConnection(t)
	require.NoError(t, sqlrepo.NewSchemaMigrator(TestMigrationsTable).Up(context.Background(), conn))

	opts = append([]sqlrepo.Option{sqlrepo.WithMigrationsTable(TestMigrationsTable)}, opts...)
	store := sqlrepo.NewGormConfigStore(NewTestSingleConnectionResolver(conn), "test_sqlite", opts...)
	return store, conn
}

// NewMockMySQLConnection returns a MySQL-dialect connection backed by sqlmock.
func NewMockMySQLConnection(t *testing.T) (dbadapter.DBConnection, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mockSQL, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:         gormadapter.NewGormLogger("SILENT"),
		TranslateError: true,
	})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "mysql", Database: "sweep"}, "test_mysql")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn, mockSQL
}
