// Package sqlite registers the SQLite dialect with the GORM adapter.
package sqlite

import (
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/sweep/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/sweep/pkg/batch/core/config"
)

// DBType is the configuration type handled by this package.
const DBType = "sqlite"

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
	gormadapter.RegisterDuplicateKeyClassifier(DBType, IsConstraintError)
}

// ConnectionString returns the file path, followed by any extra DSN parameters.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.Params == "" {
		return c.Database
	}
	sep := "?"
	if strings.Contains(c.Database, "?") {
		sep = "&"
	}
	return c.Database + sep + c.Params
}

// IsConstraintError reports unique and primary key violations raised by go-sqlite3.
func IsConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// NewProvider creates a new DBProvider for SQLite.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
