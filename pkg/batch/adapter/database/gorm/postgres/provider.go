// Package postgres registers the PostgreSQL dialect with the GORM adapter.
package postgres

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/sweep/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/sweep/pkg/batch/core/config"
)

// DBType is the configuration type handled by this package.
const DBType = "postgres"

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
	gormadapter.RegisterDuplicateKeyClassifier(DBType, func(err error) bool {
		return strings.Contains(err.Error(), "SQLSTATE 23505")
	})
}

// ConnectionString generates the key/value DSN expected by gorm.io/driver/postgres.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslmode)
	if c.Params != "" {
		dsn += " " + strings.ReplaceAll(c.Params, "&", " ")
	}
	return dsn
}

// NewProvider creates a new DBProvider for PostgreSQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
