// Package mysql registers the MySQL dialect with the GORM adapter.
package mysql

import (
	"errors"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/sweep/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/sweep/pkg/batch/core/config"
)

// DBType is the configuration type handled by this package.
const DBType = "mysql"

// erDupEntry is the MySQL server error number for a duplicate key.
const erDupEntry = 1062

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
	gormadapter.RegisterDuplicateKeyClassifier(DBType, IsDuplicateEntryError)
}

// ConnectionString builds the DSN with the driver's own formatter.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	dsn.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	dsn.DBName = c.Database
	dsn.ParseTime = true
	// Matched rows, not changed rows, so an unchanged UPDATE still reports the job exists.
	dsn.ClientFoundRows = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	for _, kv := range strings.Split(c.Params, "&") {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			dsn.Params[k] = v
		}
	}
	return dsn.FormatDSN()
}

// IsDuplicateEntryError reports ER_DUP_ENTRY.
func IsDuplicateEntryError(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry
}

// NewProvider creates a new DBProvider for MySQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
