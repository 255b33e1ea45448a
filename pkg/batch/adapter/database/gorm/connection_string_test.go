package gorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/sweep/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
)

// TestConnectionString verifies the DSN each dialect builds from a DatabaseConfig.
func TestConnectionString(t *testing.T) {
	pg := postgres.ConnectionString(dbconfig.DatabaseConfig{
		Type:     "postgres",
		Host:     "pg_host",
		Port:     5432,
		Database: "pg_db",
		User:     "pg_user",
		Password: "pg_password",
		Sslmode:  "require",
	})
	assert.Equal(t, "host=pg_host port=5432 user=pg_user password=pg_password dbname=pg_db sslmode=require", pg)

	my := mysql.ConnectionString(dbconfig.DatabaseConfig{
		Type:     "mysql",
		Host:     "mysql_host",
		Database: "mysql_db",
		User:     "mysql_user",
		Password: "mysql_password",
	})
	assert.Contains(t, my, "mysql_user:mysql_password@tcp(mysql_host:3306)/mysql_db?")
	assert.Contains(t, my, "parseTime=true")
	assert.Contains(t, my, "clientFoundRows=true")
	assert.Contains(t, my, "charset=utf8mb4")

	assert.Equal(t, "sweep.db", sqlite.ConnectionString(dbconfig.DatabaseConfig{Type: "sqlite", Database: "sweep.db"}))
	assert.Equal(t, "sweep.db?_busy_timeout=5000", sqlite.ConnectionString(dbconfig.DatabaseConfig{Type: "sqlite", Database: "sweep.db", Params: "_busy_timeout=5000"}))
}

func TestDecodeDatabaseConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Sweep.AdapterConfigs["metadata"] = map[string]interface{}{
		"type":     "mysql",
		"host":     "db",
		"port":     "3307",
		"database": "sweep",
		"pool":     map[string]interface{}{"max_open_conns": 4},
	}
	cfg.Sweep.AdapterConfigs["broken"] = map[string]interface{}{"type": "oracle", "database": "x"}

	dbCfg, err := gormadapter.DecodeDatabaseConfig(cfg, "metadata")
	require.NoError(t, err)
	assert.Equal(t, 3307, dbCfg.Port)
	assert.Equal(t, 4, dbCfg.Pool.MaxOpenConns)

	_, err = gormadapter.DecodeDatabaseConfig(cfg, "broken")
	assert.Error(t, err)

	_, err = gormadapter.DecodeDatabaseConfig(cfg, "absent")
	assert.Error(t, err)
}
