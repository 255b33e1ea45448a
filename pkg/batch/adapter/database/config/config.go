package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes" mapstructure:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type" mapstructure:"type" validate:"required,oneof=sqlite mysql postgres"`
	Host     string     `yaml:"host" mapstructure:"host" validate:"required_unless=Type sqlite"`
	Port     int        `yaml:"port" mapstructure:"port"`
	Database string     `yaml:"database" mapstructure:"database" validate:"required"` // Database name, or file path for SQLite.
	User     string     `yaml:"user" mapstructure:"user"`
	Password string     `yaml:"password" mapstructure:"password"`
	Sslmode  string     `yaml:"sslmode" mapstructure:"sslmode"`
	Params   string     `yaml:"params" mapstructure:"params"` // Extra DSN parameters, e.g. "_busy_timeout=5000" for SQLite.
	Pool     PoolConfig `yaml:"pool" mapstructure:"pool"`
}
