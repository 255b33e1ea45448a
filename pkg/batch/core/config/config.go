// Package config provides the configuration structures for sweep.
package config

// EmbeddedConfig holds the content of the default configuration file compiled into the binary.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level" toml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL debug info warn error fatal"`
	// SQLLevel is the level at which GORM reports statements (SILENT, ERROR, WARN, INFO).
	SQLLevel string `yaml:"sql_level" toml:"sql_level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is used when rendering timestamps for operators (e.g., "UTC", "Asia/Tokyo").
	Timezone string        `yaml:"timezone" toml:"timezone"`
	Logging  LoggingConfig `yaml:"logging" toml:"logging"`
}

// StoreConfig selects the database connection holding configuration tables, sessions and jobs.
type StoreConfig struct {
	DatabaseRef     string `yaml:"database_ref" toml:"database_ref" validate:"required"`
	MigrationsTable string `yaml:"migrations_table" toml:"migrations_table" validate:"required"`
}

// LaunchConfig controls how a session fans out job launches.
type LaunchConfig struct {
	MaxConcurrency      int      `yaml:"max_concurrency" toml:"max_concurrency" validate:"min=1"`
	TimeoutSeconds      int      `yaml:"timeout_seconds" toml:"timeout_seconds" validate:"min=0"`
	SubmitRatePerSecond float64  `yaml:"submit_rate_per_second" toml:"submit_rate_per_second" validate:"gte=0"`
	SubmitBurst         int      `yaml:"submit_burst" toml:"submit_burst" validate:"min=1"`
	CreateDirStructure  bool     `yaml:"create_dir_structure" toml:"create_dir_structure"`
	TagColumn           string   `yaml:"tag_column" toml:"tag_column"`
	ConfigPreamble      []string `yaml:"config_preamble" toml:"config_preamble"`
	// Template is the default submission template path, used when a run does not name one.
	Template string `yaml:"template" toml:"template"`
}

// SchedulerConfig describes the external batch scheduler commands.
type SchedulerConfig struct {
	// Enabled toggles real submission. When false, launches only materialize run artifacts.
	Enabled               bool              `yaml:"enabled" toml:"enabled"`
	SubmitCommand         string            `yaml:"submit_command" toml:"submit_command" validate:"required_if=Enabled true"`
	QueryCommand          string            `yaml:"query_command" toml:"query_command" validate:"required_if=Enabled true"`
	CommandTimeoutSeconds int               `yaml:"command_timeout_seconds" toml:"command_timeout_seconds" validate:"min=0"`
	StatusMap             map[string]string `yaml:"status_map" toml:"status_map" validate:"dive,keys,required,endkeys,oneof=queued running held suspended"`
}

// ReconcileConfig holds settings for periodic reconciliation.
type ReconcileConfig struct {
	// Schedule is a cron expression (robfig/cron syntax, descriptors such as "@every 1m" accepted).
	Schedule string `yaml:"schedule" toml:"schedule" validate:"required"`
}

// StorageSettings holds snapshot mirroring settings and named storage connections.
type StorageSettings struct {
	// SnapshotRef names the storage connection that receives a copy of each session snapshot. Empty disables mirroring.
	SnapshotRef    string                 `yaml:"snapshot_ref" toml:"snapshot_ref"`
	SnapshotPrefix string                 `yaml:"snapshot_prefix" toml:"snapshot_prefix"`
	Connections    map[string]interface{} `yaml:"connections" toml:"connections"`
}

// OTelConfig holds OpenTelemetry exporter settings.
type OTelConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Protocol    string `yaml:"protocol" toml:"protocol" validate:"omitempty,oneof=http grpc"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool   `yaml:"insecure" toml:"insecure"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	// TextfilePath, when set, receives the Prometheus registry in text format on shutdown.
	TextfilePath string     `yaml:"textfile_path" toml:"textfile_path"`
	OTel         OTelConfig `yaml:"otel" toml:"otel"`
}

// SweepConfig holds all configuration under the "sweep" top-level key.
type SweepConfig struct {
	System    SystemConfig    `yaml:"system" toml:"system"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Launch    LaunchConfig    `yaml:"launch" toml:"launch"`
	Scheduler SchedulerConfig `yaml:"scheduler" toml:"scheduler"`
	Reconcile ReconcileConfig `yaml:"reconcile" toml:"reconcile"`
	Storage   StorageSettings `yaml:"storage" toml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	// AdapterConfigs holds named database connections, decoded by the database providers.
	AdapterConfigs map[string]interface{} `yaml:"database" toml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Sweep          SweepConfig    `yaml:"sweep" toml:"sweep"`
	EmbeddedConfig EmbeddedConfig `yaml:"-" toml:"-"`
}

// DefaultStatusMap maps PBS-style qstat state letters to job statuses.
func DefaultStatusMap() map[string]string {
	return map[string]string{
		"Q": "queued",
		"R": "running",
		"H": "held",
		"S": "suspended",
	}
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Sweep: SweepConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", SQLLevel: string(LogLevelSilent)},
			},
			Store: StoreConfig{
				DatabaseRef:     "metadata",
				MigrationsTable: "sweep_schema_migrations",
			},
			Launch: LaunchConfig{
				MaxConcurrency:      8,
				TimeoutSeconds:      120,
				SubmitRatePerSecond: 0,
				SubmitBurst:         1,
				TagColumn:           "tag",
			},
			Scheduler: SchedulerConfig{
				Enabled:               true,
				SubmitCommand:         "qsub",
				QueryCommand:          "qstat",
				CommandTimeoutSeconds: 30,
				StatusMap:             DefaultStatusMap(),
			},
			Reconcile: ReconcileConfig{Schedule: "@every 1m"},
			Storage: StorageSettings{
				SnapshotPrefix: "snapshots",
				Connections:    map[string]interface{}{},
			},
			Metrics: MetricsConfig{
				OTel: OTelConfig{Protocol: "http", ServiceName: "sweep"},
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}
