// Package config holds the settings of a named storage connection.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	coreConfig "github.com/tigerroll/sweep/pkg/batch/core/config"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type" mapstructure:"type" validate:"required,oneof=local gcs"`
	BucketName      string `yaml:"bucket_name" mapstructure:"bucket_name" validate:"required_if=Type gcs"` // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`                       // Service account key for GCS. Empty uses application default credentials.
	BaseDir         string `yaml:"base_dir" mapstructure:"base_dir" validate:"required_if=Type local"`     // Root directory for local file system operations.
}

var validate = validator.New()

// DecodeStorageConfig decodes and validates the named entry of sweep.storage.connections.
func DecodeStorageConfig(cfg *coreConfig.Config, name string) (StorageConfig, error) {
	var storageCfg StorageConfig
	raw, ok := cfg.Sweep.Storage.Connections[name]
	if !ok {
		return storageCfg, fmt.Errorf("storage connection '%s' not found under sweep.storage.connections", name)
	}
	if err := mapstructure.WeakDecode(raw, &storageCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	if err := validate.Struct(storageCfg); err != nil {
		return storageCfg, fmt.Errorf("invalid storage config for '%s': %w", name, err)
	}
	return storageCfg, nil
}
