package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/sweep/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/sweep/pkg/batch/core/adapter"
	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	coreConfig "github.com/tigerroll/sweep/pkg/batch/core/config"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// DefaultStorageConnectionResolver picks the provider matching a connection's configured type.
type DefaultStorageConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// ResolverParams defines the dependencies for NewStorageConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *coreConfig.Config
}

// NewStorageConnectionResolver creates a resolver over every registered provider.
func NewStorageConnectionResolver(p ResolverParams) *DefaultStorageConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &DefaultStorageConnectionResolver{providers: providers, cfg: p.Cfg}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *DefaultStorageConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	storageCfg, err := storageConfig.DecodeStorageConfig(r.cfg, name)
	if err != nil {
		return nil, fmt.Errorf("StorageConnectionResolver: %w", err)
	}
	provider, ok := r.providers[storageCfg.Type]
	if !ok {
		return nil, fmt.Errorf("StorageConnectionResolver: no storage provider for type '%s' (connection '%s')", storageCfg.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("StorageConnectionResolver: failed to get connection '%s': %w", name, err)
	}
	return conn, nil
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *DefaultStorageConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// CloseAll closes the connections of every provider.
func (r *DefaultStorageConnectionResolver) CloseAll() error {
	var lastErr error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ObjectUploader adapts a StorageConnectionResolver to port.ObjectUploader.
type ObjectUploader struct {
	resolver StorageConnectionResolver
}

var _ port.ObjectUploader = (*ObjectUploader)(nil)

// NewObjectUploader creates a new ObjectUploader.
func NewObjectUploader(resolver StorageConnectionResolver) *ObjectUploader {
	return &ObjectUploader{resolver: resolver}
}

// Upload writes data to objectName in the default bucket of the named connection.
func (u *ObjectUploader) Upload(ctx context.Context, connectionName, objectName string, data io.Reader, contentType string) error {
	conn, err := u.resolver.ResolveStorageConnection(ctx, connectionName)
	if err != nil {
		return err
	}
	if err := conn.Upload(ctx, "", objectName, data, contentType); err != nil {
		return err
	}
	logger.Debugf("ObjectUploader: '%s' stored on '%s'.", objectName, connectionName)
	return nil
}
