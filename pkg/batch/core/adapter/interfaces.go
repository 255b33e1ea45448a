// Package adapter defines the connection abstractions shared by the database and storage adapters.
package adapter

import (
	"context"
)

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "sqlite", "gcs").
	Type() string
	// Name returns the configured connection name (e.g., "metadata", "snapshots").
	Name() string
}

// ResourceConnectionResolver resolves a named connection, re-establishing it when it is no longer valid.
type ResourceConnectionResolver interface {
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}
