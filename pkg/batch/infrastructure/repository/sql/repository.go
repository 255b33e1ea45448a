// Package sql implements the ConfigStore on a GORM connection.
package sql

import (
	"context"
	"strings"
	"time"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
)

const moduleName = "ConfigStore"

// Clock returns the current time. It is replaced in tests.
type Clock func() time.Time

// Option configures a GormConfigStore.
type Option func(*GormConfigStore)

// WithClock sets the clock used for runtime accounting.
func WithClock(clock Clock) Option {
	return func(s *GormConfigStore) { s.clock = clock }
}

// WithMigrationsTable adds the migration bookkeeping table to the reserved names.
func WithMigrationsTable(name string) Option {
	return func(s *GormConfigStore) {
		if name != "" {
			s.reserved[strings.ToLower(name)] = struct{}{}
		}
	}
}

// WithInsertBatchSize sets the number of rows inserted per statement when a table is created.
func WithInsertBatchSize(n int) Option {
	return func(s *GormConfigStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// GormConfigStore implements repository.ConfigStore.
type GormConfigStore struct {
	dbResolver database.DBConnectionResolver
	dbName     string
	clock      Clock
	reserved   map[string]struct{}
	batchSize  int
}

var _ repository.ConfigStore = (*GormConfigStore)(nil)

// NewGormConfigStore creates a store on the connection named dbName.
func NewGormConfigStore(dbResolver database.DBConnectionResolver, dbName string, opts ...Option) *GormConfigStore {
	s := &GormConfigStore{
		dbResolver: dbResolver,
		dbName:     dbName,
		clock:      time.Now,
		reserved: map[string]struct{}{
			sessionsTable: {},
			jobsTable:     {},
		},
		batchSize: 200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// connection resolves the store's connection, reconnecting if needed.
func (s *GormConfigStore) connection(ctx context.Context) (database.DBConnection, error) {
	conn, err := s.dbResolver.ResolveDBConnection(ctx, s.dbName)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to resolve DB connection '%s'", s.dbName, err)
	}
	return conn, nil
}

func (s *GormConfigStore) isReserved(name string) bool {
	_, ok := s.reserved[strings.ToLower(name)]
	return ok
}

func (s *GormConfigStore) now() time.Time {
	return s.clock().UTC().Truncate(time.Second)
}

// Close is a no-op; connections are owned by the resolver's providers.
func (s *GormConfigStore) Close() error {
	return nil
}
