package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/anvil/config"
	"github.com/artpar/anvil/core/storage"
)

// provisioningStore is the store surface the application needs.
type provisioningStore interface {
	storage.DataAccess
	storage.Provisioner
}

// Store is the configured record store with its lifecycle.
type Store struct {
	provisioningStore

	sql *storage.SQLStore
}

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if cfg.Driver == config.DriverMemory {
		return &Store{provisioningStore: storage.NewMemoryStore()}, nil
	}

	s, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return &Store{provisioningStore: s, sql: s}, nil
}

// HealthCheck pings the database. The memory store is always healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.sql == nil {
		return nil
	}
	return s.sql.DB().PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.sql == nil {
		return nil
	}
	return s.sql.Close()
}
