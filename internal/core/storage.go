package core

import (
	"fmt"
	"os"
	"strconv"

	"rentalcore/internal/infra/persistence/memory"
	"rentalcore/internal/infra/persistence/postgres"
	"rentalcore/internal/infra/persistence/sqlite"
	"rentalcore/pkg/domain"
)

// StorageDriver identifies a persistence backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

// Environment variables:
//   RENTALCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//   RENTALCORE_SQLITE_PATH: database file when driver=sqlite (default ./rentalcore.db)
//   RENTALCORE_POSTGRES_DSN: connection string when driver=postgres
//   RENTALCORE_STORAGE_QUOTA_BYTES: optional serialized-state size cap

// OpenPersistentStore selects a persistence backend from the environment and
// opens it with the given rules engine.
func OpenPersistentStore(engine *domain.RulesEngine, opts ...memory.Option) (domain.PersistentStore, error) {
	if raw := os.Getenv("RENTALCORE_STORAGE_QUOTA_BYTES"); raw != "" {
		quota, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RENTALCORE_STORAGE_QUOTA_BYTES %q: %w", raw, err)
		}
		opts = append(opts, memory.WithQuota(quota))
	}
	driver := os.Getenv("RENTALCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine, opts...), nil
	case StorageSQLite:
		path := os.Getenv("RENTALCORE_SQLITE_PATH")
		if path == "" {
			path = "./rentalcore.db"
		}
		return sqlite.NewStore(path, engine, opts...)
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("RENTALCORE_POSTGRES_DSN"), engine, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
