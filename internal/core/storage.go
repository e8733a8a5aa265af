package core

import (
	"fmt"
	"os"

	"batikcore/internal/infra/persistence/memory"
	"batikcore/internal/infra/persistence/postgres"
	"batikcore/internal/infra/persistence/sqlite"
	"batikcore/pkg/domain"
)

// Storage driver names accepted by OpenPersistentStore.
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// OpenPersistentStore selects a rule store backend from environment
// variables.
//
//	BATIKCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	BATIKCORE_SQLITE_PATH: database file when driver=sqlite
//	BATIKCORE_POSTGRES_DSN: connection string when driver=postgres
func OpenPersistentStore() (domain.PersistentStore, error) {
	driver := os.Getenv("BATIKCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = StorageDriverSQLite
	}
	switch driver {
	case StorageDriverMemory:
		return memory.NewStore(), nil
	case StorageDriverSQLite:
		return sqlite.NewStore(os.Getenv("BATIKCORE_SQLITE_PATH"))
	case StorageDriverPostgres:
		return postgres.NewStore(os.Getenv("BATIKCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
