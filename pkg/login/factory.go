package login

import (
	"database/sql"
	"fmt"

	"github.com/tendant/simple-auth/pkg/config"
)

// StoreConfig carries the already-opened connection for the selected driver.
type StoreConfig struct {
	Driver string
	// Postgres is a pgx pool or transaction, required for the postgres driver.
	Postgres DBTX
	// MySQL is required for the mysql driver.
	MySQL *sql.DB
}

// NewCredentialStore creates a credential store for the configured driver
func NewCredentialStore(cfg StoreConfig) (CredentialStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.Postgres == nil {
			return nil, fmt.Errorf("postgres driver selected without a connection pool")
		}
		return NewPostgresCredentialStore(cfg.Postgres), nil
	case config.DriverMySQL:
		if cfg.MySQL == nil {
			return nil, fmt.Errorf("mysql driver selected without a database handle")
		}
		return NewMySQLCredentialStore(cfg.MySQL), nil
	case config.DriverMemory:
		return NewInMemoryCredentialStore(), nil
	default:
		return nil, fmt.Errorf("unsupported credential store driver: %q", cfg.Driver)
	}
}
