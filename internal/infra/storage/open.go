package storage

import (
	"fmt"

	"trenches/internal/domain"
	"trenches/internal/infra"
)

// Open returns the backend selected by cfg.Driver.
func Open(cfg infra.StorageConfig) (domain.Store, error) {
	switch cfg.Driver {
	case infra.DriverSQLite, "":
		return NewSQLite(cfg.SQLitePath)
	case infra.DriverRedis:
		return NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case infra.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, &domain.ConfigError{Field: "storage.driver", Err: fmt.Errorf("unknown driver %q", cfg.Driver)}
	}
}
