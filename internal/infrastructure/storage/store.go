// Package storage persists shopping lists and their line items and notifies
// subscribers when a list's items change.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cartwise/backend/internal/domain"
)

// Supported storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures the backing database
type Config struct {
	Driver      string
	SQLitePath  string
	PostgresURL string
}

// Open returns the repository for the configured driver
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (domain.ShoppingListRepository, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteRepository(ctx, cfg.SQLitePath, log)
	case DriverPostgres:
		return NewPostgresRepository(ctx, cfg.PostgresURL, log)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidRequest, cfg.Driver)
	}
}
