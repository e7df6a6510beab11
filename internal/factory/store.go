// Package factory builds the service dependencies from configuration.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/config"
	storepkg "github.com/centsible/centsible/internal/store"
	storepg "github.com/centsible/centsible/internal/store/postgres"
	storelite "github.com/centsible/centsible/internal/store/sqlite"
)

// NewStore opens the configured database and returns a store.Store.
// SQLite applies its schema synchronously on open; Postgres connects and
// pings synchronously, then verifies the schema in the background so a slow
// migration check cannot stall startup.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := storelite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := storelite.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return storelite.NewWithDB(db), nil

	case "postgres":
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}

		go func() {
			timeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
			bootstrapCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if err := storepg.Bootstrap(bootstrapCtx, cfg.PostgresDSN); err != nil {
				log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store bootstrap check failed")
			} else {
				log.Debug().Str("driver", cfg.DBDriver).Msg("store bootstrap check completed")
			}
		}()

		return storepg.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
