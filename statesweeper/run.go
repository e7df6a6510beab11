// Package statesweeper owns the standalone expiry sweeper lifecycle.
package statesweeper

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/centsible/centsible/internal/config"
	"github.com/centsible/centsible/internal/factory"
	"github.com/centsible/centsible/internal/logger"
	"github.com/centsible/centsible/internal/sweep"
)

// Run starts the state sweeper and blocks until shutdown or error.
func Run() error {
	log := logger.New("state-sweeper")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("State sweeper starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store adapter unavailable")
		return err
	}

	w := sweep.NewWorker(st, sweep.Config{Interval: cfg.SweepInterval}, log)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("state sweeper exit")
		return err
	}
	return nil
}
