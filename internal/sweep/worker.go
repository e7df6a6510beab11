// Package sweep deletes expired session and working-memory rows. Reads
// already treat expired rows as absent, so the worker is storage hygiene,
// not a correctness requirement.
package sweep

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/store"
)

// Config controls the sweep cadence.
type Config struct {
	Interval time.Duration
}

// Worker runs the periodic sweep until its context is canceled.
type Worker struct {
	store store.Store
	cfg   Config
	log   zerolog.Logger
}

func NewWorker(st store.Store, cfg Config, log zerolog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Worker{store: st, cfg: cfg, log: log}
}

// Run starts the sweep loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Interval).Msg("state sweeper starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("state sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := w.SweepOnce(ctx); err != nil {
				// Log and keep ticking; a failed pass retries next interval.
				w.log.Error().Err(err).Msg("sweep pass failed")
			}
		}
	}
}

// SweepOnce removes every session and memory row whose expiry has passed
// and returns how many of each were deleted. Safe to run concurrently with
// reads and writes; deletion is bounded by expires_at, so a row refreshed
// mid-sweep is never touched.
func (w *Worker) SweepOnce(ctx context.Context) (sessions, memories int64, err error) {
	now := time.Now().UTC()

	sessions, err = w.store.Sessions().DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, errors.Wrap(err, "sweep sessions")
	}
	memories, err = w.store.Memories().DeleteExpired(ctx, now)
	if err != nil {
		return sessions, 0, errors.Wrap(err, "sweep memories")
	}

	if sessions > 0 || memories > 0 {
		w.log.Info().
			Int64("sessions", sessions).
			Int64("memories", memories).
			Msg("swept expired conversation state")
	}
	return sessions, memories, nil
}
