// Package assistantservice owns the assistant HTTP service lifecycle:
// configuration, dependencies, router, health gate, serve, shutdown.
package assistantservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/api"
	"github.com/centsible/centsible/internal/auth"
	"github.com/centsible/centsible/internal/config"
	"github.com/centsible/centsible/internal/decision"
	"github.com/centsible/centsible/internal/extract"
	"github.com/centsible/centsible/internal/factory"
	"github.com/centsible/centsible/internal/health"
	"github.com/centsible/centsible/internal/logger"
	"github.com/centsible/centsible/internal/orchestrator"
	"github.com/centsible/centsible/internal/services"
	"github.com/centsible/centsible/internal/split"
	"github.com/centsible/centsible/internal/store"
	"github.com/centsible/centsible/internal/tools"
)

// Run starts the assistant service HTTP server and blocks until shutdown
// or error.
func Run() error {
	log := logger.New("assistant-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("gemini_model", cfg.GeminiModel).
		Str("extractor_url", cfg.ExtractorURL).
		Msg("Assistant service starting")

	ctx, stop := newServerContext()
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}

	eng, err := factory.NewEngine(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Decision engine unavailable")
		return err
	}
	extractor := factory.NewExtractor(cfg, log)

	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	router, err := buildRouter(cfg, st, eng, extractor, svcHealth.IsHealthy, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to build router")
		return err
	}

	// Block startup until dependencies report healthy; fail fast otherwise.
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// buildRouter wires services, tools, the orchestrator, and HTTP handlers.
func buildRouter(cfg *config.Config, st store.Store, eng decision.Engine, ex extract.Extractor, isHealthy func() bool, log zerolog.Logger) (*mux.Router, error) {
	sessions := services.NewSessionService(st, cfg.SessionTTL)
	memory := services.NewWorkingMemoryService(st, cfg.MemoryTTL)
	resolver := services.NewResolver(st, memory, log)

	registry := tools.NewRegistry()
	for _, tl := range []tools.Tool{
		tools.NewRecordExpense(st, memory, ex, split.NewEven(), cfg.DefaultCurrency, cfg.ConfidenceThreshold, log),
		tools.NewQueryExpenses(st),
		tools.NewModifyAmount(resolver),
		tools.NewModifyMerchant(resolver),
		tools.NewModifyCategory(resolver),
		tools.NewDeleteExpense(resolver),
	} {
		if err := registry.Register(tl); err != nil {
			return nil, err
		}
	}

	orch := orchestrator.New(sessions, memory, eng, registry, resolver, log)
	handler := api.NewHandler(orch, log)
	healthHandler := api.NewHealthHandler(isHealthy)

	return api.NewRouter(handler, healthHandler, auth.NewStaticKey(cfg.APIKey)), nil
}

// startHealthCheckers starts component checkers and the service aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup window in seconds:
// two probe intervals, with a 60 second floor.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is green or the startup
// window expires. Checkers start unhealthy and need a probe cycle.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
