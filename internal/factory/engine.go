package factory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/config"
	"github.com/centsible/centsible/internal/decision"
)

// NewEngine creates the decision engine from config. A missing API key is
// not an error: the service starts without an engine and the orchestrator
// answers every message with its fixed fallback reply.
func NewEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger) (decision.Engine, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("no Gemini API key configured; running fallback-only")
		return nil, nil
	}
	eng, err := decision.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", cfg.GeminiModel).Msg("decision engine ready")
	return eng, nil
}
