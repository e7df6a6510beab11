package factory

import (
	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/config"
	"github.com/centsible/centsible/internal/extract"
)

// NewExtractor picks the field extractor: the HTTP sidecar when a URL is
// configured, the built-in heuristic parser otherwise.
func NewExtractor(cfg *config.Config, log zerolog.Logger) extract.Extractor {
	if cfg.ExtractorURL == "" {
		log.Info().Msg("no extractor URL configured; using built-in heuristic parser")
		return extract.NewHeuristic()
	}
	log.Info().Str("url", cfg.ExtractorURL).Msg("using extraction sidecar")
	return extract.NewClient(cfg.ExtractorURL, cfg.ExtractorTimeout)
}
