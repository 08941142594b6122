package embedding

import (
	"fmt"

	"github.com/rs/zerolog"

	"bookrec/config"
	"bookrec/internal/port"
)

// New builds the configured text encoder. Remote providers are wrapped in a
// circuit breaker, and the result is cached when the cache is enabled.
func New(cfg *config.Config, dir string, logger zerolog.Logger) (port.TextEncoder, error) {
	ec := cfg.Encoder

	var (
		enc    port.TextEncoder
		remote = true
	)
	switch ec.Provider {
	case "bert", "":
		tok, err := LoadVocab(config.Resolve(dir, ec.VocabPath))
		if err != nil {
			return nil, err
		}
		enc = NewBERTEncoder(ec.BaseURL, ec.Model, ec.Dimension, tok, ec.Timeout)
	case "openai":
		oe, err := NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.Timeout)
		if err != nil {
			return nil, err
		}
		enc = oe
	case "ollama":
		enc = NewOllamaEmbedder(ec.Model, ec.BaseURL, ec.Timeout)
	case "mock":
		enc = NewMockEmbedder(ec.Dimension)
		remote = false
	default:
		return nil, fmt.Errorf("unknown encoder provider: %s", ec.Provider)
	}

	if remote {
		enc = NewBreakerEncoder(enc, ec.Breaker, logger)
	}
	if cfg.Cache.Enabled {
		enc = NewCachedEncoder(enc, cfg.Cache.Size, cfg.Cache.TTL)
	}

	logger.Debug().
		Str("provider", ec.Provider).
		Str("model", enc.ModelName()).
		Int("dimension", enc.Dimension()).
		Bool("cached", cfg.Cache.Enabled).
		Msg("text encoder ready")
	return enc, nil
}
