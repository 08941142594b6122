package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"bookrec/config"
	"bookrec/internal/metrics"
	"bookrec/internal/port"
)

// BreakerEncoder guards an upstream encoder with a circuit breaker so a dead
// inference server fails requests fast instead of tying up handlers.
type BreakerEncoder struct {
	encoder port.TextEncoder
	cb      *gobreaker.CircuitBreaker[[]float32]
}

func NewBreakerEncoder(encoder port.TextEncoder, cfg config.BreakerConfig, logger zerolog.Logger) *BreakerEncoder {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	name := "encoder:" + encoder.ModelName()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up says nothing about the server's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("encoder circuit breaker changed state")
		},
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)

	return &BreakerEncoder{
		encoder: encoder,
		cb:      gobreaker.NewCircuitBreaker[[]float32](settings),
	}
}

func (b *BreakerEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := b.cb.Execute(func() ([]float32, error) {
		return b.encoder.Embed(ctx, text)
	})
	metrics.EncoderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EncoderErrors.Inc()
		return nil, err
	}
	return vec, nil
}

// State reports the breaker state for health checks.
func (b *BreakerEncoder) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerEncoder) Dimension() int {
	return b.encoder.Dimension()
}

func (b *BreakerEncoder) ModelName() string {
	return b.encoder.ModelName()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
