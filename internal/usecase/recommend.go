package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"bookrec/internal/domain"
	"bookrec/internal/metrics"
	"bookrec/internal/port"
)

// Collaborative defaults: neighbours consulted and recommendations returned.
const (
	DefaultCollaborativeK = 200
	DefaultCollaborativeM = 20
)

// RecommenderConfig holds the per-mode result sizes.
type RecommenderConfig struct {
	TopK           int
	CollaborativeK int
	CollaborativeM int
}

// Recommender runs the three recommendation paths over shared, read-only
// snapshots. It holds no per-request state.
type Recommender struct {
	encoder   *QueryEncoder
	snapshots Loader[*Snapshot]
	collab    Loader[port.CollaborativeRecommender]
	cfg       RecommenderConfig
	logger    zerolog.Logger
}

func NewRecommender(
	encoder *QueryEncoder,
	snapshots Loader[*Snapshot],
	collab Loader[port.CollaborativeRecommender],
	cfg RecommenderConfig,
	logger zerolog.Logger,
) *Recommender {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.CollaborativeK <= 0 {
		cfg.CollaborativeK = DefaultCollaborativeK
	}
	if cfg.CollaborativeM <= 0 {
		cfg.CollaborativeM = DefaultCollaborativeM
	}
	return &Recommender{
		encoder:   encoder,
		snapshots: snapshots,
		collab:    collab,
		cfg:       cfg,
		logger:    logger,
	}
}

// RecommendText returns the k items closest to the encoded text. k <= 0
// selects the configured default.
func (r *Recommender) RecommendText(ctx context.Context, text string, k int) (domain.RecommendationResult, error) {
	res, err := r.recommendVector(ctx, domain.Query{Mode: domain.ModeText, Text: text}, k, nil)
	return r.observe(domain.ModeText, res, err)
}

// RecommendFromLibrary returns the neighbours of a stored item, minus the item
// itself.
func (r *Recommender) RecommendFromLibrary(ctx context.Context, itemID, k int) (domain.RecommendationResult, error) {
	res, err := r.recommendVector(ctx, domain.Query{Mode: domain.ModeLookup, ItemID: itemID}, k, &itemID)
	return r.observe(domain.ModeLookup, res, err)
}

// RecommendUser asks the collaborative model for the user's top items.
func (r *Recommender) RecommendUser(ctx context.Context, userID int) (domain.RecommendationResult, error) {
	res, err := r.recommendUser(ctx, userID)
	return r.observe(domain.ModeCollaborative, res, err)
}

func (r *Recommender) recommendVector(ctx context.Context, q domain.Query, k int, exclude *int) (domain.RecommendationResult, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}

	snap, err := r.snapshots.Get(ctx)
	if err != nil {
		return nil, err
	}
	stale, err := snap.Stale()
	if err != nil {
		return nil, err
	}
	if stale {
		// The next request loads the replacement records.
		r.snapshots.Reset()
		return nil, fmt.Errorf("%w: snapshot generation %d has been replaced, reloading",
			domain.ErrInvalidState, snap.Store.Generation())
	}

	vec, err := r.encoder.Encode(ctx, q, snap.Store)
	if err != nil {
		return nil, err
	}

	neighbors, err := snap.Index.Query(vec, k)
	if err != nil {
		return nil, err
	}
	return Format(neighbors, snap.Store, exclude)
}

func (r *Recommender) recommendUser(ctx context.Context, userID int) (domain.RecommendationResult, error) {
	if r.collab == nil {
		return nil, fmt.Errorf("%w: collaborative model is not configured", domain.ErrInvalidState)
	}
	model, err := r.collab.Get(ctx)
	if err != nil {
		return nil, err
	}

	items, err := model.TopMNeighborsK(ctx, userID, r.cfg.CollaborativeK, r.cfg.CollaborativeM)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return FormatCollaborative(items), nil
}

func (r *Recommender) observe(mode domain.QueryMode, res domain.RecommendationResult, err error) (domain.RecommendationResult, error) {
	if err != nil {
		kind := domain.KindOf(err)
		metrics.RecommendationErrors.WithLabelValues(mode.String(), kind.String()).Inc()
		r.logger.Debug().Err(err).Str("mode", mode.String()).Str("kind", kind.String()).Msg("recommendation failed")
		return nil, err
	}
	metrics.RecommendationsServed.WithLabelValues(mode.String()).Add(float64(len(res)))
	return res, nil
}
