package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bookrec/internal/adapter/collab"
	"bookrec/internal/adapter/index"
	"bookrec/internal/adapter/memstore"
	"bookrec/internal/domain"
	"bookrec/internal/metrics"
	"bookrec/internal/port"
)

// Snapshot pairs an embedding store with the index fitted over it.
type Snapshot struct {
	Store port.EmbeddingStore
	Index port.NeighborIndex

	// source is where the records were read from; nil for snapshots built in
	// memory.
	source port.SnapshotStore
}

// Stale reports whether the snapshot no longer describes the persisted record
// set: the index was fitted over a different store, or the records were
// replaced after the load.
func (s *Snapshot) Stale() (bool, error) {
	if s.Index.Generation() != s.Store.Generation() {
		return true, nil
	}
	if s.source == nil {
		return false, nil
	}
	persisted, err := s.source.Generation()
	if err != nil {
		return false, fmt.Errorf("%w: failed to read snapshot generation: %w", domain.ErrInvalidState, err)
	}
	return persisted != s.Store.Generation(), nil
}

// LoadSnapshot reads the persisted records, freezes them in memory and fits
// the exact index over them.
func LoadSnapshot(ctx context.Context, src port.SnapshotStore, logger zerolog.Logger) (*Snapshot, error) {
	start := time.Now()
	snap, err := loadSnapshot(ctx, src)
	if err != nil {
		metrics.ObserveSnapshotLoad("embeddings", 0, err)
		logger.Error().Err(err).Msg("failed to load embedding snapshot")
		return nil, err
	}

	metrics.ObserveSnapshotLoad("embeddings", snap.Store.Len(), nil)
	logger.Info().
		Int("items", snap.Store.Len()).
		Int("dimension", snap.Store.Dimension()).
		Uint64("generation", snap.Store.Generation()).
		Dur("elapsed", time.Since(start)).
		Msg("embedding snapshot loaded")
	return snap, nil
}

func loadSnapshot(ctx context.Context, src port.SnapshotStore) (*Snapshot, error) {
	records, generation, err := src.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store, err := memstore.NewSnapshot(records, generation)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Store: store, Index: index.Fit(store), source: src}, nil
}

// LoadCollaborative trains the neighbour model from the interaction store.
func LoadCollaborative(ctx context.Context, src port.InteractionStore, opts collab.Options, logger zerolog.Logger) (port.CollaborativeRecommender, error) {
	start := time.Now()
	model, err := collab.LoadUserCF(ctx, src, opts)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		metrics.ObserveSnapshotLoad("interactions", 0, err)
		logger.Error().Err(err).Msg("failed to load collaborative model")
		return nil, err
	}

	metrics.ObserveSnapshotLoad("interactions", model.Users(), nil)
	logger.Info().
		Int("users", model.Users()).
		Dur("elapsed", time.Since(start)).
		Msg("collaborative model loaded")
	return model, nil
}
