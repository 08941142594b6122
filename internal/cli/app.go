package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"bookrec/config"
	"bookrec/internal/adapter/collab"
	"bookrec/internal/adapter/embedding"
	"bookrec/internal/adapter/store"
	"bookrec/internal/port"
	"bookrec/internal/usecase"
)

// app wires the recommender for commands that answer queries.
type app struct {
	store        *store.BoltStore
	interactions *collab.SQLiteStore
	snapshots    *usecase.Lazy[*usecase.Snapshot]
	collab       *usecase.Lazy[port.CollaborativeRecommender]
	recommender  *usecase.Recommender
}

func openApp(ctx context.Context, cfg *config.Config, dir string, logger zerolog.Logger) (*app, error) {
	dbPath := cfg.StorePath(dir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no embedding snapshot at %s. Run 'bookrec import' first", dbPath)
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	if mig, err := st.CheckMigration(cfg); err == nil && mig.NeedsReimport {
		logger.Warn().Str("reason", mig.Reason).Msg("snapshot should be re-imported")
	}

	interactionsPath := cfg.InteractionsPath(dir)
	if err := config.EnsureParentDir(interactionsPath); err != nil {
		st.Close()
		return nil, err
	}
	interactions, err := collab.OpenSQLite(ctx, interactionsPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open interactions: %w", err)
	}

	// A missing encoder only disables text queries.
	enc, err := embedding.New(cfg, dir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("text encoder unavailable; text queries will fail")
	}

	snapshots := usecase.NewLazy(func(ctx context.Context) (*usecase.Snapshot, error) {
		return usecase.LoadSnapshot(ctx, st, logger.With().Str("component", "snapshot").Logger())
	})
	opts := collab.Options{
		MinSimilarity: cfg.Collaborative.MinSimilarity,
		Shrinkage:     cfg.Collaborative.Shrinkage,
	}
	collabModel := usecase.NewLazy(func(ctx context.Context) (port.CollaborativeRecommender, error) {
		return usecase.LoadCollaborative(ctx, interactions, opts, logger.With().Str("component", "collaborative").Logger())
	})

	rec := usecase.NewRecommender(
		usecase.NewQueryEncoder(enc, cfg.Retrieve.MaxQueryWords),
		snapshots,
		collabModel,
		usecase.RecommenderConfig{
			TopK:           cfg.Retrieve.TopK,
			CollaborativeK: cfg.Collaborative.K,
			CollaborativeM: cfg.Collaborative.M,
		},
		logger.With().Str("component", "recommender").Logger(),
	)

	return &app{
		store:        st,
		interactions: interactions,
		snapshots:    snapshots,
		collab:       collabModel,
		recommender:  rec,
	}, nil
}

func (a *app) Close() {
	a.interactions.Close()
	a.store.Close()
}
