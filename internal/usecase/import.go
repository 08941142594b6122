package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bookrec/config"
	"bookrec/internal/adapter/artifact"
	"bookrec/internal/adapter/store"
	"bookrec/internal/domain"
	"bookrec/internal/port"
)

// ImportUseCase loads record-set artifacts into the persisted snapshot.
type ImportUseCase struct {
	store  *store.BoltStore
	walker port.FileWalker
	cfg    *config.Config
	logger zerolog.Logger
}

// NewImportUseCase creates a new import use case.
func NewImportUseCase(store *store.BoltStore, walker port.FileWalker, cfg *config.Config, logger zerolog.Logger) *ImportUseCase {
	return &ImportUseCase{
		store:  store,
		walker: walker,
		cfg:    cfg,
		logger: logger,
	}
}

// ImportResult contains the results of an import.
type ImportResult struct {
	Files      []string
	Records    int
	Dimension  int
	Generation uint64
	Duration   time.Duration
}

// Discover lists the artifact files under root matching the configured globs.
func (u *ImportUseCase) Discover(root string) ([]string, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

// Import reads paths in order and replaces the stored snapshot with their
// concatenation. Item ids are reassigned from 0 across all files. progress,
// if set, is called after each file.
func (u *ImportUseCase) Import(ctx context.Context, paths []string, progress func(done, total int)) (*ImportResult, error) {
	start := time.Now()
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no artifacts to import", domain.ErrInvalidArgument)
	}

	var records []domain.EmbeddingRecord
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := artifact.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact: %w", err)
		}
		records = append(records, recs...)
		u.logger.Debug().Str("path", path).Int("records", len(recs)).Msg("artifact read")
		if progress != nil {
			progress(i+1, len(paths))
		}
	}

	generation, err := u.store.ReplaceRecords(records)
	if err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}
	if err := u.store.Migrate(u.cfg); err != nil {
		return nil, fmt.Errorf("failed to stamp schema: %w", err)
	}

	result := &ImportResult{
		Files:      paths,
		Records:    len(records),
		Generation: generation,
		Duration:   time.Since(start),
	}
	if len(records) > 0 {
		result.Dimension = len(records[0].Embedding)
	}

	if want := u.cfg.Encoder.Dimension; want > 0 && result.Records > 0 && result.Dimension != want {
		u.logger.Warn().
			Int("stored", result.Dimension).
			Int("encoder", want).
			Msg("stored dimension differs from the encoder; text queries will fail")
	}
	u.logger.Info().
		Int("files", len(paths)).
		Int("records", result.Records).
		Uint64("generation", generation).
		Dur("elapsed", result.Duration).
		Msg("import complete")
	return result, nil
}
