package port

import (
	"context"

	"bookrec/internal/domain"
)

// CollaborativeRecommender ranks items for a user from interaction patterns.
type CollaborativeRecommender interface {
	// TopMNeighborsK looks at the k most similar users of userContext and
	// returns at most m items, most relevant first.
	TopMNeighborsK(ctx context.Context, userContext, k, m int) ([]domain.ScoredItem, error)
}

// InteractionStore persists user-item interactions.
type InteractionStore interface {
	PutInteractions(ctx context.Context, interactions []domain.Interaction) error

	ListInteractions(ctx context.Context) ([]domain.Interaction, error)

	Count(ctx context.Context) (int, error)

	Close() error
}
