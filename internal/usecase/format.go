package usecase

import (
	"fmt"

	"bookrec/internal/domain"
	"bookrec/internal/port"
)

// Format turns distance-sorted neighbours into a ranked answer. When exclude
// is set, the matching neighbour is dropped and the ranks after it close up.
func Format(neighbors []domain.Neighbor, store port.EmbeddingStore, exclude *int) (domain.RecommendationResult, error) {
	out := make(domain.RecommendationResult, 0, len(neighbors))
	for _, n := range neighbors {
		if exclude != nil && n.ItemID == *exclude {
			continue
		}
		rec, err := store.Record(n.ItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: neighbour %d is not in the store: %v", domain.ErrInvalidState, n.ItemID, err)
		}
		out = append(out, domain.Recommendation{
			Rank:   len(out),
			Title:  rec.Title,
			Score:  n.Distance,
			ItemID: domain.FormatItemID(n.ItemID),
		})
	}
	return out, nil
}

// FormatCollaborative reshapes collaborative hits in the model's order. The
// collaborative path has no titles, so the id stands in for one.
func FormatCollaborative(items []domain.ScoredItem) domain.RecommendationResult {
	out := make(domain.RecommendationResult, len(items))
	for i, it := range items {
		id := domain.FormatItemID(it.ItemID)
		out[i] = domain.Recommendation{
			Rank:   i,
			Title:  id,
			Score:  it.Score,
			ItemID: id,
		}
	}
	return out
}
