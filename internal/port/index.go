package port

import "bookrec/internal/domain"

// NeighborIndex answers k-nearest-neighbour queries over one store snapshot.
type NeighborIndex interface {
	// Query returns the k closest records, ascending by distance.
	Query(vector []float32, k int) ([]domain.Neighbor, error)

	// Generation is the store generation the index was fitted on.
	Generation() uint64
}
