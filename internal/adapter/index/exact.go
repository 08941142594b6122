// Package index provides nearest-neighbour search over an embedding snapshot.
package index

import (
	"fmt"
	"math"
	"slices"

	"bookrec/internal/domain"
)

// Source is what the index is fitted on.
type Source interface {
	Vectors() [][]float32
	Dimension() int
	Generation() uint64
}

// Exact is a brute-force Euclidean k-NN index. Vectors are packed row-major so
// a query is one linear scan; ties keep store order.
type Exact struct {
	matrix     []float32
	rows       int
	dimension  int
	generation uint64
}

// Fit builds an index over every vector in src.
func Fit(src Source) *Exact {
	vecs := src.Vectors()
	dim := src.Dimension()

	matrix := make([]float32, 0, len(vecs)*dim)
	for _, v := range vecs {
		matrix = append(matrix, v...)
	}

	return &Exact{
		matrix:     matrix,
		rows:       len(vecs),
		dimension:  dim,
		generation: src.Generation(),
	}
}

func (x *Exact) Len() int {
	return x.rows
}

func (x *Exact) Generation() uint64 {
	return x.generation
}

// Query returns the k records closest to vector, ascending by distance.
func (x *Exact) Query(vector []float32, k int) ([]domain.Neighbor, error) {
	if x.rows == 0 {
		return nil, fmt.Errorf("%w: index is empty", domain.ErrInvalidState)
	}
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrInvalidState, len(vector), x.dimension)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if k > x.rows {
		return nil, fmt.Errorf("%w: k=%d exceeds store size %d", domain.ErrInvalidArgument, k, x.rows)
	}

	scored := make([]domain.Neighbor, x.rows)
	for i := 0; i < x.rows; i++ {
		row := x.matrix[i*x.dimension : (i+1)*x.dimension]
		scored[i] = domain.Neighbor{ItemID: i, Distance: euclidean(vector, row)}
	}

	slices.SortStableFunc(scored, func(a, b domain.Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	return scored[:k:k], nil
}

// euclidean accumulates in float64 so results do not depend on vector length
// rounding in float32.
func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
