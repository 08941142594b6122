package embedding

import "context"

// MockEmbedder maps each rune of the text to one vector component. It is
// deterministic and needs no model, which makes it useful offline and in tests.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	j := 0
	for _, r := range text {
		if j >= e.dimension {
			break
		}
		vec[j] = float32(r) / 1000.0
		j++
	}
	return vec, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
