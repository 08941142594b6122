package port

import "context"

// TextEncoder turns free text into a vector in the store's embedding space.
type TextEncoder interface {
	// Embed encodes a single text. The returned slice is owned by the caller.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the encoding model.
	ModelName() string
}
