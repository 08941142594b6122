package usecase

import (
	"context"
	"fmt"
	"strings"

	"bookrec/internal/domain"
	"bookrec/internal/port"
)

// DefaultMaxQueryWords bounds how much free text reaches the encoder.
const DefaultMaxQueryWords = 256

// QueryEncoder resolves a query to a vector in the store's embedding space.
type QueryEncoder struct {
	encoder  port.TextEncoder
	maxWords int
}

func NewQueryEncoder(encoder port.TextEncoder, maxWords int) *QueryEncoder {
	if maxWords <= 0 {
		maxWords = DefaultMaxQueryWords
	}
	return &QueryEncoder{encoder: encoder, maxWords: maxWords}
}

// Encode returns the query vector for text and lookup queries. The returned
// slice is never shared with the store. Collaborative queries have no vector.
func (e *QueryEncoder) Encode(ctx context.Context, q domain.Query, store port.EmbeddingStore) ([]float32, error) {
	switch q.Mode {
	case domain.ModeText:
		text := TruncateWords(q.Text, e.maxWords)
		if text == "" {
			return nil, fmt.Errorf("%w: empty text query", domain.ErrInvalidArgument)
		}
		if e.encoder == nil {
			return nil, fmt.Errorf("%w: no text encoder configured", domain.ErrInvalidState)
		}
		vec, err := e.encoder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return vec, nil

	case domain.ModeLookup:
		rec, err := store.Record(q.ItemID)
		if err != nil {
			return nil, err
		}
		vec := make([]float32, len(rec.Embedding))
		copy(vec, rec.Embedding)
		return vec, nil

	case domain.ModeCollaborative:
		return nil, fmt.Errorf("%w: collaborative queries are not encoded", domain.ErrInvalidArgument)

	default:
		return nil, fmt.Errorf("%w: unknown query mode %d", domain.ErrInvalidArgument, q.Mode)
	}
}

// TruncateWords keeps the first n whitespace-delimited words of text, joined
// by single spaces.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
