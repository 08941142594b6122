package memstore

import (
	"fmt"

	"bookrec/internal/domain"
)

// Snapshot is an immutable embedding store held in memory. It is safe for
// concurrent readers because nothing mutates it after NewSnapshot returns.
type Snapshot struct {
	records    []domain.EmbeddingRecord
	dimension  int
	generation uint64
}

// NewSnapshot validates records and copies them into a snapshot. Records must
// be positional: records[i].ItemID == i.
func NewSnapshot(records []domain.EmbeddingRecord, generation uint64) (*Snapshot, error) {
	s := &Snapshot{
		records:    make([]domain.EmbeddingRecord, len(records)),
		generation: generation,
	}

	for i, rec := range records {
		if rec.ItemID != i {
			return nil, fmt.Errorf("%w: record %d has item id %d", domain.ErrInvalidState, i, rec.ItemID)
		}
		if len(rec.Embedding) == 0 {
			return nil, fmt.Errorf("%w: record %d has an empty embedding", domain.ErrInvalidState, i)
		}
		if i == 0 {
			s.dimension = len(rec.Embedding)
		} else if len(rec.Embedding) != s.dimension {
			return nil, fmt.Errorf("%w: record %d has dimension %d, expected %d",
				domain.ErrInvalidState, i, len(rec.Embedding), s.dimension)
		}

		vec := make([]float32, len(rec.Embedding))
		copy(vec, rec.Embedding)
		s.records[i] = domain.EmbeddingRecord{ItemID: i, Title: rec.Title, Embedding: vec}
	}

	return s, nil
}

func (s *Snapshot) Len() int {
	return len(s.records)
}

func (s *Snapshot) Dimension() int {
	return s.dimension
}

func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Record returns the record at position id. The embedding is shared with the
// snapshot and must not be modified.
func (s *Snapshot) Record(id int) (domain.EmbeddingRecord, error) {
	if id < 0 || id >= len(s.records) {
		return domain.EmbeddingRecord{}, fmt.Errorf("%w: item %d outside store of size %d", domain.ErrNotFound, id, len(s.records))
	}
	return s.records[id], nil
}

// Vectors returns the embeddings in store order, for index fitting.
func (s *Snapshot) Vectors() [][]float32 {
	vecs := make([][]float32, len(s.records))
	for i, rec := range s.records {
		vecs[i] = rec.Embedding
	}
	return vecs
}
