package port

import "bookrec/internal/domain"

// EmbeddingStore is a read-only, positionally addressed record set.
type EmbeddingStore interface {
	// Len returns the number of records.
	Len() int

	// Dimension returns the shared embedding dimension, or 0 for an empty store.
	Dimension() int

	// Record returns the record at position id.
	Record(id int) (domain.EmbeddingRecord, error)

	// Generation identifies the snapshot; it changes whenever the persisted
	// record set is replaced.
	Generation() uint64
}

// SnapshotStore persists embedding snapshots.
type SnapshotStore interface {
	ReplaceRecords(records []domain.EmbeddingRecord) (uint64, error)

	LoadRecords() ([]domain.EmbeddingRecord, uint64, error)

	// Generation returns the generation of the persisted record set.
	Generation() (uint64, error)

	Close() error
}
