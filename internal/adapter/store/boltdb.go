package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"bookrec/internal/domain"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
	keyGeneration = []byte("generation")
	keyDimension  = []byte("dimension")
	keyCount      = []byte("count")
)

// BoltStore persists the embedding snapshot. Records are keyed by their
// big-endian position so a cursor walk yields store order.
type BoltStore struct {
	db *bbolt.DB
}

type storedRecord struct {
	Title     string    `json:"t"`
	Embedding []float32 `json:"e"`
}

func NewBoltStore(path string) (*BoltStore, error) {
	// Another process holding the file (a running server) fails fast instead
	// of blocking forever on the flock.
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func itemKey(id int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func putUint(b *bbolt.Bucket, key []byte, v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return b.Put(key, buf)
}

func getUint(b *bbolt.Bucket, key []byte) uint64 {
	v := b.Get(key)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

// ReplaceRecords swaps the whole record set in one transaction and bumps the
// generation. Positions are reassigned from the slice order.
func (s *BoltStore) ReplaceRecords(records []domain.EmbeddingRecord) (uint64, error) {
	var generation uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketRecords)
		if err != nil {
			return err
		}

		dim := 0
		for i, rec := range records {
			if i == 0 {
				dim = len(rec.Embedding)
			} else if len(rec.Embedding) != dim {
				return fmt.Errorf("%w: record %d has dimension %d, expected %d",
					domain.ErrInvalidArgument, i, len(rec.Embedding), dim)
			}

			data, err := json.Marshal(storedRecord{Title: rec.Title, Embedding: rec.Embedding})
			if err != nil {
				return err
			}
			if err := b.Put(itemKey(i), data); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		generation = getUint(meta, keyGeneration) + 1
		if err := putUint(meta, keyGeneration, generation); err != nil {
			return err
		}
		if err := putUint(meta, keyDimension, uint64(dim)); err != nil {
			return err
		}
		return putUint(meta, keyCount, uint64(len(records)))
	})
	if err != nil {
		return 0, err
	}
	return generation, nil
}

// LoadRecords reads the snapshot in store order together with its generation.
func (s *BoltStore) LoadRecords() ([]domain.EmbeddingRecord, uint64, error) {
	var (
		records    []domain.EmbeddingRecord
		generation uint64
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		generation = getUint(meta, keyGeneration)
		records = make([]domain.EmbeddingRecord, 0, getUint(meta, keyCount))

		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			id := int(binary.BigEndian.Uint64(k))
			if id != len(records) {
				return fmt.Errorf("%w: snapshot has a gap at position %d", domain.ErrInvalidState, len(records))
			}
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("%w: record %d is corrupt: %w", domain.ErrInvalidState, id, err)
			}
			records = append(records, domain.EmbeddingRecord{
				ItemID:    id,
				Title:     stored.Title,
				Embedding: stored.Embedding,
			})
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return records, generation, nil
}

// Stats describes the persisted snapshot.
type Stats struct {
	Generation uint64
	Dimension  int
	Count      int
}

func (s *BoltStore) GetStats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		st = Stats{
			Generation: getUint(meta, keyGeneration),
			Dimension:  int(getUint(meta, keyDimension)),
			Count:      int(getUint(meta, keyCount)),
		}
		return nil
	})
	return st, err
}

// Generation returns the current snapshot generation without reading records.
func (s *BoltStore) Generation() (uint64, error) {
	var generation uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		generation = getUint(tx.Bucket(bucketMeta), keyGeneration)
		return nil
	})
	return generation, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
