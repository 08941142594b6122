package usecase

import (
	"context"
	"errors"
	"testing"

	"bookrec/internal/adapter/index"
	"bookrec/internal/adapter/memstore"
	"bookrec/internal/domain"
)

// recordingEncoder returns a vector derived from the text length and keeps
// every text it was asked to encode.
type recordingEncoder struct {
	texts []string
	vec   []float32
	err   error
}

func (e *recordingEncoder) Embed(_ context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	if e.vec != nil {
		out := make([]float32, len(e.vec))
		copy(out, e.vec)
		return out, nil
	}
	return []float32{float32(len(text)), 0}, nil
}

func (e *recordingEncoder) Dimension() int    { return 2 }
func (e *recordingEncoder) ModelName() string { return "recording" }

type stubCollaborative struct {
	items []domain.ScoredItem
	err   error
	calls [][3]int
}

func (s *stubCollaborative) TopMNeighborsK(_ context.Context, userContext, k, m int) ([]domain.ScoredItem, error) {
	s.calls = append(s.calls, [3]int{userContext, k, m})
	return s.items, s.err
}

// threeItems is the store [0,0], [1,0], [5,5].
func threeItems(t *testing.T) *Snapshot {
	t.Helper()
	return snapshotOf(t, 1, [][]float32{{0, 0}, {1, 0}, {5, 5}})
}

func snapshotOf(t *testing.T, generation uint64, vectors [][]float32) *Snapshot {
	t.Helper()
	titles := []string{"Dune", "Emma", "Ulysses", "Beloved", "Middlemarch"}
	records := make([]domain.EmbeddingRecord, len(vectors))
	for i, v := range vectors {
		records[i] = domain.EmbeddingRecord{ItemID: i, Title: titles[i%len(titles)], Embedding: v}
	}
	store, err := memstore.NewSnapshot(records, generation)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return &Snapshot{Store: store, Index: index.Fit(store)}
}

func wantKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

var errBoom = errors.New("boom")
