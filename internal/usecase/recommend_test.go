package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"bookrec/internal/domain"
	"bookrec/internal/port"
)

func newTestRecommender(snap *Snapshot, enc port.TextEncoder, collab port.CollaborativeRecommender, topK int) *Recommender {
	var cl Loader[port.CollaborativeRecommender]
	if collab != nil {
		cl = Ready(collab)
	}
	return NewRecommender(NewQueryEncoder(enc, 0), Ready(snap), cl, RecommenderConfig{TopK: topK}, zerolog.Nop())
}

func itemIDsOf(res domain.RecommendationResult) []string {
	ids := make([]string, len(res))
	for i, r := range res {
		ids[i] = r.ItemID
	}
	return ids
}

func TestRecommendText_NearestFirst(t *testing.T) {
	enc := &recordingEncoder{vec: []float32{0, 0}}
	rec := newTestRecommender(threeItems(t), enc, nil, 2)

	res, err := rec.RecommendText(context.Background(), "desert planet", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := domain.RecommendationResult{
		{Rank: 0, Title: "Dune", Score: 0, ItemID: "0"},
		{Rank: 1, Title: "Emma", Score: 1, ItemID: "1"},
	}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("expected %+v, got %+v", want, res)
	}
}

func TestRecommendText_Idempotent(t *testing.T) {
	enc := &recordingEncoder{vec: []float32{0.3, 0.7}}
	rec := newTestRecommender(threeItems(t), enc, nil, 3)

	first, err := rec.RecommendText(context.Background(), "q", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := rec.RecommendText(context.Background(), "q", 0)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestRecommendText_Errors(t *testing.T) {
	ctx := context.Background()

	rec := newTestRecommender(threeItems(t), &recordingEncoder{vec: []float32{0, 0}}, nil, 5)
	_, err := rec.RecommendText(ctx, "q", 4)
	wantKind(t, err, domain.KindInvalidArgument)

	rec = newTestRecommender(threeItems(t), &recordingEncoder{vec: []float32{0, 0, 0}}, nil, 2)
	_, err = rec.RecommendText(ctx, "q", 0)
	wantKind(t, err, domain.KindInvalidState)

	rec = newTestRecommender(snapshotOf(t, 1, nil), &recordingEncoder{vec: []float32{0, 0}}, nil, 2)
	_, err = rec.RecommendText(ctx, "q", 0)
	wantKind(t, err, domain.KindInvalidState)

	rec = newTestRecommender(threeItems(t), &recordingEncoder{err: errBoom}, nil, 2)
	_, err = rec.RecommendText(ctx, "q", 0)
	wantKind(t, err, domain.KindUpstream)
}

func TestRecommendFromLibrary_ExcludesSelf(t *testing.T) {
	rec := newTestRecommender(threeItems(t), nil, nil, 2)

	res, err := rec.RecommendFromLibrary(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := domain.RecommendationResult{{Rank: 0, Title: "Emma", Score: 1, ItemID: "1"}}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("expected %+v, got %+v", want, res)
	}
}

func TestRecommendFromLibrary_ReturnsKMinusOne(t *testing.T) {
	vectors := make([][]float32, 20)
	for i := range vectors {
		vectors[i] = []float32{float32(i * i), float32(i % 3)}
	}
	rec := newTestRecommender(snapshotOf(t, 1, vectors), nil, nil, 5)

	for id := 0; id < len(vectors); id++ {
		for _, k := range []int{1, 5, 20} {
			res, err := rec.RecommendFromLibrary(context.Background(), id, k)
			if err != nil {
				t.Fatal(err)
			}
			if len(res) != k-1 {
				t.Fatalf("item %d, k=%d: expected %d results, got %d", id, k, k-1, len(res))
			}
			for i, r := range res {
				if r.Rank != i {
					t.Errorf("item %d: entry %d has rank %d", id, i, r.Rank)
				}
				if r.ItemID == fmt.Sprint(id) {
					t.Errorf("item %d recommended itself", id)
				}
			}
		}
	}
}

func TestRecommendFromLibrary_UnknownItem(t *testing.T) {
	rec := newTestRecommender(threeItems(t), nil, nil, 2)
	_, err := rec.RecommendFromLibrary(context.Background(), 3, 0)
	wantKind(t, err, domain.KindNotFound)
}

func TestRecommend_StaleIndex(t *testing.T) {
	fresh := threeItems(t)
	old := snapshotOf(t, 0, [][]float32{{0, 0}, {1, 0}, {5, 5}})
	stale := &Snapshot{Store: fresh.Store, Index: old.Index}

	rec := newTestRecommender(stale, nil, nil, 2)
	_, err := rec.RecommendFromLibrary(context.Background(), 0, 0)
	wantKind(t, err, domain.KindInvalidState)
}

func TestRecommend_SnapshotLoadFailure(t *testing.T) {
	snaps := NewLazy(func(context.Context) (*Snapshot, error) {
		return nil, fmt.Errorf("%w: store missing", domain.ErrInvalidState)
	})
	rec := NewRecommender(NewQueryEncoder(nil, 0), snaps, nil, RecommenderConfig{}, zerolog.Nop())

	_, err := rec.RecommendFromLibrary(context.Background(), 0, 0)
	wantKind(t, err, domain.KindInvalidState)
}

func TestRecommendUser(t *testing.T) {
	collab := &stubCollaborative{items: []domain.ScoredItem{
		{ItemID: 42, Score: 9}, {ItemID: 3, Score: 7}, {ItemID: 17, Score: 7},
		{ItemID: 8, Score: 2}, {ItemID: 100, Score: 0.5},
	}}
	rec := newTestRecommender(threeItems(t), nil, collab, 5)

	res, err := rec.RecommendUser(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(collab.calls, [][3]int{{7, 200, 20}}) {
		t.Errorf("expected one call with (7, 200, 20), got %v", collab.calls)
	}
	if got := itemIDsOf(res); !reflect.DeepEqual(got, []string{"42", "3", "17", "8", "100"}) {
		t.Errorf("expected model order, got %v", got)
	}
	for i, r := range res {
		if r.Title != r.ItemID || r.Rank != i {
			t.Errorf("entry %d: unexpected %+v", i, r)
		}
	}
}

func TestRecommendUser_Errors(t *testing.T) {
	ctx := context.Background()

	notFound := fmt.Errorf("%w: unknown user 7", domain.ErrNotFound)
	rec := newTestRecommender(threeItems(t), nil, &stubCollaborative{err: notFound}, 5)
	_, err := rec.RecommendUser(ctx, 7)
	if !errors.Is(err, notFound) {
		t.Errorf("expected NotFound surfaced as-is, got %v", err)
	}
	wantKind(t, err, domain.KindNotFound)

	rec = newTestRecommender(threeItems(t), nil, &stubCollaborative{err: errBoom}, 5)
	_, err = rec.RecommendUser(ctx, 7)
	wantKind(t, err, domain.KindUpstream)
	if !errors.Is(err, errBoom) {
		t.Errorf("expected cause to stay reachable, got %v", err)
	}

	rec = newTestRecommender(threeItems(t), nil, nil, 5)
	_, err = rec.RecommendUser(ctx, 7)
	wantKind(t, err, domain.KindInvalidState)
}
