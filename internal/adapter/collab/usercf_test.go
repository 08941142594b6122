package collab

import (
	"context"
	"errors"
	"math"
	"testing"

	"bookrec/internal/domain"
)

func testInteractions() []domain.Interaction {
	return []domain.Interaction{
		{UserID: 1, ItemID: 10, Rating: 1},
		{UserID: 1, ItemID: 11, Rating: 1},
		{UserID: 2, ItemID: 10, Rating: 1},
		{UserID: 2, ItemID: 11, Rating: 1},
		{UserID: 2, ItemID: 12, Rating: 1},
		{UserID: 3, ItemID: 10, Rating: 1},
		{UserID: 3, ItemID: 13, Rating: 1},
		{UserID: 4, ItemID: 20, Rating: 1},
	}
}

func itemIDs(items []domain.ScoredItem) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}

func TestTopMNeighborsK(t *testing.T) {
	model := NewUserCF(testInteractions(), Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		user int
		k, m int
		want []int
	}{
		{"all neighbours", 1, 200, 20, []int{12, 13}},
		{"nearest neighbour only", 1, 1, 20, []int{12}},
		{"truncated to m", 1, 200, 1, []int{12}},
		{"no overlapping users", 4, 200, 20, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.TopMNeighborsK(ctx, tt.user, tt.k, tt.m)
			if err != nil {
				t.Fatal(err)
			}
			ids := itemIDs(got)
			if len(ids) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ids)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, ids)
					break
				}
			}
		})
	}
}

func TestTopMNeighborsK_Scores(t *testing.T) {
	model := NewUserCF(testInteractions(), Options{})

	got, err := model.TopMNeighborsK(context.Background(), 1, 200, 20)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2 / math.Sqrt(6), 0.5}
	for i, w := range want {
		if math.Abs(got[i].Score-w) > 1e-9 {
			t.Errorf("score[%d] = %v, want %v", i, got[i].Score, w)
		}
	}
}

func TestTopMNeighborsK_Options(t *testing.T) {
	ctx := context.Background()

	strict := NewUserCF(testInteractions(), Options{MinSimilarity: 0.6})
	got, _ := strict.TopMNeighborsK(ctx, 1, 200, 20)
	if len(got) != 1 || got[0].ItemID != 12 {
		t.Errorf("expected only item 12 above the similarity floor, got %v", got)
	}

	shrunk := NewUserCF(testInteractions(), Options{Shrinkage: 1})
	got, _ = shrunk.TopMNeighborsK(ctx, 1, 200, 20)
	if len(got) != 2 || math.Abs(got[1].Score-0.25) > 1e-9 {
		t.Errorf("expected shrunk score 0.25 for item 13, got %v", got)
	}
}

func TestTopMNeighborsK_TiesBreakOnID(t *testing.T) {
	model := NewUserCF([]domain.Interaction{
		{UserID: 5, ItemID: 30, Rating: 1},
		{UserID: 7, ItemID: 30, Rating: 1},
		{UserID: 7, ItemID: 32, Rating: 1},
		{UserID: 6, ItemID: 30, Rating: 1},
		{UserID: 6, ItemID: 31, Rating: 1},
	}, Options{})

	for i := 0; i < 5; i++ {
		got, err := model.TopMNeighborsK(context.Background(), 5, 200, 20)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].ItemID != 31 || got[1].ItemID != 32 {
			t.Fatalf("expected [31 32], got %v", itemIDs(got))
		}
	}
}

func TestTopMNeighborsK_Errors(t *testing.T) {
	model := NewUserCF(testInteractions(), Options{})
	ctx := context.Background()

	if _, err := model.TopMNeighborsK(ctx, 99, 200, 20); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, err := model.TopMNeighborsK(ctx, 1, 0, 20); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for k=0, got %v", err)
	}
	if _, err := model.TopMNeighborsK(ctx, 1, 200, -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for m<0, got %v", err)
	}
}

func TestNewUserCF_DuplicateKeepsHighest(t *testing.T) {
	model := NewUserCF([]domain.Interaction{
		{UserID: 1, ItemID: 1, Rating: 2},
		{UserID: 1, ItemID: 1, Rating: 5},
		{UserID: 1, ItemID: 1, Rating: 3},
	}, Options{})
	if got := model.users[1].ratings[1]; got != 5 {
		t.Errorf("expected rating 5, got %v", got)
	}
	if model.Users() != 1 {
		t.Errorf("expected 1 user, got %d", model.Users())
	}
}

func TestTopMNeighborsK_RepeatedCallsBitIdentical(t *testing.T) {
	var interactions []domain.Interaction
	for user := 0; user < 30; user++ {
		for item := 100; item < 140; item++ {
			if (user*7+item)%3 == 0 {
				continue
			}
			// mixed magnitudes make the float sums order-sensitive
			rating := float64((user*13+item*7)%11) * math.Pow(10, float64((user+item)%5-2))
			interactions = append(interactions, domain.Interaction{UserID: user, ItemID: item, Rating: rating + 0.1})
		}
	}
	model := NewUserCF(interactions, Options{Shrinkage: 3})
	ctx := context.Background()

	first, err := model.TopMNeighborsK(ctx, 0, 200, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 {
		t.Fatal("expected recommendations for user 0")
	}
	for run := 0; run < 200; run++ {
		got, err := model.TopMNeighborsK(ctx, 0, 200, 20)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(first) {
			t.Fatalf("run %d: expected %d items, got %d", run, len(first), len(got))
		}
		for i := range got {
			if got[i].ItemID != first[i].ItemID || math.Float64bits(got[i].Score) != math.Float64bits(first[i].Score) {
				t.Fatalf("run %d pos %d: %+v differs from %+v", run, i, got[i], first[i])
			}
		}
	}
}
