package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookrec/internal/domain"
)

func TestDecode_Layouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "columns",
			input: `{"title": {"1": "Emma", "0": "Dune", "10": "Ulysses"}, "embedding": {"0": [0, 0], "1": [1, 0], "10": [5, 5]}}`,
		},
		{
			name:  "records",
			input: `[{"title": "Dune", "embedding": [0, 0]}, {"title": "Emma", "embedding": [1, 0]}, {"title": "Ulysses", "embedding": [5, 5]}]`,
		},
		{
			name:  "index",
			input: `{"2": {"title": "Ulysses", "embedding": [5, 5]}, "0": {"title": "Dune", "embedding": [0, 0]}, "1": {"title": "Emma", "embedding": [1, 0]}}`,
		},
	}

	wantTitles := []string{"Dune", "Emma", "Ulysses"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Decode(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(recs) != len(wantTitles) {
				t.Fatalf("expected %d records, got %d", len(wantTitles), len(recs))
			}
			for i, rec := range recs {
				if rec.ItemID != i {
					t.Errorf("record %d has item id %d", i, rec.ItemID)
				}
				if rec.Title != wantTitles[i] {
					t.Errorf("record %d: expected %q, got %q", i, wantTitles[i], rec.Title)
				}
			}
			if recs[2].Embedding[0] != 5 {
				t.Errorf("expected embedding [5 5] for Ulysses, got %v", recs[2].Embedding)
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"scalar", `42`},
		{"non integer label", `{"title": {"a": "Dune"}, "embedding": {"a": [1]}}`},
		{"missing embedding", `{"title": {"0": "Dune", "1": "Emma"}, "embedding": {"0": [1], "2": [1]}}`},
		{"column length mismatch", `{"title": {"0": "Dune"}, "embedding": {"0": [1], "1": [2]}}`},
		{"empty embedding", `[{"title": "Dune", "embedding": []}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bert-embeddings.json")
	if err := os.WriteFile(path, []byte(`[{"title": "Dune", "embedding": [0.25, 0.5]}]`), 0644); err != nil {
		t.Fatal(err)
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Embedding[1] != 0.5 {
		t.Errorf("unexpected records: %+v", recs)
	}
}
