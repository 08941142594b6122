// Package artifact decodes precomputed embedding record sets.
//
// Three JSON layouts produced by dataframe exports are accepted:
//
//	columns: {"title": {"0": "Dune", ...}, "embedding": {"0": [0.1, ...], ...}}
//	records: [{"title": "Dune", "embedding": [0.1, ...]}, ...]
//	index:   {"0": {"title": "Dune", "embedding": [0.1, ...]}, ...}
//
// Rows keyed by index labels are ordered by the numeric value of the label.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"bookrec/internal/domain"
)

type row struct {
	Title     string    `json:"title"`
	Embedding []float32 `json:"embedding"`
}

// ReadFile decodes the record set stored at path.
func ReadFile(path string) ([]domain.EmbeddingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Decode reads one record set. Returned records are numbered from 0.
func Decode(r io.Reader) ([]domain.EmbeddingRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record set", domain.ErrInvalidArgument)
	}

	var rows []row
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("%w: records layout: %w", domain.ErrInvalidArgument, err)
		}
	case '{':
		rows, err = decodeObject(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: record set must be a JSON object or array", domain.ErrInvalidArgument)
	}

	records := make([]domain.EmbeddingRecord, len(rows))
	for i, r := range rows {
		if len(r.Embedding) == 0 {
			return nil, fmt.Errorf("%w: row %d has no embedding", domain.ErrInvalidArgument, i)
		}
		records[i] = domain.EmbeddingRecord{ItemID: i, Title: r.Title, Embedding: r.Embedding}
	}
	return records, nil
}

func decodeObject(data []byte) ([]row, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	titles, hasTitle := top["title"]
	embeddings, hasEmbedding := top["embedding"]
	if hasTitle && hasEmbedding && isObject(titles) {
		return decodeColumns(titles, embeddings)
	}
	return decodeIndex(top)
}

func decodeColumns(titlesRaw, embeddingsRaw json.RawMessage) ([]row, error) {
	var titles map[string]string
	if err := json.Unmarshal(titlesRaw, &titles); err != nil {
		return nil, fmt.Errorf("%w: title column: %w", domain.ErrInvalidArgument, err)
	}
	var embeddings map[string][]float32
	if err := json.Unmarshal(embeddingsRaw, &embeddings); err != nil {
		return nil, fmt.Errorf("%w: embedding column: %w", domain.ErrInvalidArgument, err)
	}
	if len(titles) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d titles but %d embeddings", domain.ErrInvalidArgument, len(titles), len(embeddings))
	}

	labels, err := sortedLabels(titles)
	if err != nil {
		return nil, err
	}

	rows := make([]row, len(labels))
	for i, label := range labels {
		emb, ok := embeddings[label]
		if !ok {
			return nil, fmt.Errorf("%w: row %q has a title but no embedding", domain.ErrInvalidArgument, label)
		}
		rows[i] = row{Title: titles[label], Embedding: emb}
	}
	return rows, nil
}

func decodeIndex(top map[string]json.RawMessage) ([]row, error) {
	labels, err := sortedLabels(top)
	if err != nil {
		return nil, err
	}

	rows := make([]row, len(labels))
	for i, label := range labels {
		if err := json.Unmarshal(top[label], &rows[i]); err != nil {
			return nil, fmt.Errorf("%w: row %q: %w", domain.ErrInvalidArgument, label, err)
		}
	}
	return rows, nil
}

// sortedLabels orders index labels numerically. Non-integer labels are
// rejected because positions must be reproducible.
func sortedLabels[V any](m map[string]V) ([]string, error) {
	type label struct {
		key string
		n   int
	}
	labels := make([]label, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: index label %q is not an integer", domain.ErrInvalidArgument, k)
		}
		labels = append(labels, label{key: k, n: n})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].n < labels[j].n })

	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.key
	}
	return out, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
