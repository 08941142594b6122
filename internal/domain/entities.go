package domain

import "strconv"

// EmbeddingRecord is one item of the embedding store. ItemID is the record's
// position in the store snapshot.
type EmbeddingRecord struct {
	ItemID    int
	Title     string
	Embedding []float32
}

// QueryMode selects how a query is turned into a vector.
type QueryMode int

const (
	// ModeText encodes free text with the configured text encoder.
	ModeText QueryMode = iota
	// ModeLookup reuses the stored embedding of an existing item.
	ModeLookup
	// ModeCollaborative bypasses encoding entirely.
	ModeCollaborative
)

func (m QueryMode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeLookup:
		return "lookup"
	case ModeCollaborative:
		return "collaborative"
	default:
		return "unknown"
	}
}

type Query struct {
	Mode   QueryMode
	Text   string
	ItemID int
}

// Neighbor is a single k-NN hit: a store position and its distance to the query.
type Neighbor struct {
	ItemID   int
	Distance float64
}

// ScoredItem is a collaborative hit. Higher scores are more relevant.
type ScoredItem struct {
	ItemID int
	Score  float64
}

// Recommendation is one entry of a ranked answer. Rank is the 0-based
// position inside the final, compacted list.
type Recommendation struct {
	Rank   int     `json:"rank"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
	ItemID string  `json:"item_id"`
}

// RecommendationResult is an ordered answer; Rank always equals the slice index.
type RecommendationResult []Recommendation

// Interaction is a user-item signal used by the collaborative model.
type Interaction struct {
	UserID int     `json:"user_id"`
	ItemID int     `json:"item_id"`
	Rating float64 `json:"rating"`
}

// FormatItemID renders an item position the way it appears on the wire.
func FormatItemID(id int) string {
	return strconv.Itoa(id)
}
