package collab

import (
	"context"
	"fmt"
	"math"
	"slices"

	"bookrec/internal/domain"
	"bookrec/internal/port"
)

// Options tunes the neighbour model.
type Options struct {
	// MinSimilarity drops neighbours below this cosine similarity.
	MinSimilarity float64

	// Shrinkage damps similarities backed by few co-rated items:
	// sim * n / (n + shrinkage).
	Shrinkage float64
}

type neighbor struct {
	userID     int
	similarity float64
}

// profile is one user's ratings with item ids in ascending order. Every
// floating-point sum walks items in this order so repeated queries give
// bit-identical scores.
type profile struct {
	items   []int
	ratings map[int]float64
	norm    float64
}

// UserCF is a user-based k-nearest-neighbour recommender. It is immutable once
// built and safe for concurrent queries.
type UserCF struct {
	opts Options

	users     map[int]*profile
	itemUsers map[int][]int
}

// NewUserCF builds the model from raw interactions. Duplicate (user, item)
// pairs keep the highest rating.
func NewUserCF(interactions []domain.Interaction, opts Options) *UserCF {
	u := &UserCF{
		opts:      opts,
		users:     make(map[int]*profile),
		itemUsers: make(map[int][]int),
	}

	for _, in := range interactions {
		p := u.users[in.UserID]
		if p == nil {
			p = &profile{ratings: make(map[int]float64)}
			u.users[in.UserID] = p
		}
		if r, ok := p.ratings[in.ItemID]; !ok || in.Rating > r {
			p.ratings[in.ItemID] = in.Rating
		}
	}

	for userID, p := range u.users {
		p.items = make([]int, 0, len(p.ratings))
		for itemID := range p.ratings {
			p.items = append(p.items, itemID)
		}
		slices.Sort(p.items)

		var sq float64
		for _, itemID := range p.items {
			r := p.ratings[itemID]
			sq += r * r
			u.itemUsers[itemID] = append(u.itemUsers[itemID], userID)
		}
		p.norm = math.Sqrt(sq)
	}
	for _, users := range u.itemUsers {
		slices.Sort(users)
	}
	return u
}

// LoadUserCF trains a model from everything in the interaction store.
func LoadUserCF(ctx context.Context, store port.InteractionStore, opts Options) (*UserCF, error) {
	interactions, err := store.ListInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return NewUserCF(interactions, opts), nil
}

// Users returns the number of distinct users the model knows.
func (u *UserCF) Users() int {
	return len(u.users)
}

// TopMNeighborsK scores items the user has not interacted with by summing
// similarity * rating over the user's k most similar neighbours, and returns
// the m best. Ties break on the lower item id.
func (u *UserCF) TopMNeighborsK(ctx context.Context, userContext, k, m int) ([]domain.ScoredItem, error) {
	if k <= 0 || m <= 0 {
		return nil, fmt.Errorf("%w: k and m must be positive, got k=%d m=%d", domain.ErrInvalidArgument, k, m)
	}
	target, ok := u.users[userContext]
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %d", domain.ErrNotFound, userContext)
	}

	neighbors := u.neighbors(userContext, target, k)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(map[int]float64)
	for _, n := range neighbors {
		other := u.users[n.userID]
		for _, itemID := range other.items {
			if _, seen := target.ratings[itemID]; seen {
				continue
			}
			scores[itemID] += n.similarity * other.ratings[itemID]
		}
	}

	out := make([]domain.ScoredItem, 0, len(scores))
	for itemID, s := range scores {
		out = append(out, domain.ScoredItem{ItemID: itemID, Score: s})
	}
	slices.SortFunc(out, func(a, b domain.ScoredItem) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return a.ItemID - b.ItemID
	})
	if len(out) > m {
		out = out[:m]
	}
	return out, nil
}

// neighbors returns the k users most similar to userID. Only users sharing at
// least one item can have a non-zero cosine, so candidates come from the
// item index rather than a scan over every user.
func (u *UserCF) neighbors(userID int, target *profile, k int) []neighbor {
	dots := make(map[int]float64)
	common := make(map[int]int)
	for _, itemID := range target.items {
		r := target.ratings[itemID]
		for _, other := range u.itemUsers[itemID] {
			if other == userID {
				continue
			}
			dots[other] += r * u.users[other].ratings[itemID]
			common[other]++
		}
	}

	out := make([]neighbor, 0, len(dots))
	for other, dot := range dots {
		otherNorm := u.users[other].norm
		if target.norm == 0 || otherNorm == 0 {
			continue
		}
		sim := dot / (target.norm * otherNorm)
		if u.opts.Shrinkage > 0 {
			n := float64(common[other])
			sim = sim * n / (n + u.opts.Shrinkage)
		}
		if sim <= 0 || sim < u.opts.MinSimilarity {
			continue
		}
		out = append(out, neighbor{userID: other, similarity: sim})
	}

	slices.SortFunc(out, func(a, b neighbor) int {
		if a.similarity != b.similarity {
			if a.similarity > b.similarity {
				return -1
			}
			return 1
		}
		return a.userID - b.userID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
