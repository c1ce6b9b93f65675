package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// ShortlistSize is the number of top candidates considered before the final
// collection is chosen. The shortlist/refine split exists so a secondary
// ranking policy can be layered on the shortlist without re-querying the
// full catalog.
const ShortlistSize = 3

// CollectionRef identifies one catalog collection during selection.
// The slice passed to Select must be in catalog insertion order — ties are
// broken by that order so repeated identical queries stay reproducible.
type CollectionRef struct {
	// ID is the catalog identifier of the collection.
	ID string
	// Name is the vector store collection name.
	Name string
}

// Candidate is a transient {collection, score} pair produced during selection.
type Candidate struct {
	// CollectionID is the catalog identifier of the candidate collection.
	CollectionID string
	// CollectionName is the vector store collection name.
	CollectionName string
	// Score is the best similarity hit found inside the collection.
	Score float32
}

// Refiner picks the final collection from a non-empty shortlist of the
// highest-scoring candidates, ordered best-first.
type Refiner interface {
	// Refine returns exactly one candidate from the shortlist.
	Refine(shortlist []Candidate) Candidate
}

// topScoreRefiner picks the head of the shortlist — the highest-scoring
// candidate, with ties already broken by catalog insertion order.
type topScoreRefiner struct{}

func (topScoreRefiner) Refine(shortlist []Candidate) Candidate { return shortlist[0] }

// Selector ranks all known collections against a query embedding and picks
// exactly one. Each collection is probed for its single best hit; the probe
// scores are ranked, shortlisted, and handed to the Refiner.
type Selector struct {
	// store performs the per-collection similarity probes.
	store VectorStore

	// refiner picks the final collection from the shortlist.
	refiner Refiner
}

// NewSelector constructs a Selector over the given store. A nil refiner
// selects the highest-scoring shortlist candidate.
func NewSelector(store VectorStore, refiner Refiner) (*Selector, error) {
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if refiner == nil {
		refiner = topScoreRefiner{}
	}
	return &Selector{store: store, refiner: refiner}, nil
}

// Select probes every collection for its best hit against queryEmbedding,
// ranks the results, and returns the refined choice. collections must be in
// catalog insertion order. Returns ErrNoCollections when the slice is empty.
func (s *Selector) Select(ctx context.Context, queryEmbedding []float32, collections []CollectionRef) (Candidate, error) {
	if len(collections) == 0 {
		return Candidate{}, ErrNoCollections
	}

	candidates := make([]Candidate, 0, len(collections))
	for _, ref := range collections {
		hits, err := s.store.Search(ctx, ref.Name, queryEmbedding, 1)
		if err != nil {
			return Candidate{}, fmt.Errorf("rag: probing collection %q: %w", ref.Name, err)
		}

		// A collection with no indexed points still belongs to the ranking,
		// just at the bottom.
		score := float32(math.Inf(-1))
		if len(hits) > 0 {
			score = hits[0].Score
		}
		candidates = append(candidates, Candidate{
			CollectionID:   ref.ID,
			CollectionName: ref.Name,
			Score:          score,
		})
	}

	// Stable sort keeps catalog insertion order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	n := ShortlistSize
	if n > len(candidates) {
		n = len(candidates)
	}
	return s.refiner.Refine(candidates[:n]), nil
}
