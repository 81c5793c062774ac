// Package vectorindex is an in-process cosine-similarity index over
// (id, vector) pairs. It is a rebuildable cache: durable storage remains the
// source of truth and Rebuild reloads the arena from it at startup.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// DefaultMinSimilarity excludes near-orthogonal results from searches.
const DefaultMinSimilarity = 0.1

// Entry is one (id, vector) pair.
type Entry struct {
	ID     string
	Vector []float32
}

// Match is one search result.
type Match struct {
	ID         string
	Similarity float64
}

// Source supplies the entries an index is rebuilt from, in insertion order.
type Source interface {
	LoadVectors(ctx context.Context) ([]Entry, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Entry, error)

// LoadVectors implements Source.
func (f SourceFunc) LoadVectors(ctx context.Context) ([]Entry, error) { return f(ctx) }

type slot struct {
	id     string
	vector []float32
	alive  bool
}

// Index holds vectors in an append-only arena. Removal tombstones a slot;
// the arena is compacted once tombstones outnumber live entries. Arena order
// is insertion order, which is the tie-break for equal similarities.
type Index struct {
	mu     sync.RWMutex
	minSim float64
	arena  []slot
	byID   map[string]int
	dead   int
}

// New creates an empty index. minSimilarity <= 0 selects DefaultMinSimilarity.
func New(minSimilarity float64) *Index {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &Index{
		minSim: minSimilarity,
		byID:   make(map[string]int),
	}
}

// Add inserts or replaces the vector for id. A replaced id keeps its original
// insertion rank.
func (x *Index) Add(id string, vector []float32) {
	v := make([]float32, len(vector))
	copy(v, vector)

	x.mu.Lock()
	defer x.mu.Unlock()

	if i, ok := x.byID[id]; ok {
		x.arena[i].vector = v
		return
	}
	x.byID[id] = len(x.arena)
	x.arena = append(x.arena, slot{id: id, vector: v, alive: true})
}

// Remove deletes id from the index and reports whether it was present.
func (x *Index) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	i, ok := x.byID[id]
	if !ok {
		return false
	}
	delete(x.byID, id)
	x.arena[i] = slot{}
	x.dead++

	if x.dead > len(x.byID) {
		x.compact()
	}
	return true
}

// compact drops tombstones. Caller holds the write lock.
func (x *Index) compact() {
	live := make([]slot, 0, len(x.byID))
	for _, s := range x.arena {
		if s.alive {
			x.byID[s.id] = len(live)
			live = append(live, s)
		}
	}
	x.arena = live
	x.dead = 0
}

// Len returns the number of live entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// Search returns up to k entries ranked by cosine similarity to query,
// excluding anything below the minimum similarity. Equal similarities keep
// insertion order.
func (x *Index) Search(query []float32, k int) []Match {
	if k <= 0 {
		return nil
	}

	x.mu.RLock()
	matches := make([]Match, 0, len(x.byID))
	for _, s := range x.arena {
		if !s.alive {
			continue
		}
		sim := CosineSimilarity(query, s.vector)
		if sim < x.minSim {
			continue
		}
		matches = append(matches, Match{ID: s.id, Similarity: sim})
	}
	x.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Rebuild replaces the index contents with the entries from src.
func (x *Index) Rebuild(ctx context.Context, src Source) error {
	entries, err := src.LoadVectors(ctx)
	if err != nil {
		return fmt.Errorf("vectorindex: rebuild: %w", err)
	}

	arena := make([]slot, 0, len(entries))
	byID := make(map[string]int, len(entries))
	for _, e := range entries {
		v := make([]float32, len(e.Vector))
		copy(v, e.Vector)
		if i, ok := byID[e.ID]; ok {
			arena[i].vector = v
			continue
		}
		byID[e.ID] = len(arena)
		arena = append(arena, slot{id: e.ID, vector: v, alive: true})
	}

	x.mu.Lock()
	x.arena = arena
	x.byID = byID
	x.dead = 0
	x.mu.Unlock()
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, clamped
// to [-1, 1]. Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}
