// Package local provides an in-memory exact-search semantic store.
//
// Similarity search is brute-force cosine over the filtered candidate set.
// Volumes on a single-user device are thousands of records, not millions,
// so exact top-k beats an approximate index here and keeps ordering
// testable. Vectors are unit-normalized at insert, reducing cosine
// similarity to a dot product.
package local

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hearthware/aura/memory"
)

// Store is the in-memory exact semantic store.
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]*memory.Record
	nextSeq   uint64
}

// New creates a store with the given fixed vector dimension.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		records:   make(map[string]*memory.Record),
	}
}

// Insert adds a record, normalizing its vector and assigning Seq.
func (s *Store) Insert(ctx context.Context, rec *memory.Record) error {
	if len(rec.Vector) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", memory.ErrDimensionMismatch, s.dimension, len(rec.Vector))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := rec.Clone()
	normalize(stored.Vector)
	s.nextSeq++
	stored.Seq = s.nextSeq
	rec.Seq = s.nextSeq
	s.records[stored.ID] = stored
	return nil
}

// Restore inserts a record reloaded from persistence, keeping its Seq and
// assuming its vector is already normalized.
func (s *Store) Restore(ctx context.Context, rec *memory.Record) error {
	if len(rec.Vector) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", memory.ErrDimensionMismatch, s.dimension, len(rec.Vector))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec.Clone()
	if rec.Seq > s.nextSeq {
		s.nextSeq = rec.Seq
	}
	return nil
}

// Get returns a clone of the record, or false when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*memory.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Search returns up to k records matching filter, ranked by dot-product
// cosine similarity descending. Empty stores and empty filtered sets
// yield an empty result.
func (s *Store) Search(ctx context.Context, vector []float32, k int, filter memory.Filter) ([]memory.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", memory.ErrDimensionMismatch, s.dimension, len(vector))
	}
	if k <= 0 {
		return nil, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]memory.SearchResult, 0, len(s.records))
	for _, rec := range s.records {
		if !filter.Matches(rec) {
			continue
		}
		results = append(results, memory.SearchResult{
			Record: rec,
			Score:  dot(query, rec.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Record.LastAccessed.Equal(results[j].Record.LastAccessed) {
			return results[i].Record.LastAccessed.After(results[j].Record.LastAccessed)
		}
		return results[i].Record.Seq < results[j].Record.Seq
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]memory.SearchResult, k)
	for i := 0; i < k; i++ {
		out[i] = memory.SearchResult{Record: results[i].Record.Clone(), Score: results[i].Score}
	}
	return out, nil
}

// Delete removes a record. Missing ids are a no-op so eviction stays
// idempotent under races.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// UpdateMetadata updates the mutable metadata in place. The vector is
// immutable post-insert and is never touched.
func (s *Store) UpdateMetadata(ctx context.Context, id string, importance float64, accessCount int, lastAccessed, decayedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	rec.Importance = importance
	rec.AccessCount = accessCount
	rec.LastAccessed = lastAccessed
	rec.DecayedAt = decayedAt
	return nil
}

// UpdateTier moves a record between tiers.
func (s *Store) UpdateTier(ctx context.Context, id string, tier memory.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	rec.Tier = tier
	return nil
}

// List returns clones of all records matching filter, in Seq order.
func (s *Store) List(ctx context.Context, filter memory.Filter) ([]*memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*memory.Record, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Count returns the number of records in a tier ("" counts all).
func (s *Store) Count(ctx context.Context, tier memory.Tier) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tier == "" {
		return len(s.records), nil
	}
	n := 0
	for _, rec := range s.records {
		if rec.Tier == tier {
			n++
		}
	}
	return n, nil
}

// Dimension returns the fixed vector dimension.
func (s *Store) Dimension() int {
	return s.dimension
}

// Close is a no-op; everything lives in memory.
func (s *Store) Close() error {
	return nil
}

// normalize scales vec to unit length in place.
func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := 1 / math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) * inv)
	}
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
