package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/memory/store/local"
)

// stubEmbedder returns canned vectors per text so tests control similarity
// exactly. Unknown texts get a fixed fallback direction.
type stubEmbedder struct {
	dims    int
	vectors map[string][]float32
	err     error
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims, vectors: make(map[string][]float32)}
}

func (s *stubEmbedder) set(text string, components ...float32) {
	vec := make([]float32, s.dims)
	copy(vec, components)
	s.vectors[text] = vec
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	out := make([]float32, s.dims)
	out[s.dims-1] = 1
	return out, nil
}

func (s *stubEmbedder) Dimensions() int {
	return s.dims
}

// fixedClock is an adjustable time source for decay tests.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, cfg *memory.Config, opts ...memory.Option) (*memory.Manager, *stubEmbedder) {
	t.Helper()

	embedder := newStubEmbedder(8)
	manager, err := memory.NewManager(local.New(8), embedder, cfg, opts...)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager, embedder
}

func TestManager_RecordTurnStoresShortTerm(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t, nil)

	rec, err := manager.RecordTurn(ctx, "what's the weather like", "It's sunny.")
	if err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}
	if rec.ID == "" {
		t.Error("Expected record to get an ID")
	}
	if rec.Tier != memory.TierShortTerm {
		t.Errorf("Expected short_term tier, got %s", rec.Tier)
	}
	if rec.Importance <= 0 || rec.Importance > 1 {
		t.Errorf("Importance out of range: %f", rec.Importance)
	}

	stats, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.ShortTerm != 1 {
		t.Errorf("Expected 1 short_term record, got %d", stats.ShortTerm)
	}
}

func TestManager_DimensionMismatchAtConstruction(t *testing.T) {
	_, err := memory.NewManager(local.New(4), newStubEmbedder(8), nil)
	if !errors.Is(err, memory.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestManager_ShortTermCapacityNeverExceeded(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t, &memory.Config{
		ShortTermCapacity: 1,
		LongTermCapacity:  10,
		PromoteThreshold:  0.99,
		StabilityHours:    24,
		BaseImportance:    0.5,
	})

	// Salience marker pushes A above the plain baseline of B.
	recA, err := manager.RecordTurn(ctx, "Remember my name is Ada", "Nice to meet you, Ada.")
	if err != nil {
		t.Fatalf("Failed to record turn A: %v", err)
	}
	if _, err := manager.RecordTurn(ctx, "hello there", "Hi!"); err != nil {
		t.Fatalf("Failed to record turn B: %v", err)
	}

	stats, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.ShortTerm != 1 {
		t.Fatalf("Capacity exceeded: expected 1 short_term record, got %d", stats.ShortTerm)
	}

	// B had the lower importance, so A must be the survivor.
	results, err := manager.Recall(ctx, "Remember my name is Ada", 5)
	if err != nil {
		t.Fatalf("Failed to recall: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != recA.ID {
		t.Errorf("Expected the higher-importance record to survive eviction")
	}
}

func TestManager_EvictionOrderIsDeterministic(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	manager, embedder := newTestManager(t, &memory.Config{
		ShortTermCapacity: 2,
		LongTermCapacity:  10,
		PromoteThreshold:  0.99,
		StabilityHours:    24,
		BaseImportance:    0.5,
	}, memory.WithClock(clock.Now))

	// Same importance, same timestamps: insertion order is the only
	// tie-break left. The earliest record loses.
	var ids []string
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("note %d", i)
		axis := make([]float32, i+1)
		axis[i] = 1
		embedder.set(text+"\nOkay.", axis...)

		rec, err := manager.RecordTurn(ctx, text, "Okay.")
		if err != nil {
			t.Fatalf("Failed to record turn %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
	}

	stats, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.ShortTerm != 2 {
		t.Fatalf("Expected 2 short_term records, got %d", stats.ShortTerm)
	}

	results, err := manager.Recall(ctx, "note", 5)
	if err != nil {
		t.Fatalf("Failed to recall: %v", err)
	}
	for _, res := range results {
		if res.Record.ID == ids[0] {
			t.Errorf("Expected the oldest record to be the deterministic eviction victim")
		}
	}
}

func TestManager_ConsolidateDecaysAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	manager, _ := newTestManager(t, &memory.Config{
		ShortTermCapacity: 10,
		LongTermCapacity:  10,
		PromoteThreshold:  0.99,
		StabilityHours:    24,
		BaseImportance:    0.5,
	}, memory.WithClock(clock.Now))

	if _, err := manager.RecordTurn(ctx, "hello there", "Hi!"); err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}

	before, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	clock.Advance(12 * time.Hour)
	res, err := manager.Consolidate(ctx)
	if err != nil {
		t.Fatalf("Failed to consolidate: %v", err)
	}
	if res.Decayed != 1 {
		t.Errorf("Expected 1 decayed record, got %d", res.Decayed)
	}

	after, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if after.MeanImportance >= before.MeanImportance {
		t.Errorf("Expected importance to decay: before %f, after %f", before.MeanImportance, after.MeanImportance)
	}

	// A second pass with no elapsed time must change nothing.
	res2, err := manager.Consolidate(ctx)
	if err != nil {
		t.Fatalf("Failed to consolidate twice: %v", err)
	}
	if res2.Decayed != 0 {
		t.Errorf("Expected back-to-back consolidation to be a no-op, decayed %d", res2.Decayed)
	}
	again, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if again.MeanImportance != after.MeanImportance {
		t.Errorf("Importance changed on idempotent pass: %f vs %f", again.MeanImportance, after.MeanImportance)
	}
}

func TestManager_ConsolidatePromotesImportantRecords(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	manager, embedder := newTestManager(t, &memory.Config{
		ShortTermCapacity: 10,
		LongTermCapacity:  10,
		PromoteThreshold:  0.65,
		StabilityHours:    24,
		BaseImportance:    0.5,
	}, memory.WithClock(clock.Now))

	embedder.set("No, actually remember that I live in Lisbon\nGot it, Lisbon.", 1)
	embedder.set("hello there\nHi!", 0, 1)

	// Correction plus salience marker scores well above the threshold.
	if _, err := manager.RecordTurn(ctx, "No, actually remember that I live in Lisbon", "Got it, Lisbon."); err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}
	if _, err := manager.RecordTurn(ctx, "hello there", "Hi!"); err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}

	clock.Advance(30 * time.Minute)
	res, err := manager.Consolidate(ctx)
	if err != nil {
		t.Fatalf("Failed to consolidate: %v", err)
	}
	if res.Promoted != 1 {
		t.Fatalf("Expected 1 promotion, got %d", res.Promoted)
	}

	stats, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.LongTerm != 1 || stats.ShortTerm != 1 {
		t.Errorf("Expected 1 long_term and 1 short_term record, got %d/%d", stats.LongTerm, stats.ShortTerm)
	}
}

func TestManager_RecallRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	manager, embedder := newTestManager(t, &memory.Config{
		ShortTermCapacity: 10,
		LongTermCapacity:  10,
		PromoteThreshold:  0.99,
		MinSimilarity:     0.25,
		StabilityHours:    24,
		BaseImportance:    0.5,
	})

	embedder.set("I take my coffee black", 1, 0, 0)
	embedder.set("the printer is out of paper", 0, 1, 0)
	embedder.set("how do I like my coffee", 1, 0, 0)

	if _, err := manager.RecordTurn(ctx, "I take my coffee black", ""); err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}
	if _, err := manager.RecordTurn(ctx, "the printer is out of paper", ""); err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}

	results, err := manager.Recall(ctx, "how do I like my coffee", 5)
	if err != nil {
		t.Fatalf("Failed to recall: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result above the similarity floor, got %d", len(results))
	}
	if results[0].Record.Text != "I take my coffee black" {
		t.Errorf("Recalled the wrong record: %q", results[0].Record.Text)
	}
	if results[0].Score < 0.99 {
		t.Errorf("Expected near-exact similarity, got %f", results[0].Score)
	}
	if results[0].Record.AccessCount != 1 {
		t.Errorf("Expected access boost, got count %d", results[0].Record.AccessCount)
	}
}

// promotingStore moves a record to long_term right after serving a
// search, standing in for a consolidation pass racing a recall.
type promotingStore struct {
	memory.Store
	promote string
}

func (s *promotingStore) Search(ctx context.Context, vector []float32, k int, filter memory.Filter) ([]memory.SearchResult, error) {
	results, err := s.Store.Search(ctx, vector, k, filter)
	if err == nil && s.promote != "" {
		if uerr := s.Store.UpdateTier(ctx, s.promote, memory.TierLongTerm); uerr != nil {
			return nil, uerr
		}
		s.promote = ""
	}
	return results, err
}

func TestManager_RecallDoesNotDoubleCountPromotions(t *testing.T) {
	ctx := context.Background()
	embedder := newStubEmbedder(8)
	store := &promotingStore{Store: local.New(8)}
	manager, err := memory.NewManager(store, embedder, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	embedder.set("my dog is named biscuit", 1)
	rec, err := manager.RecordTurn(ctx, "my dog is named biscuit", "")
	if err != nil {
		t.Fatalf("Failed to record turn: %v", err)
	}
	store.promote = rec.ID

	// The record changes tier while the recall is in flight. It must
	// still appear exactly once in the results.
	results, err := manager.Recall(ctx, "my dog is named biscuit", 5)
	if err != nil {
		t.Fatalf("Failed to recall: %v", err)
	}
	seen := 0
	for _, res := range results {
		if res.Record.ID == rec.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("Expected the record once, saw it %d times in %d results", seen, len(results))
	}
}

func TestManager_LongTermCapacityEnforcedOnPromotion(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	manager, embedder := newTestManager(t, &memory.Config{
		ShortTermCapacity: 10,
		LongTermCapacity:  2,
		PromoteThreshold:  0.4,
		StabilityHours:    24,
		BaseImportance:    0.5,
	}, memory.WithClock(clock.Now))

	var ids []string
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("fact %d", i)
		axis := make([]float32, i+1)
		axis[i] = 1
		embedder.set(text+"\nNoted.", axis...)

		rec, err := manager.RecordTurn(ctx, text, "Noted.")
		if err != nil {
			t.Fatalf("Failed to record turn %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
	}

	// Mild decay leaves every record above the promotion threshold, so
	// the long tier is offered one record more than it can hold.
	clock.Advance(30 * time.Minute)
	res, err := manager.Consolidate(ctx)
	if err != nil {
		t.Fatalf("Failed to consolidate: %v", err)
	}
	if res.Promoted != 3 {
		t.Fatalf("Expected 3 promotions, got %d", res.Promoted)
	}
	if res.EvictedLong != 1 {
		t.Errorf("Expected 1 long_term eviction, got %d", res.EvictedLong)
	}

	stats, err := manager.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.LongTerm != 2 || stats.ShortTerm != 0 {
		t.Fatalf("Expected 2 long_term and 0 short_term records, got %d/%d", stats.LongTerm, stats.ShortTerm)
	}

	// Equal importance and access times: insertion order decides, and
	// the earliest promoted record is the victim.
	results, err := manager.Recall(ctx, "fact", 10)
	if err != nil {
		t.Fatalf("Failed to recall: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 surviving records, got %d", len(results))
	}
	for _, res := range results {
		if res.Record.ID == ids[0] {
			t.Errorf("Expected the oldest record to be the deterministic eviction victim")
		}
	}
}

func TestManager_RepeatedTopicRaisesImportance(t *testing.T) {
	ctx := context.Background()
	manager, embedder := newTestManager(t, nil)

	embedder.set("the boiler is making a noise", 1)
	embedder.set("the boiler is still making that noise", 1)
	embedder.set("what's the capital of peru", 0, 1)

	first, err := manager.RecordTurn(ctx, "the boiler is making a noise", "")
	if err != nil {
		t.Fatalf("Failed to record first turn: %v", err)
	}
	second, err := manager.RecordTurn(ctx, "the boiler is still making that noise", "")
	if err != nil {
		t.Fatalf("Failed to record second turn: %v", err)
	}
	if second.Importance <= first.Importance {
		t.Errorf("Expected a revisited topic to score above the first mention: %f vs %f",
			second.Importance, first.Importance)
	}

	unrelated, err := manager.RecordTurn(ctx, "what's the capital of peru", "")
	if err != nil {
		t.Fatalf("Failed to record unrelated turn: %v", err)
	}
	if unrelated.Importance != first.Importance {
		t.Errorf("Expected an unrelated turn to score the baseline, got %f", unrelated.Importance)
	}
}

func TestManager_EmbedderFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	manager, embedder := newTestManager(t, nil)

	embedder.err = errors.New("model offline")

	if _, err := manager.RecordTurn(ctx, "hello", "hi"); !errors.Is(err, memory.ErrEmbeddingUnavailable) {
		t.Errorf("Expected ErrEmbeddingUnavailable from RecordTurn, got %v", err)
	}
	if _, err := manager.Recall(ctx, "hello", 3); !errors.Is(err, memory.ErrEmbeddingUnavailable) {
		t.Errorf("Expected ErrEmbeddingUnavailable from Recall, got %v", err)
	}
}
