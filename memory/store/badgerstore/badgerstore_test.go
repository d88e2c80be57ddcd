package badgerstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/memory/store/badgerstore"
)

func openStore(t *testing.T, path string) *badgerstore.Store {
	t.Helper()
	store, err := badgerstore.Open(badgerstore.Config{Path: path, Dimension: 3})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return store
}

func insert(t *testing.T, store *badgerstore.Store, id string, tier memory.Tier) {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	err := store.Insert(context.Background(), &memory.Record{
		ID:           id,
		Timestamp:    now,
		Text:         "text for " + id,
		Vector:       []float32{1, 0, 0},
		Importance:   0.8,
		Tier:         tier,
		LastAccessed: now,
		DecayedAt:    now,
	})
	if err != nil {
		t.Fatalf("Failed to insert %s: %v", id, err)
	}
}

func TestStore_LongTermSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := openStore(t, dir)
	insert(t, store, "ephemeral", memory.TierShortTerm)
	insert(t, store, "durable", memory.TierLongTerm)
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	reopened := openStore(t, dir)
	defer reopened.Close()

	long, err := reopened.Count(ctx, memory.TierLongTerm)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if long != 1 {
		t.Fatalf("Expected 1 long_term record after reopen, got %d", long)
	}

	short, err := reopened.Count(ctx, memory.TierShortTerm)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if short != 0 {
		t.Errorf("Short_term records must not survive a restart, got %d", short)
	}

	results, err := reopened.Search(ctx, []float32{1, 0, 0}, 1, memory.Filter{})
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != "durable" {
		t.Errorf("Expected to find the durable record after reopen")
	}
	if results[0].Score < 0.99 {
		t.Errorf("Reloaded vector lost its normalization: score %f", results[0].Score)
	}
}

func TestStore_PromotionPersistsDemotionDrops(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := openStore(t, dir)
	insert(t, store, "a", memory.TierShortTerm)

	if err := store.UpdateTier(ctx, "a", memory.TierLongTerm); err != nil {
		t.Fatalf("Failed to promote: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	reopened := openStore(t, dir)
	count, err := reopened.Count(ctx, memory.TierLongTerm)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected promoted record to persist, got %d", count)
	}

	if err := reopened.UpdateTier(ctx, "a", memory.TierShortTerm); err != nil {
		t.Fatalf("Failed to demote: %v", err)
	}
	if err := reopened.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	final := openStore(t, dir)
	defer final.Close()
	count, err = final.Count(ctx, "")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected demoted record to be dropped from disk, got %d", count)
	}
}

func TestStore_DeleteRemovesDurableCopy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := openStore(t, dir)
	insert(t, store, "a", memory.TierLongTerm)

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Second delete must be a no-op, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	reopened := openStore(t, dir)
	defer reopened.Close()
	count, err := reopened.Count(ctx, "")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected deleted record to stay gone after reopen, got %d", count)
	}
}
