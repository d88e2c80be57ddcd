// Package badgerstore adds Badger-backed durability to the local semantic
// store. Only long_term records are persisted; short_term is working
// memory and is allowed to be lost across restarts. On open, all persisted
// records are reloaded with vectors and metadata intact.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/memory/store/local"
)

const recordKeyPrefix = "record:"

// Config holds Badger store settings.
type Config struct {
	// Path is the Badger data directory.
	Path string

	// SyncWrites forces fsync on every write. Slower, safer.
	SyncWrites bool

	// Dimension is the fixed vector dimension.
	Dimension int
}

// Store layers Badger persistence over the in-memory exact index.
type Store struct {
	index *local.Store
	db    *badger.DB
}

// Open opens (or creates) the Badger database and reloads every persisted
// long_term record into the index.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", cfg.Path, err)
	}

	s := &Store{
		index: local.New(cfg.Dimension),
		db:    db,
	}
	if err := s.reload(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func recordKey(id string) []byte {
	return []byte(recordKeyPrefix + id)
}

func (s *Store) reload() error {
	ctx := context.Background()
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec memory.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("badgerstore: decode record: %w", err)
			}
			if err := s.index.Restore(ctx, &rec); err != nil {
				return fmt.Errorf("badgerstore: restore record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) persist(rec *memory.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("badgerstore: encode record %s: %w", rec.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
}

func (s *Store) unpersist(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(recordKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Insert adds a record to the index. Records enter in short_term, so
// nothing is persisted until promotion; records inserted already in
// long_term (e.g. migrations) are written through.
func (s *Store) Insert(ctx context.Context, rec *memory.Record) error {
	if err := s.index.Insert(ctx, rec); err != nil {
		return err
	}
	if rec.Tier == memory.TierLongTerm {
		if stored, ok := s.index.Get(ctx, rec.ID); ok {
			return s.persist(stored)
		}
	}
	return nil
}

// Search delegates to the exact index.
func (s *Store) Search(ctx context.Context, vector []float32, k int, filter memory.Filter) ([]memory.SearchResult, error) {
	return s.index.Search(ctx, vector, k, filter)
}

// Delete removes a record from both the index and disk. Idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return err
	}
	return s.unpersist(id)
}

// UpdateMetadata updates the index and writes through when the record is
// durable.
func (s *Store) UpdateMetadata(ctx context.Context, id string, importance float64, accessCount int, lastAccessed, decayedAt time.Time) error {
	if err := s.index.UpdateMetadata(ctx, id, importance, accessCount, lastAccessed, decayedAt); err != nil {
		return err
	}
	if rec, ok := s.index.Get(ctx, id); ok && rec.Tier == memory.TierLongTerm {
		return s.persist(rec)
	}
	return nil
}

// UpdateTier moves a record between tiers, persisting on promotion and
// dropping the durable copy on demotion.
func (s *Store) UpdateTier(ctx context.Context, id string, tier memory.Tier) error {
	if err := s.index.UpdateTier(ctx, id, tier); err != nil {
		return err
	}
	rec, ok := s.index.Get(ctx, id)
	if !ok {
		return fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	if tier == memory.TierLongTerm {
		return s.persist(rec)
	}
	return s.unpersist(id)
}

// List delegates to the exact index.
func (s *Store) List(ctx context.Context, filter memory.Filter) ([]*memory.Record, error) {
	return s.index.List(ctx, filter)
}

// Count delegates to the exact index.
func (s *Store) Count(ctx context.Context, tier memory.Tier) (int, error) {
	return s.index.Count(ctx, tier)
}

// Dimension returns the fixed vector dimension.
func (s *Store) Dimension() int {
	return s.index.Dimension()
}

// Close closes the Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ memory.Store = (*Store)(nil)
