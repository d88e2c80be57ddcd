package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
)

// Config holds Manager tuning. All values are configuration inputs;
// nothing here is hardcoded into the policy code.
type Config struct {
	// ShortTermCapacity is the max number of short_term records (N1).
	ShortTermCapacity int

	// LongTermCapacity is the max number of long_term records (N2).
	LongTermCapacity int

	// PromoteThreshold is the decayed importance above which a short_term
	// record is promoted to long_term during consolidation.
	PromoteThreshold float64

	// MinSimilarity drops recall results scoring below it.
	MinSimilarity float64

	// StabilityHours is the decay time constant: importance is multiplied
	// by exp(-elapsedHours/StabilityHours) per consolidation pass.
	StabilityHours float64

	// BaseImportance is the importance assigned to an unremarkable turn.
	BaseImportance float64

	// QueryCacheEntries sizes the query-embedding cache. Zero disables it.
	QueryCacheEntries int64
}

// DefaultConfig returns sensible defaults for a single-user device.
func DefaultConfig() *Config {
	return &Config{
		ShortTermCapacity: 64,
		LongTermCapacity:  4096,
		PromoteThreshold:  0.65,
		MinSimilarity:     0.25,
		StabilityHours:    24.0,
		BaseImportance:    0.5,
		QueryCacheEntries: 512,
	}
}

// applyConfigDefaults backfills unset tuning fields so partial configs
// behave like DefaultConfig rather than degenerating to zero thresholds.
func applyConfigDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.ShortTermCapacity <= 0 {
		cfg.ShortTermCapacity = d.ShortTermCapacity
	}
	if cfg.LongTermCapacity <= 0 {
		cfg.LongTermCapacity = d.LongTermCapacity
	}
	if cfg.PromoteThreshold <= 0 {
		cfg.PromoteThreshold = d.PromoteThreshold
	}
	if cfg.StabilityHours <= 0 {
		cfg.StabilityHours = d.StabilityHours
	}
	if cfg.BaseImportance <= 0 {
		cfg.BaseImportance = d.BaseImportance
	}
}

// Manager owns the lifecycle of memory records: creation, tier transition,
// and deletion. All reads and writes to the semantic store go through it.
type Manager struct {
	store    Store
	embedder Embedder
	cfg      *Config
	logger   Logger
	now      func() time.Time

	// queryCache memoizes query embeddings. Embedding a repeated query is
	// the dominant per-turn cost when the provider is slow.
	queryCache *ristretto.Cache

	// mu serializes compound mutations: RecordTurn's capacity enforcement
	// and Consolidate's decay/promotion/eviction must not interleave.
	mu sync.Mutex
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source. Tests use it to drive decay
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager over the given store and embedder.
func NewManager(store Store, embedder Embedder, cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	applyConfigDefaults(cfg)
	if store.Dimension() != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: store dimension %d, embedder dimension %d",
			ErrDimensionMismatch, store.Dimension(), embedder.Dimensions())
	}

	m := &Manager{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   NopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.QueryCacheEntries > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: cfg.QueryCacheEntries * 10,
			MaxCost:     cfg.QueryCacheEntries,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("memory: query cache: %w", err)
		}
		m.queryCache = cache
	}

	return m, nil
}

// RecordTurn embeds and stores a completed turn as a short_term record,
// then enforces short-term capacity before returning.
func (m *Manager) RecordTurn(ctx context.Context, text, response string) (*Record, error) {
	combined := text
	if response != "" {
		combined = text + "\n" + response
	}

	vector, err := m.embedder.Embed(ctx, combined)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}

	importance := m.scoreImportance(text, response)
	// Returning to a topic is a salience signal of its own: a turn close
	// to something already remembered gets a boost.
	if m.isRepeatedTopic(ctx, vector) {
		importance += repeatedTopicBoost
		if importance > 1.0 {
			importance = 1.0
		}
	}

	now := m.now()
	rec := &Record{
		ID:           uuid.New().String(),
		Timestamp:    now,
		Text:         text,
		Response:     response,
		Vector:       vector,
		Importance:   importance,
		Tier:         TierShortTerm,
		LastAccessed: now,
		DecayedAt:    now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("memory: insert turn: %w", err)
	}
	evicted, err := m.enforceCapacity(ctx, TierShortTerm, m.cfg.ShortTermCapacity)
	if err != nil {
		return nil, fmt.Errorf("memory: enforce short-term capacity: %w", err)
	}
	if evicted > 0 {
		m.logger.Debug("short-term eviction after record", "evicted", evicted, "record_id", rec.ID)
	}

	m.logger.Debug("recorded turn", "record_id", rec.ID, "importance", rec.Importance)
	return rec.Clone(), nil
}

// Recall embeds the query and returns the top-k records by similarity
// across both tiers. Returned records get their access metadata bumped.
func (m *Manager) Recall(ctx context.Context, queryText string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := m.embedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}

	// One search over both tiers: a single store snapshot, so a record
	// promoted by a concurrent consolidation pass cannot appear twice.
	found, err := m.store.Search(ctx, vector, k, Filter{})
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}

	results := found[:0]
	for _, r := range found {
		if r.Score < m.cfg.MinSimilarity {
			continue
		}
		results = append(results, r)
	}

	// Access boost: recalled records stay fresh under the recency-weighted
	// eviction ordering.
	now := m.now()
	for _, r := range results {
		rec := r.Record
		if err := m.store.UpdateMetadata(ctx, rec.ID, rec.Importance, rec.AccessCount+1, now, rec.DecayedAt); err != nil {
			m.logger.Warn("access boost failed", "record_id", rec.ID, "error", err)
			continue
		}
		rec.AccessCount++
		rec.LastAccessed = now
	}

	m.logger.Debug("recall", "query_len", len(queryText), "results", len(results))
	return results, nil
}

// ConsolidateResult summarizes one maintenance pass.
type ConsolidateResult struct {
	Decayed      int
	Promoted     int
	EvictedShort int
	EvictedLong  int
}

// Consolidate applies importance decay to every record, promotes
// short_term records past the promotion threshold, and evicts
// over-capacity records. Safe to call while turns are being processed;
// mutations are serialized against RecordTurn.
func (m *Manager) Consolidate(ctx context.Context) (ConsolidateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res ConsolidateResult

	records, err := m.store.List(ctx, Filter{})
	if err != nil {
		return res, fmt.Errorf("memory: list for consolidation: %w", err)
	}

	now := m.now()
	for _, rec := range records {
		elapsed := now.Sub(rec.DecayedAt).Hours()
		if elapsed <= 0 {
			continue
		}
		decayed := rec.Importance * math.Exp(-elapsed/m.cfg.StabilityHours)
		if err := m.store.UpdateMetadata(ctx, rec.ID, decayed, rec.AccessCount, rec.LastAccessed, now); err != nil {
			m.logger.Warn("decay update failed", "record_id", rec.ID, "error", err)
			continue
		}
		rec.Importance = decayed
		rec.DecayedAt = now
		res.Decayed++

		if rec.Tier == TierShortTerm && decayed > m.cfg.PromoteThreshold {
			if err := m.store.UpdateTier(ctx, rec.ID, TierLongTerm); err != nil {
				m.logger.Warn("promotion failed", "record_id", rec.ID, "error", err)
				continue
			}
			rec.Tier = TierLongTerm
			res.Promoted++
		}
	}

	if res.EvictedShort, err = m.enforceCapacity(ctx, TierShortTerm, m.cfg.ShortTermCapacity); err != nil {
		return res, fmt.Errorf("memory: enforce short-term capacity: %w", err)
	}
	if res.EvictedLong, err = m.enforceCapacity(ctx, TierLongTerm, m.cfg.LongTermCapacity); err != nil {
		return res, fmt.Errorf("memory: enforce long-term capacity: %w", err)
	}

	m.logger.Info("consolidation pass",
		"decayed", res.Decayed,
		"promoted", res.Promoted,
		"evicted_short", res.EvictedShort,
		"evicted_long", res.EvictedLong,
	)
	return res, nil
}

// Stats holds per-tier diagnostics.
type Stats struct {
	ShortTerm      int     `json:"short_term"`
	LongTerm       int     `json:"long_term"`
	MeanImportance float64 `json:"mean_importance"`
}

// GetStats returns tier counts and mean importance across all records.
func (m *Manager) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	records, err := m.store.List(ctx, Filter{})
	if err != nil {
		return s, fmt.Errorf("memory: stats: %w", err)
	}
	total := 0.0
	for _, rec := range records {
		switch rec.Tier {
		case TierShortTerm:
			s.ShortTerm++
		case TierLongTerm:
			s.LongTerm++
		}
		total += rec.Importance
	}
	if len(records) > 0 {
		s.MeanImportance = total / float64(len(records))
	}
	return s, nil
}

// Close flushes pending short-term promotions with a final consolidation
// pass, then closes the store.
func (m *Manager) Close(ctx context.Context) error {
	if _, err := m.Consolidate(ctx); err != nil {
		m.logger.Warn("final consolidation failed", "error", err)
	}
	return m.store.Close()
}

// enforceCapacity evicts records from tier until it holds at most max.
// The victim is always the first record under ascending
// (importance, lastAccessed, seq). Caller must hold m.mu.
func (m *Manager) enforceCapacity(ctx context.Context, tier Tier, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	count, err := m.store.Count(ctx, tier)
	if err != nil {
		return 0, err
	}
	if count <= max {
		return 0, nil
	}

	records, err := m.store.List(ctx, Filter{Tier: tier})
	if err != nil {
		return 0, err
	}
	sort.Slice(records, func(i, j int) bool {
		return evictionLess(records[i], records[j])
	})

	evicted := 0
	for _, rec := range records {
		if count-evicted <= max {
			break
		}
		if err := m.store.Delete(ctx, rec.ID); err != nil {
			return evicted, err
		}
		m.logger.Debug("evicted record", "record_id", rec.ID, "tier", tier, "importance", rec.Importance)
		evicted++
	}
	return evicted, nil
}

// evictionLess orders records by ascending (importance, lastAccessed, seq).
func evictionLess(a, b *Record) bool {
	if a.Importance != b.Importance {
		return a.Importance < b.Importance
	}
	if !a.LastAccessed.Equal(b.LastAccessed) {
		return a.LastAccessed.Before(b.LastAccessed)
	}
	return a.Seq < b.Seq
}

// scoreImportance assigns a turn's initial importance from lexical
// signals. Corrections and explicit salience markers raise it above the
// configured baseline.
func (m *Manager) scoreImportance(text, response string) float64 {
	importance := m.cfg.BaseImportance
	lower := strings.ToLower(text)

	// Corrections point at something the assistant got wrong.
	corrections := []string{"no,", "actually", "i meant", "that's wrong", "not what i said"}
	for _, marker := range corrections {
		if strings.Contains(lower, marker) {
			importance += 0.25
			break
		}
	}

	// Explicit salience markers.
	salience := []string{"remember", "important", "don't forget", "my name is", "i live", "i prefer", "always", "never"}
	for _, marker := range salience {
		if strings.Contains(lower, marker) {
			importance += 0.2
			break
		}
	}

	// Substantive exchanges carry more context worth keeping.
	if len(text)+len(response) > 160 {
		importance += 0.1
	}

	if importance > 1.0 {
		importance = 1.0
	}
	return importance
}

// Repeated-topic detection: similarity floor against the nearest stored
// record, and the importance boost applied when it is met.
const (
	repeatedTopicSimilarity = 0.80
	repeatedTopicBoost      = 0.15
)

// isRepeatedTopic reports whether the vector is close to an existing
// record in either tier. Lookup failures just skip the boost.
func (m *Manager) isRepeatedTopic(ctx context.Context, vector []float32) bool {
	nearest, err := m.store.Search(ctx, vector, 1, Filter{})
	if err != nil || len(nearest) == 0 {
		return false
	}
	return nearest[0].Score >= repeatedTopicSimilarity
}

// embedQuery embeds queryText, memoizing results when the cache is on.
func (m *Manager) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	if m.queryCache != nil {
		if v, ok := m.queryCache.Get(queryText); ok {
			if vec, ok := v.([]float32); ok {
				return vec, nil
			}
		}
	}
	vector, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}
	if m.queryCache != nil {
		m.queryCache.Set(queryText, vector, 1)
	}
	return vector, nil
}
