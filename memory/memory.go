package memory

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the memory system.
var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the store's fixed dimension. Fatal to the single operation only.
	ErrDimensionMismatch = errors.New("memory: vector dimension mismatch")

	// ErrNotFound is returned by metadata and tier updates for unknown ids.
	// Delete is deliberately not covered: deleting a missing id is a no-op
	// so eviction stays idempotent under races.
	ErrNotFound = errors.New("memory: record not found")

	// ErrEmbeddingUnavailable wraps embedding provider failures. The turn
	// that hit it fails without mutating the store.
	ErrEmbeddingUnavailable = errors.New("memory: embedding provider unavailable")
)

// Tier identifies which memory tier a record lives in. A record is in
// exactly one tier at any instant.
type Tier string

const (
	// TierShortTerm is capacity-bounded working memory. Volatile: it is
	// not persisted across restarts.
	TierShortTerm Tier = "short_term"

	// TierLongTerm is consolidated durable memory. Reloaded with vectors
	// and metadata intact when the store is backed by persistence.
	TierLongTerm Tier = "long_term"
)

// Record is a single remembered conversational turn.
//
// Records are immutable once written except for the metadata the manager
// owns: importance, tier, access count, and last-accessed time. The vector
// is fixed at insert and unit-normalized by the store.
type Record struct {
	// ID is the unique record identifier (UUID).
	ID string `json:"id"`

	// Seq is the store-assigned insertion sequence number. It breaks
	// eviction ties deterministically: smaller means inserted earlier.
	Seq uint64 `json:"seq"`

	// Timestamp is the record creation time.
	Timestamp time.Time `json:"timestamp"`

	// Text is the recognized utterance that started the turn.
	Text string `json:"text"`

	// Response is the assistant's reply. Empty when the turn produced
	// no speakable response.
	Response string `json:"response,omitempty"`

	// Vector is the embedding of the turn, unit-normalized at insert.
	Vector []float32 `json:"vector"`

	// Importance is the decaying importance score in [0, 1].
	Importance float64 `json:"importance"`

	// Tier is the record's current memory tier.
	Tier Tier `json:"tier"`

	// AccessCount counts recalls that returned this record.
	AccessCount int `json:"access_count"`

	// LastAccessed is the time of the most recent recall (or creation).
	LastAccessed time.Time `json:"last_accessed"`

	// DecayedAt anchors importance decay. Consolidation decays importance
	// by the time elapsed since DecayedAt, then advances it, so immediate
	// back-to-back passes are no-ops.
	DecayedAt time.Time `json:"decayed_at"`
}

// Clone returns a deep copy. Stores hand out clones so callers never
// observe a record mid-mutation.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Vector = make([]float32, len(r.Vector))
	copy(cp.Vector, r.Vector)
	return &cp
}

// Filter narrows a search or listing. Zero values match everything.
type Filter struct {
	// Tier restricts to one tier when non-empty.
	Tier Tier

	// Since / Until bound the record Timestamp when non-zero.
	Since time.Time
	Until time.Time

	// MinImportance drops records below the threshold.
	MinImportance float64
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(r *Record) bool {
	if f.Tier != "" && r.Tier != f.Tier {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	if f.MinImportance > 0 && r.Importance < f.MinImportance {
		return false
	}
	return true
}

// SearchResult pairs a record with its cosine similarity to the query,
// in [-1, 1].
type SearchResult struct {
	Record *Record `json:"record"`
	Score  float64 `json:"score"`
}

// Store is the semantic store: a passive index over records it does not
// independently mutate. The Manager owns the record lifecycle; the store
// only executes the operations below.
type Store interface {
	// Insert adds a record with its precomputed vector, normalizing the
	// vector to unit length, and assigns Seq. Fails with
	// ErrDimensionMismatch when the vector length differs from the
	// store's fixed dimension.
	Insert(ctx context.Context, rec *Record) error

	// Search returns up to k records matching filter, ranked by cosine
	// similarity descending, ties broken by more recent LastAccessed,
	// then smaller Seq. An empty store or filter yields an empty result,
	// not an error.
	Search(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchResult, error)

	// Delete removes a record. No-op when the id does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateMetadata updates importance, access bookkeeping, and the
	// decay anchor in place without touching the vector.
	UpdateMetadata(ctx context.Context, id string, importance float64, accessCount int, lastAccessed, decayedAt time.Time) error

	// UpdateTier moves a record between tiers.
	UpdateTier(ctx context.Context, id string, tier Tier) error

	// List returns clones of all records matching filter, in Seq order.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Count returns the number of records in a tier ("" means all).
	Count(ctx context.Context, tier Tier) (int, error)

	// Dimension returns the store's fixed vector dimension.
	Dimension() int

	// Close releases resources and flushes persistence if any.
	Close() error
}

// Embedder converts text to vector embeddings.
//
// Implementations: mock (deterministic, for tests and development) and
// onnx (local MiniLM model). The embedder is an implementation detail of
// the Manager and the intent router; the orchestrator never sees it.
type Embedder interface {
	// Embed converts a single text to an embedding vector of fixed size.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Logger is the minimal structured logger the memory system needs.
// The daemon wires slog behind it; the default is a no-op.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...any) {}
func (NopLogger) Info(msg string, args ...any)  {}
func (NopLogger) Warn(msg string, args ...any)  {}
func (NopLogger) Error(msg string, args ...any) {}
