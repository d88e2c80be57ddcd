// Package intent classifies utterances into intention categories.
//
// Intentions are data, not a type hierarchy: a category is registered with
// exemplar phrases that are embedded once at registration, and
// classification is nearest-exemplar search in the same embedding space
// the memory system uses. New capabilities add categories at runtime
// without touching the router.
package intent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/memory"
)

// Registration errors.
var (
	// ErrReservedCategory rejects registration of the conversational
	// fallback category.
	ErrReservedCategory = errors.New("intent: category is reserved")

	// ErrNoExemplars rejects a category with no exemplar phrases.
	ErrNoExemplars = errors.New("intent: at least one exemplar phrase required")
)

type exemplar struct {
	category string
	phrase   string
	vector   []float32
}

// Router classifies utterances by nearest registered exemplar.
type Router struct {
	embedder  memory.Embedder
	threshold float64

	mu         sync.RWMutex
	exemplars  []exemplar
	extractors map[string][]*regexp.Regexp
}

// NewRouter creates a router over the given embedder. Matches scoring
// below threshold fall back to the conversational intention.
func NewRouter(embedder memory.Embedder, threshold float64) *Router {
	return &Router{
		embedder:   embedder,
		threshold:  threshold,
		extractors: make(map[string][]*regexp.Regexp),
	}
}

// RegisterCategory registers an intention category with its exemplar
// phrases, embedding each phrase once.
func (r *Router) RegisterCategory(ctx context.Context, category string, phrases []string) error {
	if category == "" || category == core.CategoryConversational {
		return fmt.Errorf("%w: %q", ErrReservedCategory, category)
	}
	if len(phrases) == 0 {
		return fmt.Errorf("%w: category %q", ErrNoExemplars, category)
	}

	embedded := make([]exemplar, 0, len(phrases))
	for _, phrase := range phrases {
		vector, err := r.embedder.Embed(ctx, phrase)
		if err != nil {
			return fmt.Errorf("%w: embed exemplar %q: %w", memory.ErrEmbeddingUnavailable, phrase, err)
		}
		normalize(vector)
		embedded = append(embedded, exemplar{category: category, phrase: phrase, vector: vector})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.exemplars = append(r.exemplars, embedded...)
	return nil
}

// RegisterExtractor adds an argument extractor for a category. Named
// capture groups become argument names; a category with no extractors
// (or no matches) yields an empty argument mapping.
func (r *Router) RegisterExtractor(category string, re *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[category] = append(r.extractors[category], re)
}

// Categories returns the distinct registered categories.
func (r *Router) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, ex := range r.exemplars {
		if _, ok := seen[ex.category]; ok {
			continue
		}
		seen[ex.category] = struct{}{}
		out = append(out, ex.category)
	}
	return out
}

// Classify maps an utterance to an intention. It never fails on
// unparseable input: anything below threshold (or an empty router) is the
// conversational intention carrying the best failed score. An embedding
// provider failure is returned alongside the conversational fallback so
// the caller can degrade gracefully.
func (r *Router) Classify(ctx context.Context, text string) (core.Intention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.exemplars) == 0 {
		return core.Conversational(0), nil
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return core.Conversational(0), fmt.Errorf("%w: %w", memory.ErrEmbeddingUnavailable, err)
	}
	normalize(vector)

	best := exemplar{}
	bestScore := math.Inf(-1)
	for _, ex := range r.exemplars {
		score := dot(vector, ex.vector)
		if score > bestScore {
			bestScore = score
			best = ex
		}
	}

	confidence := clamp01(bestScore)
	if bestScore < r.threshold {
		return core.Conversational(confidence), nil
	}

	return core.Intention{
		Category:   best.category,
		Confidence: confidence,
		Args:       r.extract(best.category, text),
	}, nil
}

// extract runs the category's extractors over the utterance. Caller must
// hold at least the read lock.
func (r *Router) extract(category, text string) map[string]string {
	args := map[string]string{}
	for _, re := range r.extractors[category] {
		match := re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		for i, name := range re.SubexpNames() {
			if name == "" || i >= len(match) || match[i] == "" {
				continue
			}
			if _, taken := args[name]; !taken {
				args[name] = match[i]
			}
		}
	}
	return args
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
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
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
