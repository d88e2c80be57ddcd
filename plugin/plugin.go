// Package plugin defines the capability surface of the assistant: a
// registry mapping intention categories to handlers, and a dispatcher that
// invokes handlers with enforced deadlines.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hearthware/aura/core"
)

// ErrDuplicateIntention rejects registering two handlers for the same
// intention category.
var ErrDuplicateIntention = errors.New("plugin: intention already registered")

// DefaultTimeout bounds handler execution when a descriptor does not set
// its own timeout.
const DefaultTimeout = 5 * time.Second

// Handler executes an intention and returns the spoken reply.
type Handler func(ctx context.Context, intention core.Intention) (string, error)

// Descriptor declares a plugin's binding to an intention category.
type Descriptor struct {
	// Intention is the category this plugin handles.
	Intention string

	// Name identifies the plugin in logs and errors.
	Name string

	// Description is a short human-readable summary.
	Description string

	// Exemplars are sample utterances used to seed intention routing.
	Exemplars []string

	// Timeout bounds a single invocation. Zero means DefaultTimeout.
	Timeout time.Duration

	// Handler is the execution entry point.
	Handler Handler
}

// Registry maps intention categories to plugin descriptors.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Descriptor)}
}

// Register adds a plugin. A second registration for the same intention
// category fails with ErrDuplicateIntention.
func (r *Registry) Register(desc Descriptor) error {
	if desc.Intention == "" {
		return fmt.Errorf("plugin: descriptor %q has no intention category", desc.Name)
	}
	if desc.Handler == nil {
		return fmt.Errorf("plugin: descriptor %q has no handler", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.plugins[desc.Intention]; ok {
		return fmt.Errorf("%w: %q claimed by %q", ErrDuplicateIntention, desc.Intention, existing.Name)
	}
	r.plugins[desc.Intention] = desc
	return nil
}

// Lookup returns the descriptor for an intention category.
func (r *Registry) Lookup(intention string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.plugins[intention]
	return desc, ok
}

// List returns all descriptors sorted by intention category.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.plugins))
	for _, desc := range r.plugins {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Intention < out[j].Intention })
	return out
}
