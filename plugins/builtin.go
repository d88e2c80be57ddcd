// Package plugins ships the builtin capability catalog: reminders, clock,
// and home automation. Each plugin contributes a descriptor, exemplar
// phrases for routing, and argument extractors for its category.
package plugins

import (
	"context"
	"regexp"

	"github.com/hearthware/aura/intent"
	"github.com/hearthware/aura/plugin"
)

// Binding couples a plugin descriptor with the argument extractors for
// its intention category.
type Binding struct {
	Descriptor plugin.Descriptor
	Extractors []*regexp.Regexp
}

// Builtin returns the builtin plugin catalog.
func Builtin() []Binding {
	return []Binding{
		NewReminderPlugin().Binding(),
		ClockBinding(),
		NewHomePlugin().Binding(),
	}
}

// RegisterAll registers bindings with the plugin registry and seeds the
// router with each binding's exemplars and extractors.
func RegisterAll(ctx context.Context, registry *plugin.Registry, router *intent.Router, bindings []Binding) error {
	for _, b := range bindings {
		if err := registry.Register(b.Descriptor); err != nil {
			return err
		}
		if err := router.RegisterCategory(ctx, b.Descriptor.Intention, b.Descriptor.Exemplars); err != nil {
			return err
		}
		for _, re := range b.Extractors {
			router.RegisterExtractor(b.Descriptor.Intention, re)
		}
	}
	return nil
}
