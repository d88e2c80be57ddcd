package plugins_test

import (
	"context"
	"testing"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/intent"
	"github.com/hearthware/aura/memory/embedder/mock"
	"github.com/hearthware/aura/plugin"
	"github.com/hearthware/aura/plugins"
)

func newCatalog(t *testing.T) (*plugin.Registry, *intent.Router) {
	t.Helper()

	registry := plugin.NewRegistry()
	router := intent.NewRouter(mock.New(), 0.60)
	if err := plugins.RegisterAll(context.Background(), registry, router, plugins.Builtin()); err != nil {
		t.Fatalf("Failed to register builtin plugins: %v", err)
	}
	return registry, router
}

func TestBuiltin_CoversDistinctCategories(t *testing.T) {
	registry, router := newCatalog(t)

	for _, category := range []string{plugins.CategorySetReminder, plugins.CategoryGetTime, plugins.CategoryHomeControl} {
		if _, ok := registry.Lookup(category); !ok {
			t.Errorf("Expected a handler for %s", category)
		}
	}
	if got := len(router.Categories()); got != 3 {
		t.Errorf("Expected 3 routed categories, got %d", got)
	}
}

func TestBuiltin_ReminderEndToEnd(t *testing.T) {
	registry, router := newCatalog(t)
	ctx := context.Background()

	intention, err := router.Classify(ctx, "remind me to call mom at 5pm")
	if err != nil {
		t.Fatalf("Failed to classify: %v", err)
	}
	if intention.Category != plugins.CategorySetReminder {
		t.Fatalf("Expected set_reminder, got %s", intention.Category)
	}
	if intention.Args["time"] != "5pm" {
		t.Errorf("Expected time arg 5pm, got %q", intention.Args["time"])
	}

	dispatcher := plugin.NewDispatcher(registry, nil)
	outcome := dispatcher.Invoke(ctx, intention)
	if outcome.State != core.StateSucceeded {
		t.Fatalf("Expected success, got %s (%v)", outcome.State, outcome.Err)
	}
	if outcome.Reply == "" {
		t.Error("Expected a spoken confirmation")
	}
}

func TestReminderPlugin_StoresReminders(t *testing.T) {
	p := plugins.NewReminderPlugin()
	binding := p.Binding()

	intention := core.Intention{
		Category:   plugins.CategorySetReminder,
		Confidence: 0.9,
		Args:       map[string]string{"task": "call mom", "time": "5pm"},
	}
	reply, err := binding.Descriptor.Handler(context.Background(), intention)
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	if reply == "" {
		t.Error("Expected a confirmation reply")
	}

	reminders := p.Reminders()
	if len(reminders) != 1 {
		t.Fatalf("Expected 1 stored reminder, got %d", len(reminders))
	}
	if reminders[0].Task != "call mom" || reminders[0].Time != "5pm" {
		t.Errorf("Stored reminder does not match request: %+v", reminders[0])
	}
	if reminders[0].ID == "" {
		t.Error("Expected reminder to get an ID")
	}
}

func TestHomePlugin_ExtractsDeviceAndState(t *testing.T) {
	_, router := newCatalog(t)
	ctx := context.Background()

	intention, err := router.Classify(ctx, "turn on the living room lights")
	if err != nil {
		t.Fatalf("Failed to classify: %v", err)
	}
	if intention.Category != plugins.CategoryHomeControl {
		t.Fatalf("Expected home_control, got %s", intention.Category)
	}
	if intention.Args["state"] != "on" {
		t.Errorf("Expected state on, got %q", intention.Args["state"])
	}
	if intention.Args["device"] != "living room lights" {
		t.Errorf("Expected device arg, got %q", intention.Args["device"])
	}

	intention, err = router.Classify(ctx, "turn the heating on")
	if err != nil {
		t.Fatalf("Failed to classify: %v", err)
	}
	if intention.Args["device"] != "heating" || intention.Args["state"] != "on" {
		t.Errorf("Trailing-state phrasing failed: %+v", intention.Args)
	}
}

func TestHomePlugin_TracksDeviceState(t *testing.T) {
	p := plugins.NewHomePlugin()
	binding := p.Binding()

	intention := core.Intention{
		Category: plugins.CategoryHomeControl,
		Args:     map[string]string{"device": "bedroom lamp", "state": "off"},
	}
	if _, err := binding.Descriptor.Handler(context.Background(), intention); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	state, ok := p.DeviceState("bedroom lamp")
	if !ok || state != "off" {
		t.Errorf("Expected bedroom lamp off, got %q (known=%v)", state, ok)
	}

	if _, err := binding.Descriptor.Handler(context.Background(), core.Intention{Category: plugins.CategoryHomeControl, Args: map[string]string{}}); err == nil {
		t.Error("Expected an error when no device was extracted")
	}
}

func TestClockPlugin_AnswersTimeQuestions(t *testing.T) {
	registry, router := newCatalog(t)
	ctx := context.Background()

	intention, err := router.Classify(ctx, "what time is it")
	if err != nil {
		t.Fatalf("Failed to classify: %v", err)
	}
	if intention.Category != plugins.CategoryGetTime {
		t.Fatalf("Expected get_time, got %s", intention.Category)
	}

	outcome := plugin.NewDispatcher(registry, nil).Invoke(ctx, intention)
	if outcome.State != core.StateSucceeded || outcome.Reply == "" {
		t.Errorf("Expected a spoken time, got %s %q", outcome.State, outcome.Reply)
	}
}
