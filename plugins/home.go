package plugins

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/plugin"
)

// CategoryHomeControl is the home automation plugin's intention category.
const CategoryHomeControl = "home_control"

var (
	homeStateFirstPattern = regexp.MustCompile(`(?i)turn\s+(?P<state>on|off)\s+(?:the\s+)?(?P<device>[\w\s]+)`)
	homeStateLastPattern  = regexp.MustCompile(`(?i)turn\s+(?:the\s+)?(?P<device>[\w\s]+?)\s+(?P<state>on|off)\b`)
	homeDimPattern        = regexp.MustCompile(`(?i)(?:dim|brighten)\s+(?:the\s+)?(?P<device>[\w\s]+)`)
)

// HomePlugin toggles named devices. State lives in memory; a real
// deployment would back this with an MQTT or Matter bridge.
type HomePlugin struct {
	mu      sync.Mutex
	devices map[string]string
}

// NewHomePlugin creates a home plugin with no known devices; devices are
// learned on first command.
func NewHomePlugin() *HomePlugin {
	return &HomePlugin{devices: make(map[string]string)}
}

// Binding returns the plugin's registration binding.
func (p *HomePlugin) Binding() Binding {
	return Binding{
		Descriptor: plugin.Descriptor{
			Intention:   CategoryHomeControl,
			Name:        "home",
			Description: "Controls lights and other household devices",
			Exemplars: []string{
				"turn on the living room lights",
				"turn off the bedroom lamp",
				"switch off the kitchen lights",
				"dim the lights in the hallway",
				"turn the heating on",
			},
			Timeout: 3 * time.Second,
			Handler: p.handle,
		},
		Extractors: []*regexp.Regexp{homeStateFirstPattern, homeStateLastPattern, homeDimPattern},
	}
}

func (p *HomePlugin) handle(ctx context.Context, intention core.Intention) (string, error) {
	device := strings.TrimSpace(intention.Args["device"])
	if device == "" {
		return "", fmt.Errorf("home: no device in request %q", intention.Category)
	}
	state := strings.ToLower(intention.Args["state"])
	if state == "" {
		state = "on"
	}

	p.mu.Lock()
	p.devices[device] = state
	p.mu.Unlock()

	return fmt.Sprintf("Turning %s the %s.", state, device), nil
}

// DeviceState reports the last commanded state for a device.
func (p *HomePlugin) DeviceState(device string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.devices[device]
	return state, ok
}
