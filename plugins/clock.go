package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/plugin"
)

// CategoryGetTime is the clock plugin's intention category.
const CategoryGetTime = "get_time"

// ClockBinding returns the clock plugin binding. It answers time and date
// questions from the system clock.
func ClockBinding() Binding {
	return Binding{
		Descriptor: plugin.Descriptor{
			Intention:   CategoryGetTime,
			Name:        "clock",
			Description: "Answers time and date questions",
			Exemplars: []string{
				"what time is it",
				"what's the current time",
				"tell me the time",
				"what day is it today",
				"what's today's date",
			},
			Timeout: time.Second,
			Handler: handleClock,
		},
	}
}

func handleClock(ctx context.Context, intention core.Intention) (string, error) {
	now := time.Now()
	return fmt.Sprintf("It's %s on %s.", now.Format("3:04 PM"), now.Format("Monday, January 2")), nil
}
