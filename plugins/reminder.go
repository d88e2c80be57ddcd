package plugins

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/plugin"
)

// CategorySetReminder is the reminder plugin's intention category.
const CategorySetReminder = "set_reminder"

var (
	reminderTaskPattern = regexp.MustCompile(`(?i)remind me to\s+(?P<task>.+?)(?:\s+at\s+|\s+in\s+|$)`)
	reminderTimePattern = regexp.MustCompile(`(?i)\bat\s+(?P<time>\d{1,2}(?::\d{2})?\s*(?:am|pm)?)`)
)

// Reminder is a stored reminder.
type Reminder struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Time      string    `json:"time,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReminderPlugin stores reminders in memory. A production deployment
// would sync these to a calendar; the plugin boundary is the same either
// way.
type ReminderPlugin struct {
	mu        sync.Mutex
	reminders []Reminder
}

// NewReminderPlugin creates an empty reminder plugin.
func NewReminderPlugin() *ReminderPlugin {
	return &ReminderPlugin{}
}

// Binding returns the plugin's registration binding.
func (p *ReminderPlugin) Binding() Binding {
	return Binding{
		Descriptor: plugin.Descriptor{
			Intention:   CategorySetReminder,
			Name:        "reminder",
			Description: "Creates reminders from spoken requests",
			Exemplars: []string{
				"remind me to call mom at 5pm",
				"set a reminder to take out the trash",
				"remind me about the dentist appointment tomorrow",
				"can you remind me to water the plants",
				"set a reminder for my meeting at 3pm",
			},
			Timeout: 2 * time.Second,
			Handler: p.handle,
		},
		Extractors: []*regexp.Regexp{reminderTaskPattern, reminderTimePattern},
	}
}

func (p *ReminderPlugin) handle(ctx context.Context, intention core.Intention) (string, error) {
	task := intention.Args["task"]
	if task == "" {
		task = "your reminder"
	}

	rem := Reminder{
		ID:        uuid.New().String(),
		Task:      task,
		Time:      intention.Args["time"],
		CreatedAt: time.Now(),
	}

	p.mu.Lock()
	p.reminders = append(p.reminders, rem)
	p.mu.Unlock()

	if rem.Time != "" {
		return fmt.Sprintf("Okay, I'll remind you to %s at %s.", rem.Task, rem.Time), nil
	}
	return fmt.Sprintf("Okay, I'll remind you to %s.", rem.Task), nil
}

// Reminders returns a snapshot of stored reminders.
func (p *ReminderPlugin) Reminders() []Reminder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Reminder, len(p.reminders))
	copy(out, p.reminders)
	return out
}
