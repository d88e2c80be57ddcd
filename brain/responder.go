package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/hearthware/aura/memory"
)

// Responder produces the conversational reply when no plugin handles a
// turn.
type Responder interface {
	Respond(ctx context.Context, text string, recalled []memory.SearchResult) (string, error)
}

// StaticResponder answers with deterministic templates. It is the offline
// fallback and the test responder.
type StaticResponder struct{}

// Respond builds a reply from the utterance and recalled context.
func (StaticResponder) Respond(ctx context.Context, text string, recalled []memory.SearchResult) (string, error) {
	if len(recalled) > 0 {
		return fmt.Sprintf("That reminds me of when you said %q.", strings.TrimSpace(recalled[0].Record.Text)), nil
	}
	return "I'm listening. Tell me more.", nil
}
