// Package brain wires classification, recall, dispatch, and memory into
// the assistant's turn loop.
package brain

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/intent"
	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/plugin"
)

const defaultRecallK = 6

// TurnResult captures everything that happened during one turn.
type TurnResult struct {
	// Input is the user's utterance.
	Input string

	// Intention is the classified intention.
	Intention core.Intention

	// State is the terminal state the turn reached.
	State core.TurnState

	// Reply is the spoken response.
	Reply string

	// Recalled is the memory context used for the turn.
	Recalled []memory.SearchResult

	// Err carries the plugin failure when State is StateTimedOut or
	// StateFailed. The turn itself still completes.
	Err error
}

// Brain is the turn orchestrator.
type Brain struct {
	router     *intent.Router
	manager    *memory.Manager
	dispatcher *plugin.Dispatcher
	responder  Responder
	logger     memory.Logger
	recallK    int
}

// Option configures a Brain.
type Option func(*Brain)

// WithLogger sets the logger.
func WithLogger(logger memory.Logger) Option {
	return func(b *Brain) { b.logger = logger }
}

// WithRecallK sets how many memories are recalled per turn.
func WithRecallK(k int) Option {
	return func(b *Brain) {
		if k > 0 {
			b.recallK = k
		}
	}
}

// New creates a Brain over its four collaborators.
func New(router *intent.Router, manager *memory.Manager, dispatcher *plugin.Dispatcher, responder Responder, opts ...Option) *Brain {
	b := &Brain{
		router:     router,
		manager:    manager,
		dispatcher: dispatcher,
		responder:  responder,
		logger:     memory.NopLogger{},
		recallK:    defaultRecallK,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessTurn runs one full turn: classify the utterance, recall related
// memories, dispatch to a plugin (or converse), and record the exchange.
//
// Every terminal state produces a memory record, including timeouts and
// plugin failures: a failed action is still part of the conversation the
// assistant should remember. Plugin failures surface in the result, not
// as a ProcessTurn error; ProcessTurn itself only fails on empty input.
func (b *Brain) ProcessTurn(ctx context.Context, text string) (*TurnResult, error) {
	if text == "" {
		return nil, fmt.Errorf("brain: empty input")
	}

	result := &TurnResult{Input: text}

	intention, err := b.router.Classify(ctx, text)
	if err != nil {
		// Embedding provider down. Classification already fell back to
		// conversational; carry on degraded.
		b.logger.Warn("classification degraded", "error", err)
	}
	result.Intention = intention
	b.logger.Debug("classified", "category", intention.Category, "confidence", intention.Confidence)

	recalled, err := b.manager.Recall(ctx, text, b.recallK)
	if err != nil {
		b.logger.Warn("recall failed", "error", err)
	}
	result.Recalled = recalled

	if intention.IsConversational() {
		result.State = core.StateSucceeded
		result.Reply = b.converse(ctx, text, recalled)
	} else {
		outcome := b.dispatcher.Invoke(ctx, intention)
		result.State = outcome.State
		result.Err = outcome.Err

		switch outcome.State {
		case core.StateSucceeded:
			result.Reply = outcome.Reply
		case core.StateNoHandler:
			// Routed category without a plugin; answer conversationally.
			result.Reply = b.converse(ctx, text, recalled)
		case core.StateTimedOut:
			result.Reply = fmt.Sprintf("Sorry, %s is taking too long to respond.", outcome.Plugin)
		default:
			result.Reply = "Sorry, I couldn't do that right now."
		}
	}

	if _, err := b.manager.RecordTurn(ctx, text, result.Reply); err != nil {
		if errors.Is(err, memory.ErrEmbeddingUnavailable) {
			b.logger.Warn("turn not recorded, embeddings unavailable", "error", err)
		} else {
			b.logger.Error("failed to record turn", "error", err)
		}
	}

	return result, nil
}

func (b *Brain) converse(ctx context.Context, text string, recalled []memory.SearchResult) string {
	reply, err := b.responder.Respond(ctx, text, recalled)
	if err != nil {
		b.logger.Error("responder failed", "error", err)
		return "Sorry, I'm having trouble finding the words right now."
	}
	return reply
}

// Consolidate runs a memory maintenance pass.
func (b *Brain) Consolidate(ctx context.Context) (memory.ConsolidateResult, error) {
	return b.manager.Consolidate(ctx)
}

// Close flushes memory and releases resources.
func (b *Brain) Close(ctx context.Context) error {
	return b.manager.Close(ctx)
}
