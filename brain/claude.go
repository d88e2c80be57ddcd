package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hearthware/aura/memory"
)

// DefaultSystemPrompt frames the conversational voice.
const DefaultSystemPrompt = `You are Aura, a helpful voice assistant running on a home device.
Answer in one or two short spoken sentences. Use the remembered context when it is relevant, and never mention that you were given context.`

// ClaudeResponder generates conversational replies with the Claude API,
// grounding them in recalled memories.
type ClaudeResponder struct {
	client       *anthropic.Client
	model        string
	maxTokens    int64
	systemPrompt string
}

// ClaudeOption configures a ClaudeResponder.
type ClaudeOption func(*ClaudeResponder)

// WithModel overrides the default model.
func WithModel(model string) ClaudeOption {
	return func(r *ClaudeResponder) { r.model = model }
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) ClaudeOption {
	return func(r *ClaudeResponder) { r.systemPrompt = prompt }
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) ClaudeOption {
	return func(r *ClaudeResponder) { r.maxTokens = n }
}

// NewClaudeResponder creates a responder over an Anthropic client.
func NewClaudeResponder(client *anthropic.Client, opts ...ClaudeOption) *ClaudeResponder {
	r := &ClaudeResponder{
		client:       client,
		model:        "claude-3-5-haiku-latest",
		maxTokens:    300,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond asks Claude for a reply, passing recalled memories as context.
func (r *ClaudeResponder) Respond(ctx context.Context, text string, recalled []memory.SearchResult) (string, error) {
	prompt := r.systemPrompt
	if len(recalled) > 0 {
		var sb strings.Builder
		sb.WriteString(prompt)
		sb.WriteString("\n\nRemembered context from earlier conversations:\n")
		for _, res := range recalled {
			fmt.Fprintf(&sb, "- User said: %s\n", strings.TrimSpace(res.Record.Text))
		}
		prompt = sb.String()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: r.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		System: []anthropic.TextBlockParam{
			{Text: prompt},
		},
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return reply.String(), nil
}
