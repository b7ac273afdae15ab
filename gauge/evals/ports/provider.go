// Package ports declares the interfaces the evaluation engine needs from
// the outside world. Adapters live in gauge/evals/adapters.
package ports

import (
	"context"

	"github.com/gaugeworks/toolgauge/gauge/schema"
)

// Message is one turn of the conversation presented to the model.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant" or "tool"
	Content string `json:"content"`
}

// ToolCallProposal is a tool call the model proposed, with its arguments
// still in wire form.
type ToolCallProposal struct {
	Name      string
	Arguments string // raw JSON object
}

// CompletionRequest asks a model to respond to a conversation, given the
// tools it may call.
type CompletionRequest struct {
	Model      string
	Messages   []Message
	Tools      []schema.ToolDefinition
	ToolChoice string // usually "auto"
}

// ChatProvider produces tool-call proposals from a chat model. The engine
// only cares about the proposed calls; any text content is ignored.
type ChatProvider interface {
	ProposeToolCalls(ctx context.Context, req CompletionRequest) ([]ToolCallProposal, error)
}
