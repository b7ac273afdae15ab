// Package adapters provides concrete implementations of the evals ports.
package adapters

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/gaugeworks/toolgauge/gauge/evals/ports"
	"github.com/gaugeworks/toolgauge/gauge/schema"
)

// LangChainProvider adapts a langchaingo chat model to the ChatProvider
// port. Any OpenAI-compatible endpoint works through it.
type LangChainProvider struct {
	model llms.Model
}

// NewOpenAIProvider connects to an OpenAI-compatible chat endpoint. baseURL
// may be empty for the default endpoint.
func NewOpenAIProvider(apiKey, baseURL string) (*LangChainProvider, error) {
	opts := []openai.Option{openai.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	return &LangChainProvider{model: model}, nil
}

// NewLangChainProvider wraps an already-constructed langchaingo model.
func NewLangChainProvider(model llms.Model) *LangChainProvider {
	return &LangChainProvider{model: model}
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	case "tool":
		return llms.ChatMessageTypeTool
	case "user":
		return llms.ChatMessageTypeHuman
	default:
		return llms.ChatMessageTypeGeneric
	}
}

func toolDeclarations(defs []schema.ToolDefinition) []llms.Tool {
	tools := make([]llms.Tool, 0, len(defs))
	for i := range defs {
		def := defs[i]
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.FullyQualifiedName,
				Description: def.Description,
				Parameters:  schema.InputSchemaMap(&def),
			},
		})
	}
	return tools
}

// ProposeToolCalls sends the conversation and tool declarations to the
// model and returns the tool calls it proposed.
func (p *LangChainProvider) ProposeToolCalls(ctx context.Context, req ports.CompletionRequest) ([]ports.ToolCallProposal, error) {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	opts := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTools(toolDeclarations(req.Tools)),
	}
	if req.ToolChoice != "" {
		opts = append(opts, llms.WithToolChoice(req.ToolChoice))
	}

	resp, err := p.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	var proposals []ports.ToolCallProposal
	for _, tc := range resp.Choices[0].ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		proposals = append(proposals, ports.ToolCallProposal{
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return proposals, nil
}
