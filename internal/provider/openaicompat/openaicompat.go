package openaicompat

import (
	"context"
	"sync"
	"time"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
)

// Provider implements models.Provider over the OpenAI chat-completion
// wire format.
type Provider struct {
	client    Client
	modelName string

	mu    sync.RWMutex
	tools []provider.ToolDefinition
}

// New creates an OpenAI-compatible provider around the given client and
// model.
func New(client Client, modelName string) *Provider {
	return &Provider{client: client, modelName: modelName}
}

// Generate sends a chat-completion request and returns the normalized
// response.
func (p *Provider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	p.mu.RLock()
	model := p.modelName
	tools := p.tools
	p.mu.RUnlock()

	chatReq := toChatRequest(model, req)
	if len(req.Tools) > 0 {
		chatReq.Tools = toOpenAITools(req.Tools)
	} else if len(tools) > 0 {
		chatReq.Tools = toOpenAITools(tools)
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	out, err := fromChatResponse(resp, model)
	if err != nil {
		return nil, err
	}
	out.Metadata.LatencyMs = time.Since(start).Milliseconds()
	return out, nil
}

// CountTokens estimates message tokens locally. OpenAI-compatible
// backends expose no counting endpoint, so this uses the same
// bytes-over-four heuristic the conversation budget uses.
func (p *Provider) CountTokens(ctx context.Context, messages []conversation.Message) (int, error) {
	total := 0
	for _, msg := range messages {
		total += estimateMessageTokens(msg)
	}
	return total, nil
}

// GetModel returns the active model name.
func (p *Provider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelName
}

// SetModel switches the active model at runtime.
func (p *Provider) SetModel(model string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modelName = model
	return nil
}

// GetCapabilities returns what this backend supports.
func (p *Provider) GetCapabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsToolCalling: true,
		MaxContextTokens:    128_000,
		MaxOutputTokens:     4096,
	}
}

// DefineTools registers tool declarations for native tool calling.
func (p *Provider) DefineTools(ctx context.Context, tools []provider.ToolDefinition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools = tools
	return nil
}

// HealthCheck lists models as a reachability probe. Ollama serves this
// endpoint too, so the same probe works for local backends.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		return mapOpenAIError(err)
	}
	return nil
}

func estimateMessageTokens(msg conversation.Message) int {
	size := len(msg.Text)
	if msg.ToolCall != nil {
		size += len(msg.ToolCall.Name) + len(toArgumentsJSON(msg.ToolCall.Args))
	}
	if msg.ToolResult != nil {
		size += len(msg.ToolResult.Content) + len(msg.ToolResult.Error)
	}
	return (size + 3) / 4
}
