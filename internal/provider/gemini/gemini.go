// Package gemini adapts the Google Gemini wire format to the canonical
// provider model. Nothing genai-specific leaks past this package.
package gemini

import (
	"context"
	"sync"
	"time"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
)

// Provider implements models.Provider for Google Gemini.
type Provider struct {
	client    Client
	modelName string

	mu    sync.RWMutex
	tools []provider.ToolDefinition
}

// New creates a Gemini provider around the given client and model.
func New(client Client, modelName string) *Provider {
	return &Provider{client: client, modelName: modelName}
}

// Generate sends a request to the Gemini API and returns the normalized
// response.
func (p *Provider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	p.mu.RLock()
	model := p.modelName
	tools := p.tools
	p.mu.RUnlock()

	contents := toGeminiContents(req.History)
	config := toGeminiConfig(req.Config, req.SystemInstruction)
	if len(req.Tools) > 0 {
		config.Tools = toGeminiTools(req.Tools)
	} else if len(tools) > 0 {
		config.Tools = toGeminiTools(tools)
	}

	start := time.Now()
	resp, err := p.client.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	out, err := fromGeminiResponse(resp, model)
	if err != nil {
		return nil, err
	}
	out.Metadata.LatencyMs = time.Since(start).Milliseconds()
	return out, nil
}

// CountTokens asks the backend for an exact token count.
func (p *Provider) CountTokens(ctx context.Context, messages []conversation.Message) (int, error) {
	p.mu.RLock()
	model := p.modelName
	p.mu.RUnlock()

	resp, err := p.client.CountTokens(ctx, model, toGeminiContents(messages))
	if err != nil {
		return 0, mapGeminiError(err)
	}
	return int(resp.TotalTokens), nil
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
		MaxContextTokens:    1_000_000,
		MaxOutputTokens:     8192,
	}
}

// DefineTools registers tool declarations for native tool calling.
func (p *Provider) DefineTools(ctx context.Context, tools []provider.ToolDefinition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools = tools
	return nil
}

// HealthCheck issues a minimal CountTokens probe.
func (p *Provider) HealthCheck(ctx context.Context) error {
	probe := []conversation.Message{{Role: conversation.RoleUser, Text: "ping"}}
	_, err := p.CountTokens(ctx, probe)
	return err
}
