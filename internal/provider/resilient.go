// Package provider assembles concrete backends behind the canonical
// Provider interface and routes their calls through the resilience
// stack.
package provider

import (
	"context"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/resilience"
)

// Resilient wraps a backend so every Generate call passes through the
// rate limiter, circuit breaker, and retry policy. The other methods
// pass straight through; only generation burns meaningful quota.
type Resilient struct {
	inner provider.Provider
	res   *resilience.Context
}

// NewResilient decorates a backend with a resilience context.
func NewResilient(inner provider.Provider, res *resilience.Context) *Resilient {
	return &Resilient{inner: inner, res: res}
}

// Generate runs the backend call under the full resilience stack. The
// token estimate fed to the rate limiter is a local heuristic so the
// limiter never needs a network round trip of its own.
func (r *Resilient) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	estimated := estimateRequestTokens(req)

	var out *provider.GenerateResponse
	err := r.res.Do(ctx, estimated, func(ctx context.Context) error {
		resp, err := r.inner.Generate(ctx, req)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountTokens delegates to the backend.
func (r *Resilient) CountTokens(ctx context.Context, messages []conversation.Message) (int, error) {
	return r.inner.CountTokens(ctx, messages)
}

// GetModel delegates to the backend.
func (r *Resilient) GetModel() string { return r.inner.GetModel() }

// SetModel delegates to the backend.
func (r *Resilient) SetModel(model string) error { return r.inner.SetModel(model) }

// GetCapabilities delegates to the backend.
func (r *Resilient) GetCapabilities() provider.Capabilities { return r.inner.GetCapabilities() }

// DefineTools delegates to the backend.
func (r *Resilient) DefineTools(ctx context.Context, tools []provider.ToolDefinition) error {
	return r.inner.DefineTools(ctx, tools)
}

// HealthCheck delegates to the backend directly; a probe should report
// backend state even while the breaker is open.
func (r *Resilient) HealthCheck(ctx context.Context) error {
	return r.inner.HealthCheck(ctx)
}

// estimateRequestTokens approximates the prompt size at four bytes per
// token, matching the conversation budget heuristic.
func estimateRequestTokens(req *provider.GenerateRequest) int {
	size := len(req.SystemInstruction)
	for _, msg := range req.History {
		size += len(msg.Text)
		if msg.ToolCall != nil {
			size += len(msg.ToolCall.Name) + 64
		}
		if msg.ToolResult != nil {
			size += len(msg.ToolResult.Content) + len(msg.ToolResult.Error)
		}
	}
	return (size + 3) / 4
}
