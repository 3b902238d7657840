package provider

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
)

// Noop is an offline backend that echoes instead of generating. It lets
// the REPL, tool plumbing, and session handling run without an API key
// or network access.
type Noop struct {
	modelName string
}

// NewNoop creates the echo backend.
func NewNoop() *Noop {
	return &Noop{modelName: "noop"}
}

// Generate echoes the latest user message back.
func (n *Noop) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	last := ""
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == conversation.RoleUser && req.History[i].Text != "" {
			last = req.History[i].Text
			break
		}
	}
	return &provider.GenerateResponse{
		Content: provider.ResponseContent{
			Type: provider.ResponseTypeText,
			Text: fmt.Sprintf("noop: %s", last),
		},
		Metadata: provider.ResponseMetadata{ModelUsed: n.modelName},
	}, nil
}

// CountTokens uses the local size heuristic.
func (n *Noop) CountTokens(ctx context.Context, messages []conversation.Message) (int, error) {
	size := 0
	for _, msg := range messages {
		size += len(msg.Text)
	}
	return (size + 3) / 4, nil
}

// GetModel returns the placeholder model name.
func (n *Noop) GetModel() string { return n.modelName }

// SetModel accepts any name; there is no backend to validate against.
func (n *Noop) SetModel(model string) error {
	n.modelName = model
	return nil
}

// GetCapabilities reports no tool calling; the echo backend never
// requests tools.
func (n *Noop) GetCapabilities() provider.Capabilities {
	return provider.Capabilities{MaxContextTokens: 32_768, MaxOutputTokens: 4096}
}

// DefineTools accepts and ignores declarations.
func (n *Noop) DefineTools(ctx context.Context, tools []provider.ToolDefinition) error { return nil }

// HealthCheck always succeeds; there is nothing to reach.
func (n *Noop) HealthCheck(ctx context.Context) error { return nil }
