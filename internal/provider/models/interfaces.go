package models

import (
	"context"

	"github.com/Cyclone1070/aide/internal/conversation"
)

// Provider defines the interface for LLM backends. Each backend adapter
// normalizes its wire format into the canonical request/response model;
// nothing backend-specific leaks past this boundary.
type Provider interface {
	// Generate sends a request to the model and returns the response.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// CountTokens estimates the token count of the provided messages,
	// asking the backend when it supports exact counting.
	CountTokens(ctx context.Context, messages []conversation.Message) (int, error)

	// GetModel returns the currently active model name.
	GetModel() string

	// SetModel switches the active model at runtime.
	SetModel(model string) error

	// GetCapabilities returns what features the provider/model supports.
	GetCapabilities() Capabilities

	// DefineTools registers tool declarations for native tool calling.
	// Must be called before Generate when tools are in use.
	DefineTools(ctx context.Context, tools []ToolDefinition) error

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) error
}
