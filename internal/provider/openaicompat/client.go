// Package openaicompat adapts OpenAI-compatible chat-completion
// backends, including local Ollama servers, to the canonical provider
// model.
package openaicompat

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client defines the slice of the go-openai SDK this provider uses. The
// indirection keeps the provider testable without network access.
type Client interface {
	// CreateChatCompletion sends a chat-completion request.
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

	// ListModels lists the models the backend serves.
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// NewClient builds a go-openai client for an OpenAI-compatible
// endpoint. baseURL should point at the /v1 root, e.g.
// "http://localhost:11434/v1" for Ollama. apiKey may be a placeholder
// for local backends that ignore it.
func NewClient(apiKey, baseURL string) Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}
