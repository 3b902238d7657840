package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/Cyclone1070/aide/internal/provider/gemini"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/provider/openaicompat"
)

// Options selects and configures a backend.
type Options struct {
	// Name picks the backend: "gemini", "ollama", "openai", or "noop".
	Name string

	// Model is the model name to generate with.
	Model string

	// APIKey authenticates hosted backends. Local backends ignore it.
	APIKey string

	// BaseURL points OpenAI-compatible backends at their endpoint, e.g.
	// "http://localhost:11434/v1" for Ollama.
	BaseURL string
}

// New constructs the backend named in opts. The returned provider is
// undecorated; callers wrap it with NewResilient before use.
func New(ctx context.Context, opts Options) (provider.Provider, error) {
	switch opts.Name {
	case "gemini":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("gemini backend requires an API key")
		}
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return gemini.New(gemini.NewSDKClient(genaiClient), opts.Model), nil

	case "ollama", "openai":
		apiKey := opts.APIKey
		if apiKey == "" && opts.Name == "ollama" {
			apiKey = "ollama" // local servers require a placeholder, not a real key
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%s backend requires an API key", opts.Name)
		}
		baseURL := opts.BaseURL
		if baseURL == "" && opts.Name == "ollama" {
			baseURL = "http://localhost:11434/v1"
		}
		client := openaicompat.NewClient(apiKey, baseURL)
		return openaicompat.New(client, opts.Model), nil

	case "noop":
		return NewNoop(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini, ollama, openai, or noop)", opts.Name)
	}
}
