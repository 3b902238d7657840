package tool

import (
	"context"
	"encoding/json"
	"fmt"

	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/mitchellh/mapstructure"
)

// Tool represents a capability the model can invoke. Implementations
// must be stateless and safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Definition returns the structured declaration sent to the provider.
	Definition() provider.ToolDefinition

	// Execute runs the tool with schema-validated arguments and returns
	// a JSON document describing the outcome.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Validator is implemented by request types that carry semantic checks
// beyond what the JSON schema expresses.
type Validator interface {
	Validate() error
}

// Executor is the typed handler behind a BaseTool.
type Executor[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// BaseTool adapts a typed executor function to the Tool interface. It
// centralizes argument decoding, request validation, and response
// marshaling so individual tools are just a schema plus a function.
type BaseTool[Req, Resp any] struct {
	name        string
	description string
	definition  provider.ToolDefinition
	executor    Executor[Req, Resp]
}

// NewBaseTool creates a tool from its declaration and executor.
func NewBaseTool[Req, Resp any](
	name string,
	description string,
	paramSchema *provider.ParameterSchema,
	executor Executor[Req, Resp],
) *BaseTool[Req, Resp] {
	return &BaseTool[Req, Resp]{
		name:        name,
		description: description,
		definition: provider.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  paramSchema,
		},
		executor: executor,
	}
}

// Name implements Tool.
func (b *BaseTool[Req, Resp]) Name() string { return b.name }

// Description implements Tool.
func (b *BaseTool[Req, Resp]) Description() string { return b.description }

// Definition implements Tool.
func (b *BaseTool[Req, Resp]) Definition() provider.ToolDefinition { return b.definition }

// Execute implements Tool. Arguments arrive as generic JSON values from
// the provider and are decoded into the typed request with mapstructure;
// WeaklyTypedInput tolerates the float64 numbers JSON decoding produces.
func (b *BaseTool[Req, Resp]) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req Req
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return "", &ArgumentError{Tool: b.name, Detail: err.Error()}
	}

	if v, ok := any(req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return "", &ArgumentError{Tool: b.name, Detail: err.Error()}
		}
	}

	resp, err := b.executor(ctx, req)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(out), nil
}
