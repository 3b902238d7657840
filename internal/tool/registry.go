package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry maps tool names to their schemas and handlers. Arguments are
// validated against the tool's declared JSON schema before the handler
// runs; a mismatch yields an invalid-arguments result without invoking
// the handler. Tool failures of every kind are returned as structured
// ToolResults, never as dispatch errors, so the model can react to them
// within the same turn.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool, compiling its parameter schema for dispatch-time
// validation.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q registered twice", name)
	}

	def := t.Definition()
	if def.Parameters != nil {
		raw, err := json.Marshal(def.Parameters)
		if err != nil {
			return fmt.Errorf("failed to marshal schema for %q: %w", name, err)
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name+".json", strings.NewReader(string(raw))); err != nil {
			return fmt.Errorf("failed to add schema for %q: %w", name, err)
		}
		schema, err := compiler.Compile(name + ".json")
		if err != nil {
			return fmt.Errorf("failed to compile schema for %q: %w", name, err)
		}
		r.schemas[name] = schema
	}

	r.tools[name] = t
	return nil
}

// Declarations returns every registered tool's declaration, sorted by
// name so the provider sees a stable ordering.
func (r *Registry) Declarations() []provider.ToolDefinition {
	decls := make([]provider.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, t.Definition())
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// Dispatch validates and executes one tool call, always producing a
// result. The only error condition surfaced to the caller is context
// cancellation, which aborts the turn rather than feeding the model.
func (r *Registry) Dispatch(ctx context.Context, call conversation.ToolCall) (conversation.ToolResult, error) {
	result := conversation.ToolResult{CallID: call.ID, Name: call.Name}

	t, ok := r.tools[call.Name]
	if !ok {
		result.Error = fmt.Sprintf("%v: %q", ErrUnknownTool, call.Name)
		return result, nil
	}

	if schema, ok := r.schemas[call.Name]; ok {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		if err := schema.Validate(normalizeForSchema(args)); err != nil {
			result.Error = (&ArgumentError{Tool: call.Name, Detail: err.Error()}).Error()
			return result, nil
		}
	}

	out, err := t.Execute(ctx, call.Args)
	if err != nil {
		if ctx.Err() != nil {
			return conversation.ToolResult{}, ctx.Err()
		}
		result.Error = err.Error()
		return result, nil
	}

	result.Content = out
	return result, nil
}

// normalizeForSchema round-trips args through JSON so the validator sees
// the generic types it expects regardless of how the map was built.
func normalizeForSchema(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return args
	}
	return out
}
