package models

import (
	"github.com/Cyclone1070/aide/internal/conversation"
)

// GenerateRequest encapsulates all parameters for a generation request.
type GenerateRequest struct {
	// History contains the full conversation so far, latest message last.
	History []conversation.Message

	// SystemInstruction is sent ahead of the history when the backend
	// supports a dedicated system slot.
	SystemInstruction string

	// Config contains optional generation parameters.
	Config *GenerateConfig

	// Tools contains tool declarations for native tool calling.
	Tools []ToolDefinition
}

// GenerateConfig contains optional generation parameters.
// All fields are pointers to distinguish between "not set" and "zero value".
type GenerateConfig struct {
	Temperature   *float32
	TopP          *float32
	TopK          *int
	MaxTokens     *int
	StopSequences []string
}

// GenerateResponse contains the model's response and metadata.
type GenerateResponse struct {
	Content  ResponseContent
	Metadata ResponseMetadata
}

// ResponseContent is a union type representing what the model produced.
type ResponseContent struct {
	Type ResponseType

	// For Type = ResponseTypeText
	Text string

	// For Type = ResponseTypeToolCall. Backends may return several calls
	// in one response; the orchestrator handles them serially.
	ToolCalls []conversation.ToolCall
}

// ResponseType indicates the type of response from the model.
type ResponseType string

const (
	ResponseTypeText     ResponseType = "text"
	ResponseTypeToolCall ResponseType = "tool_call"
)

// ResponseMetadata carries token usage and provenance for one generation.
type ResponseMetadata struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ModelUsed        string
	LatencyMs        int64
}

// ToolDefinition defines a tool the model can invoke.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *ParameterSchema // nil means no parameters
}

// ParameterSchema maps directly to standard JSON Schema.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema defines a single parameter property.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}

// Capabilities describes what features a provider supports.
type Capabilities struct {
	SupportsToolCalling bool
	MaxContextTokens    int
	MaxOutputTokens     int
}
