package conversation

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall represents a structured tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult represents the outcome of executing a tool call.
// Exactly one of Content or Error is meaningful: a failed tool run
// carries the failure text in Error so the model can react to it.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Message is a single entry in the transcript. It carries exactly one of
// Text, ToolCall, or ToolResult depending on the role:
// user and model messages carry Text, model messages may instead carry a
// ToolCall, and tool messages always carry a ToolResult.
type Message struct {
	Role       Role        `json:"role"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// IsToolCall reports whether the message carries a tool invocation.
func (m Message) IsToolCall() bool { return m.ToolCall != nil }

// IsToolResult reports whether the message carries a tool result.
func (m Message) IsToolResult() bool { return m.ToolResult != nil }
