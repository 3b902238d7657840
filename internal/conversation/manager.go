package conversation

import (
	"encoding/json"
	"time"
)

// tokensPerByte is the crude heuristic used for budget accounting:
// roughly one token per four bytes of content. Providers report exact
// counts after the fact; this estimate only drives pruning.
const bytesPerToken = 4

// Manager owns the ordered transcript of a single session and enforces
// its structural invariants on every append:
//
//   - a tool message always follows the model message carrying its call,
//   - at most one tool call is unmatched at any time (serial tool use),
//   - every tool result references the single pending call.
//
// Violating appends fail with ErrInvalidTranscriptState before any
// mutation, so the transcript can never be observed half-corrupted.
type Manager struct {
	messages []Message
	budget   int // max estimated tokens, 0 = unlimited
	estimate int // running token estimate

	// index into messages of the unmatched tool call, -1 if none
	pendingCall int

	now func() time.Time
}

// NewManager creates an empty transcript with the given token budget.
// A budget of zero disables pruning.
func NewManager(tokenBudget int) *Manager {
	return &Manager{
		messages:    make([]Message, 0),
		budget:      tokenBudget,
		pendingCall: -1,
		now:         time.Now,
	}
}

// AppendUser appends an operator message.
func (m *Manager) AppendUser(text string) error {
	if m.pendingCall >= 0 {
		return &TranscriptError{Op: "append_user", Reason: "tool call awaiting result"}
	}
	m.push(Message{Role: RoleUser, Text: text})
	return nil
}

// AppendModelText appends a final text answer from the model.
func (m *Manager) AppendModelText(text string) error {
	if m.pendingCall >= 0 {
		return &TranscriptError{Op: "append_model_text", Reason: "tool call awaiting result"}
	}
	m.push(Message{Role: RoleModel, Text: text})
	return nil
}

// AppendToolCall appends a tool invocation requested by the model.
// Only one call may be outstanding at a time.
func (m *Manager) AppendToolCall(call ToolCall) error {
	if m.pendingCall >= 0 {
		return &TranscriptError{Op: "append_tool_call", Reason: "previous tool call still unmatched"}
	}
	m.push(Message{Role: RoleModel, ToolCall: &call})
	m.pendingCall = len(m.messages) - 1
	return nil
}

// AppendToolResult appends the result for the single pending tool call.
func (m *Manager) AppendToolResult(result ToolResult) error {
	if m.pendingCall < 0 {
		return &TranscriptError{Op: "append_tool_result", Reason: "no tool call awaiting result"}
	}
	pending := m.messages[m.pendingCall].ToolCall
	if result.CallID != pending.ID {
		return &TranscriptError{Op: "append_tool_result", Reason: "call_id does not match pending tool call"}
	}
	m.push(Message{Role: RoleTool, ToolResult: &result})
	m.pendingCall = -1
	return nil
}

// Messages returns a copy of the transcript in insertion order.
func (m *Manager) Messages() []Message {
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (m *Manager) Len() int { return len(m.messages) }

// EstimatedTokens returns the running token estimate for the transcript.
func (m *Manager) EstimatedTokens() int { return m.estimate }

// HasPendingToolCall reports whether a tool call is awaiting its result.
func (m *Manager) HasPendingToolCall() bool { return m.pendingCall >= 0 }

// PendingToolCall returns the unmatched tool call, if any.
func (m *Manager) PendingToolCall() (ToolCall, bool) {
	if m.pendingCall < 0 {
		return ToolCall{}, false
	}
	return *m.messages[m.pendingCall].ToolCall, true
}

// Clear drops the whole transcript.
func (m *Manager) Clear() {
	m.messages = m.messages[:0]
	m.estimate = 0
	m.pendingCall = -1
}

// PruneToBudget drops the oldest complete turns until the estimate fits
// the budget. A turn starts at a user message and runs up to the next
// user message, so a tool call is never separated from its result. The
// most recent user message and everything after it is never pruned.
// Returns the number of messages removed.
func (m *Manager) PruneToBudget() int {
	if m.budget <= 0 || m.estimate <= m.budget {
		return 0
	}

	lastUser := -1
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser <= 0 {
		return 0
	}

	cut := 0
	for m.estimate > m.budget {
		// End of the oldest turn: the next user message after cut.
		next := -1
		for i := cut + 1; i <= lastUser; i++ {
			if m.messages[i].Role == RoleUser {
				next = i
				break
			}
		}
		if next < 0 || next > lastUser {
			break // only the latest turn remains
		}
		for i := cut; i < next; i++ {
			m.estimate -= estimateTokens(m.messages[i])
		}
		cut = next
	}

	if cut == 0 {
		return 0
	}
	m.messages = append(m.messages[:0], m.messages[cut:]...)
	if m.pendingCall >= 0 {
		m.pendingCall -= cut
	}
	return cut
}

// Snapshot captures the current transcript length so a half-built turn
// can be rolled back after an interrupt.
func (m *Manager) Snapshot() int { return len(m.messages) }

// Rollback discards every message appended since the snapshot was taken,
// restoring the pending-call state to match.
func (m *Manager) Rollback(snapshot int) {
	if snapshot < 0 || snapshot >= len(m.messages) {
		return
	}
	for i := snapshot; i < len(m.messages); i++ {
		m.estimate -= estimateTokens(m.messages[i])
	}
	m.messages = m.messages[:snapshot]

	m.pendingCall = -1
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].IsToolResult() {
			break
		}
		if m.messages[i].IsToolCall() {
			m.pendingCall = i
			break
		}
	}
}

func (m *Manager) push(msg Message) {
	msg.Timestamp = m.now()
	m.messages = append(m.messages, msg)
	m.estimate += estimateTokens(msg)
}

// estimateTokens approximates the token cost of one message.
func estimateTokens(msg Message) int {
	size := len(msg.Text)
	if msg.ToolCall != nil {
		size += len(msg.ToolCall.Name)
		if args, err := json.Marshal(msg.ToolCall.Args); err == nil {
			size += len(args)
		}
	}
	if msg.ToolResult != nil {
		size += len(msg.ToolResult.Content) + len(msg.ToolResult.Error)
	}
	if size == 0 {
		return 1
	}
	return (size + bytesPerToken - 1) / bytesPerToken
}
