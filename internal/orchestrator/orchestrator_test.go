package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
	"github.com/Cyclone1070/aide/internal/tool/file"
)

// mockProvider scripts Generate responses for the orchestrator.
type mockProvider struct {
	generateFunc func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
	calls        int
	requests     []*provider.GenerateRequest
}

func (m *mockProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	m.calls++
	m.requests = append(m.requests, req)
	return m.generateFunc(ctx, req)
}

func (m *mockProvider) CountTokens(ctx context.Context, messages []conversation.Message) (int, error) {
	return len(messages), nil
}
func (m *mockProvider) GetModel() string                   { return "mock" }
func (m *mockProvider) SetModel(model string) error        { return nil }
func (m *mockProvider) GetCapabilities() provider.Capabilities {
	return provider.Capabilities{SupportsToolCalling: true}
}
func (m *mockProvider) DefineTools(ctx context.Context, tools []provider.ToolDefinition) error {
	return nil
}
func (m *mockProvider) HealthCheck(ctx context.Context) error { return nil }

func textResponse(text string) *provider.GenerateResponse {
	return &provider.GenerateResponse{
		Content: provider.ResponseContent{Type: provider.ResponseTypeText, Text: text},
	}
}

func toolCallResponse(calls ...conversation.ToolCall) *provider.GenerateResponse {
	return &provider.GenerateResponse{
		Content: provider.ResponseContent{Type: provider.ResponseTypeToolCall, ToolCalls: calls},
	}
}

func newTestRegistry(t *testing.T, root string) *tool.Registry {
	t.Helper()
	policy, err := sandbox.NewPolicy(root, 0, nil, nil)
	require.NoError(t, err)
	v := sandbox.NewValidator(policy)
	r, err := tool.NewRegistry(file.NewReadTool(v), file.NewWriteTool(v))
	require.NoError(t, err)
	return r
}

func newTestOrchestrator(t *testing.T, p provider.Provider, maxIterations int) *Orchestrator {
	t.Helper()
	return New(Config{
		Provider:      p,
		Registry:      newTestRegistry(t, t.TempDir()),
		Manager:       conversation.NewManager(0),
		MaxIterations: maxIterations,
	})
}

func TestHandleTurnTextOnly(t *testing.T) {
	p := &mockProvider{generateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		return textResponse("hello there"), nil
	}}
	o := newTestOrchestrator(t, p, 0)

	answer, err := o.HandleTurn(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", answer)
	assert.Equal(t, 1, p.calls)

	msgs := o.Manager().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, conversation.RoleModel, msgs[1].Role)
}

func TestHandleTurnReadsFileEndToEnd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Makefile"), []byte("all:\n\tgo build ./...\n"), 0o644))

	p := &mockProvider{}
	p.generateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if p.calls == 1 {
			return toolCallResponse(conversation.ToolCall{
				ID: "c1", Name: "read_file", Args: map[string]any{"path": "Makefile"},
			}), nil
		}
		// The tool result must have been fed back in the history.
		last := req.History[len(req.History)-1]
		require.True(t, last.IsToolResult())
		require.Contains(t, last.ToolResult.Content, "go build")
		return textResponse("It builds everything with `go build ./...`."), nil
	}

	o := New(Config{
		Provider: p,
		Registry: newTestRegistry(t, root),
		Manager:  conversation.NewManager(0),
	})

	answer, err := o.HandleTurn(context.Background(), "what does the Makefile do?")
	require.NoError(t, err)
	assert.Contains(t, answer, "go build")
	assert.Equal(t, 2, p.calls)

	// One operator turn with a single tool round trip adds exactly four
	// messages: user, tool call, tool result, final answer.
	msgs := o.Manager().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.True(t, msgs[1].IsToolCall())
	assert.True(t, msgs[2].IsToolResult())
	assert.Equal(t, "c1", msgs[2].ToolResult.CallID)
	assert.Equal(t, conversation.RoleModel, msgs[3].Role)
	assert.False(t, o.Manager().HasPendingToolCall())
}

func TestHandleTurnToolFailureFeedsModel(t *testing.T) {
	p := &mockProvider{}
	p.generateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if p.calls == 1 {
			return toolCallResponse(conversation.ToolCall{
				ID: "c1", Name: "read_file", Args: map[string]any{"path": "does-not-exist.txt"},
			}), nil
		}
		last := req.History[len(req.History)-1]
		require.True(t, last.IsToolResult())
		require.NotEmpty(t, last.ToolResult.Error, "tool failure should arrive as a result payload")
		return textResponse("That file does not exist."), nil
	}
	o := newTestOrchestrator(t, p, 0)

	answer, err := o.HandleTurn(context.Background(), "read does-not-exist.txt")
	require.NoError(t, err, "a failed tool run is not a failed turn")
	assert.Equal(t, "That file does not exist.", answer)
}

func TestHandleTurnIterationGuardExact(t *testing.T) {
	p := &mockProvider{}
	call := 0
	p.generateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		call++
		return toolCallResponse(conversation.ToolCall{
			ID: "c" + string(rune('0'+call)), Name: "read_file", Args: map[string]any{"path": "x.txt"},
		}), nil
	}
	o := newTestOrchestrator(t, p, 3)

	_, err := o.HandleTurn(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrMaxIterationsExceeded)
	assert.Equal(t, 3, p.calls, "exactly max_iterations round trips are permitted")

	// The transcript survives with every call paired to its result.
	msgs := o.Manager().Messages()
	assert.Len(t, msgs, 1+3*2)
	assert.False(t, o.Manager().HasPendingToolCall())
}

func TestHandleTurnSerialToolCalls(t *testing.T) {
	p := &mockProvider{}
	p.generateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if p.calls == 1 {
			// Backend returns two calls at once; only the first runs.
			return toolCallResponse(
				conversation.ToolCall{ID: "c1", Name: "read_file", Args: map[string]any{"path": "a.txt"}},
				conversation.ToolCall{ID: "c2", Name: "read_file", Args: map[string]any{"path": "b.txt"}},
			), nil
		}
		return textResponse("done"), nil
	}
	o := newTestOrchestrator(t, p, 0)

	_, err := o.HandleTurn(context.Background(), "read both")
	require.NoError(t, err)

	msgs := o.Manager().Messages()
	executed := 0
	for _, msg := range msgs {
		if msg.IsToolCall() {
			executed++
			assert.Equal(t, "c1", msg.ToolCall.ID)
		}
	}
	assert.Equal(t, 1, executed)
}

func TestHandleTurnProviderErrorRollsBack(t *testing.T) {
	p := &mockProvider{generateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		return nil, &provider.ProviderError{Code: provider.ErrorCodeAuth, Message: "bad key"}
	}}
	o := newTestOrchestrator(t, p, 0)
	require.NoError(t, o.Manager().AppendUser("earlier"))
	require.NoError(t, o.Manager().AppendModelText("earlier answer"))

	_, err := o.HandleTurn(context.Background(), "hi")
	var provErr *provider.ProviderError
	require.ErrorAs(t, err, &provErr)

	// The failed turn leaves no trace; earlier history is intact.
	assert.Equal(t, 2, o.Manager().Len())
}

func TestHandleTurnCancellationRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &mockProvider{generateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		cancel()
		return nil, ctx.Err()
	}}
	o := newTestOrchestrator(t, p, 0)

	_, err := o.HandleTurn(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, o.Manager().Len(), "interrupted turn must be rolled back entirely")
}

func TestHandleTurnRollbackSurvivesPruning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &mockProvider{}
	p.generateFunc = func(_ context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		cancel()
		return toolCallResponse(conversation.ToolCall{
			ID: "c1", Name: "read_file", Args: map[string]any{"path": "missing.txt"},
		}), nil
	}

	// A tight budget, so appending the next message prunes the old turns
	// and every earlier index shifts.
	mgr := conversation.NewManager(20)
	require.NoError(t, mgr.AppendUser(strings.Repeat("a", 40)))
	require.NoError(t, mgr.AppendModelText(strings.Repeat("b", 40)))
	require.NoError(t, mgr.AppendUser(strings.Repeat("c", 40)))
	require.NoError(t, mgr.AppendModelText(strings.Repeat("d", 40)))

	o := New(Config{Provider: p, Registry: newTestRegistry(t, t.TempDir()), Manager: mgr})

	_, err := o.HandleTurn(ctx, "one more question")
	require.Error(t, err)

	// The aborted dispatch must not leave an unmatched call behind, and
	// the session must accept further input.
	assert.False(t, mgr.HasPendingToolCall())
	assert.NoError(t, mgr.AppendUser("again"))
	assert.Equal(t, 1, mgr.Len())
}

func TestHandleTurnSendsDeclarationsAndSystemInstruction(t *testing.T) {
	p := &mockProvider{generateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		return textResponse("ok"), nil
	}}
	o := New(Config{
		Provider:          p,
		Registry:          newTestRegistry(t, t.TempDir()),
		Manager:           conversation.NewManager(0),
		SystemInstruction: "be helpful",
	})

	_, err := o.HandleTurn(context.Background(), "hi")
	require.NoError(t, err)

	req := p.requests[0]
	assert.Equal(t, "be helpful", req.SystemInstruction)
	names := make([]string, 0, len(req.Tools))
	for _, d := range req.Tools {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"read_file", "write_file"}, names)
}

func TestHandleTurnUnknownToolStillCompletes(t *testing.T) {
	p := &mockProvider{}
	p.generateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if p.calls == 1 {
			return toolCallResponse(conversation.ToolCall{ID: "c1", Name: "launch_missiles"}), nil
		}
		last := req.History[len(req.History)-1]
		require.True(t, last.IsToolResult())
		require.Contains(t, last.ToolResult.Error, "unknown tool")
		return textResponse("I cannot do that."), nil
	}
	o := newTestOrchestrator(t, p, 0)

	answer, err := o.HandleTurn(context.Background(), "fire")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", answer)
}

func TestHandleTurnRejectsWhileCallPending(t *testing.T) {
	p := &mockProvider{generateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		return textResponse("ok"), nil
	}}
	o := newTestOrchestrator(t, p, 0)
	require.NoError(t, o.Manager().AppendUser("hi"))
	require.NoError(t, o.Manager().AppendToolCall(conversation.ToolCall{ID: "c1", Name: "read_file"}))

	_, err := o.HandleTurn(context.Background(), "next")
	assert.True(t, errors.Is(err, conversation.ErrInvalidTranscriptState))
}
