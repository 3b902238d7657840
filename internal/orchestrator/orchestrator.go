// Package orchestrator drives the request/response loop between the
// operator, the model, and the tool registry. One operator turn may span
// several model round trips when the model requests tools, bounded by a
// hard iteration budget.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/tool"
)

// DefaultMaxIterations bounds tool round trips within one operator turn.
const DefaultMaxIterations = 5

// Orchestrator owns the turn state machine. It is not safe for
// concurrent use; the REPL drives it from a single goroutine.
type Orchestrator struct {
	provider          provider.Provider
	registry          *tool.Registry
	manager           *conversation.Manager
	systemInstruction string
	maxIterations     int
	logger            *slog.Logger

	// LastMetadata holds usage for the most recent generation, for the
	// REPL's /context display.
	LastMetadata provider.ResponseMetadata
}

// Config assembles an orchestrator.
type Config struct {
	Provider          provider.Provider
	Registry          *tool.Registry
	Manager           *conversation.Manager
	SystemInstruction string
	MaxIterations     int
	Logger            *slog.Logger
}

// New creates an orchestrator. MaxIterations defaults when zero; a nil
// logger discards.
func New(cfg Config) *Orchestrator {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		provider:          cfg.Provider,
		registry:          cfg.Registry,
		manager:           cfg.Manager,
		systemInstruction: cfg.SystemInstruction,
		maxIterations:     maxIterations,
		logger:            logger,
	}
}

// Manager exposes the transcript for the REPL's session commands.
func (o *Orchestrator) Manager() *conversation.Manager { return o.manager }

// SetManager swaps the transcript, used when the REPL loads a saved
// session.
func (o *Orchestrator) SetManager(m *conversation.Manager) { o.manager = m }

// HandleTurn processes one operator message to completion: it appends
// the message, then alternates generation and tool execution until the
// model produces a final text answer or the iteration budget runs out.
//
// Cancellation rolls the transcript back to the pre-turn snapshot, so an
// interrupted turn leaves no half-built state behind. Exhausting the
// iteration budget keeps the transcript (every call is paired with its
// result) and returns ErrMaxIterationsExceeded.
func (o *Orchestrator) HandleTurn(ctx context.Context, userText string) (string, error) {
	snapshot := o.manager.Snapshot()

	if err := o.manager.AppendUser(userText); err != nil {
		return "", err
	}
	if pruned := o.manager.PruneToBudget(); pruned > 0 {
		o.logger.Debug("pruned transcript to budget", "messages_dropped", pruned)
		// Pruned messages all precede the message just appended, so the
		// pre-turn snapshot index shifts down with them.
		snapshot -= pruned
		if snapshot < 0 {
			snapshot = 0
		}
	}

	declarations := o.registry.Declarations()

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		resp, err := o.provider.Generate(ctx, &provider.GenerateRequest{
			History:           o.manager.Messages(),
			SystemInstruction: o.systemInstruction,
			Tools:             declarations,
		})
		if err != nil {
			if ctx.Err() != nil {
				o.manager.Rollback(snapshot)
				return "", ctx.Err()
			}
			o.manager.Rollback(snapshot)
			return "", err
		}
		o.LastMetadata = resp.Metadata

		switch resp.Content.Type {
		case provider.ResponseTypeText:
			if err := o.manager.AppendModelText(resp.Content.Text); err != nil {
				return "", err
			}
			return resp.Content.Text, nil

		case provider.ResponseTypeToolCall:
			// Calls run serially; when the backend returns several at
			// once, only the first is executed and the model re-plans
			// from its result.
			call := resp.Content.ToolCalls[0]
			if len(resp.Content.ToolCalls) > 1 {
				o.logger.Debug("multiple tool calls returned, executing first",
					"requested", len(resp.Content.ToolCalls), "tool", call.Name)
			}
			if err := o.runToolCall(ctx, call); err != nil {
				o.manager.Rollback(snapshot)
				return "", err
			}

		default:
			o.manager.Rollback(snapshot)
			return "", &provider.ProviderError{
				Code:    provider.ErrorCodeMalformedResponse,
				Message: "unknown response content type",
			}
		}
	}

	o.logger.Warn("turn exceeded iteration budget", "max_iterations", o.maxIterations)
	return "", ErrMaxIterationsExceeded
}

// runToolCall appends the call, dispatches it, and appends the result.
// Dispatch failures other than cancellation come back as result payloads
// so the transcript invariant (call then result) always holds.
func (o *Orchestrator) runToolCall(ctx context.Context, call conversation.ToolCall) error {
	if err := o.manager.AppendToolCall(call); err != nil {
		return err
	}

	o.logger.Debug("dispatching tool", "tool", call.Name, "call_id", call.ID)
	result, err := o.registry.Dispatch(ctx, call)
	if err != nil {
		return err
	}
	if result.Error != "" {
		o.logger.Debug("tool reported failure", "tool", call.Name, "error", result.Error)
	}

	return o.manager.AppendToolResult(result)
}
