// Package shell provides the optional run_command tool. Commands are
// spawned as argument vectors with exec.CommandContext, never through a
// shell, and only executables named in the sandbox policy's allowed set
// may run.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
)

// maxOutputBytes bounds captured stdout/stderr per stream.
const maxOutputBytes = 256 * 1024

// ErrCommandDenied is returned when the executable is not in the
// policy's allowed set.
var ErrCommandDenied = errors.New("command not allowed by policy")

// Request runs one allow-listed executable inside the sandbox root.
type Request struct {
	Command        string   `json:"command"`
	Args           []string `json:"args,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// Validate rejects empty commands and absurd timeouts.
func (r Request) Validate() error {
	if r.Command == "" {
		return errors.New("command is required")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must be >= 0")
	}
	return nil
}

// Response reports the command outcome.
type Response struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	TimedOut bool   `json:"timed_out"`
}

// NewRunTool creates the run_command tool with a hard execution timeout
// default. Returns nil when the policy allows no commands, so callers
// simply skip registration.
func NewRunTool(validator *sandbox.Validator, defaultTimeout time.Duration) tool.Tool {
	if len(validator.Policy().AllowedCommands) == 0 {
		return nil
	}
	return tool.NewBaseTool(
		"run_command",
		"Runs an allow-listed command inside the workspace",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"command": {
					Type:        "string",
					Description: "Executable name; must be on the allowed list",
				},
				"args": {
					Type:        "array",
					Description: "Arguments passed as a vector, never through a shell",
					Items:       &provider.PropertySchema{Type: "string"},
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: "Optional timeout override in seconds",
				},
			},
			Required: []string{"command"},
		},
		func(ctx context.Context, req Request) (Response, error) {
			return runCommand(ctx, validator, defaultTimeout, req)
		},
	)
}

func runCommand(ctx context.Context, validator *sandbox.Validator, defaultTimeout time.Duration, req Request) (Response, error) {
	policy := validator.Policy()
	if !policy.CommandAllowed(req.Command) {
		return Response{}, fmt.Errorf("%w: %q", ErrCommandDenied, req.Command)
	}

	timeout := defaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = policy.Root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout}
	cmd.Stderr = &limitedWriter{w: &stderr}

	err := cmd.Run()
	resp := Response{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		resp.ExitCode = 0
	case errors.As(err, &exitErr):
		resp.ExitCode = exitErr.ExitCode()
	case resp.TimedOut:
		resp.ExitCode = -1
	default:
		return Response{}, fmt.Errorf("%w: %v", tool.ErrExecutionFailed, err)
	}

	return resp, nil
}

// limitedWriter drops output beyond maxOutputBytes.
type limitedWriter struct {
	w *bytes.Buffer
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	remaining := maxOutputBytes - lw.w.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		lw.w.Write(p[:remaining])
		return len(p), nil
	}
	return lw.w.Write(p)
}
