package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Cyclone1070/aide/internal/config"
	"github.com/Cyclone1070/aide/internal/conversation"
	"github.com/Cyclone1070/aide/internal/orchestrator"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
	"github.com/Cyclone1070/aide/internal/resilience"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle   = lipgloss.NewStyle().Faint(true)
)

// repl is the interactive loop. It reads operator input line by line,
// routes slash commands locally, and hands everything else to the
// orchestrator.
type repl struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	provider provider.Provider
	session  *conversation.Session
	logger   *slog.Logger
	renderer *glamour.TermRenderer
	scanner  *bufio.Scanner
}

func newREPL(cfg *config.Config, orch *orchestrator.Orchestrator, p provider.Provider, session *conversation.Session, logger *slog.Logger) (*repl, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &repl{
		cfg:      cfg,
		orch:     orch,
		provider: p,
		session:  session,
		logger:   logger,
		renderer: renderer,
		scanner:  bufio.NewScanner(os.Stdin),
	}, nil
}

// Run drives the loop until /exit, EOF, or cancellation.
func (r *repl) Run(ctx context.Context) error {
	r.greet(ctx)

	for {
		fmt.Print(promptStyle.Render("> ") + " ")
		if !r.scanner.Scan() {
			fmt.Println()
			return r.scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := r.handleCommand(ctx, line); done {
				return nil
			}
			continue
		}

		r.handleTurn(ctx, line)
	}
}

func (r *repl) greet(ctx context.Context) {
	fmt.Println(infoStyle.Render(fmt.Sprintf("aide · model %s · workspace sandboxed · /help for commands", r.provider.GetModel())))
	if err := r.provider.HealthCheck(ctx); err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("Warning: backend unreachable: %v", err)))
	}
}

func (r *repl) handleTurn(ctx context.Context, line string) {
	// Each turn gets its own interrupt scope, so Ctrl-C abandons the
	// in-flight call and returns to the prompt with the loop intact.
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	start := time.Now()
	answer, err := r.orch.HandleTurn(turnCtx, line)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrMaxIterationsExceeded):
			fmt.Println(errorStyle.Render("The model used too many tool calls without answering. The conversation is intact; try rephrasing."))
		case errors.Is(err, resilience.ErrCircuitOpen):
			fmt.Println(errorStyle.Render("The backend is failing repeatedly; calls are paused while it recovers. Try again shortly."))
		case errors.Is(err, context.Canceled):
			fmt.Println(infoStyle.Render("Interrupted."))
		default:
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		}
		return
	}

	rendered, rerr := r.renderer.Render(answer)
	if rerr != nil {
		fmt.Println(answer)
	} else {
		fmt.Print(rendered)
	}
	r.logger.Debug("turn complete", "latency", time.Since(start), "tokens", r.orch.LastMetadata.TotalTokens)
}

// handleCommand executes one slash command, reporting true when the
// REPL should exit.
func (r *repl) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return true

	case "/help":
		fmt.Println(infoStyle.Render(helpText))

	case "/model":
		if len(args) == 0 {
			fmt.Println(infoStyle.Render("Current model: " + r.provider.GetModel()))
			break
		}
		if err := r.provider.SetModel(args[0]); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error switching model: %v", err)))
			break
		}
		fmt.Println(infoStyle.Render("Switched to model: " + args[0]))

	case "/clear", "/reset":
		r.session = conversation.NewSession(r.cfg.TokenBudget)
		r.orch.SetManager(r.session.Manager())
		fmt.Println(infoStyle.Render("Conversation cleared."))

	case "/context":
		mgr := r.orch.Manager()
		meta := r.orch.LastMetadata
		fmt.Println(infoStyle.Render(fmt.Sprintf(
			"session %s · %d messages · ~%d tokens in transcript · last call: %d prompt + %d completion tokens",
			r.session.ID, mgr.Len(), mgr.EstimatedTokens(), meta.PromptTokens, meta.CompletionTokens)))

	case "/save":
		path, err := r.sessionPath(args)
		if err == nil {
			err = r.session.Save(path)
		}
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error saving session: %v", err)))
			break
		}
		fmt.Println(infoStyle.Render("Saved to " + path))

	case "/load":
		if len(args) == 0 {
			fmt.Println(errorStyle.Render("Usage: /load <name or path>"))
			break
		}
		path, err := r.sessionPath(args)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
			break
		}
		loaded, err := conversation.LoadSession(path, r.cfg.TokenBudget)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error loading session: %v", err)))
			break
		}
		r.session = loaded
		r.orch.SetManager(loaded.Manager())
		fmt.Println(infoStyle.Render(fmt.Sprintf("Loaded session %s (%d messages).", loaded.ID, loaded.Manager().Len())))

	default:
		fmt.Println(errorStyle.Render("Unknown command. /help lists the available ones."))
	}
	return false
}

// sessionPath resolves a /save or /load argument: an explicit path is
// used as-is, a bare name lands in the session directory, and no
// argument derives a name from the session ID.
func (r *repl) sessionPath(args []string) (string, error) {
	if len(args) > 0 && strings.ContainsRune(args[0], os.PathSeparator) {
		return args[0], nil
	}

	dir, err := r.cfg.SessionDir()
	if err != nil {
		return "", err
	}

	name := "session-" + r.session.ID + ".json"
	if len(args) > 0 {
		name = args[0]
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
	}
	return filepath.Join(dir, name), nil
}

const helpText = `Commands:
  /help            show this help
  /model [name]    show or switch the active model
  /context         show transcript and token usage
  /save [name]     save the conversation (default: session id)
  /load <name>     resume a saved conversation
  /clear, /reset   start a fresh conversation
  /exit, /quit     leave

Anything else is sent to the model. It may read, list, search, and
write files inside the workspace to answer.`
