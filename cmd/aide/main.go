// Package main provides the aide command-line interface: an interactive
// REPL that mediates between an operator and an LLM backend, with
// sandboxed file tools the model can call.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cyclone1070/aide/internal/config"
	"github.com/Cyclone1070/aide/internal/conversation"
	"github.com/Cyclone1070/aide/internal/orchestrator"
	"github.com/Cyclone1070/aide/internal/provider"
	"github.com/Cyclone1070/aide/internal/resilience"
	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
	"github.com/Cyclone1070/aide/internal/tool/directory"
	"github.com/Cyclone1070/aide/internal/tool/file"
	"github.com/Cyclone1070/aide/internal/tool/gitutil"
	"github.com/Cyclone1070/aide/internal/tool/search"
	"github.com/Cyclone1070/aide/internal/tool/shell"
)

func main() {
	var (
		debug    = flag.Bool("debug", false, "enable debug logging")
		noop     = flag.Bool("noop", false, "run offline with the echo backend (no API key needed)")
		workdir  = flag.String("workdir", "", "workspace root for file tools (default: current directory)")
		backend  = flag.String("provider", "", "override the configured backend (gemini, ollama, openai, noop)")
		model    = flag.String("model", "", "override the configured model")
		loadPath = flag.String("load", "", "resume a saved session file")
	)
	flag.Parse()

	logLevel := slog.LevelWarn
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Ctrl-C aborts the in-flight turn only (see repl.handleTurn); the
	// process itself goes down on SIGTERM.
	signal.Ignore(os.Interrupt)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		noop:     *noop,
		workdir:  *workdir,
		backend:  *backend,
		model:    *model,
		loadPath: *loadPath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	noop     bool
	workdir  string
	backend  string
	model    string
	loadPath string
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}

	if opts.backend != "" {
		cfg.Provider.Name = opts.backend
	}
	if opts.model != "" {
		cfg.Provider.Model = opts.model
	}
	if opts.noop {
		cfg.Provider.Name = "noop"
	}

	// === SANDBOX ===
	root := opts.workdir
	if root == "" {
		if cfg.Sandbox.Root != "" {
			root = cfg.Sandbox.Root
		} else if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	policy, err := sandbox.NewPolicy(root, cfg.Sandbox.MaxFileSize, cfg.Sandbox.AllowedExtensions, cfg.Sandbox.AllowedCommands)
	if err != nil {
		return fmt.Errorf("failed to set up sandbox: %w", err)
	}
	validator := sandbox.NewValidator(policy)

	// === TOOLS ===
	registry, err := buildRegistry(cfg, validator, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tools: %w", err)
	}

	// === PROVIDER ===
	backend, err := provider.New(ctx, provider.Options{
		Name:    cfg.Provider.Name,
		Model:   cfg.Provider.Model,
		APIKey:  apiKeyFor(cfg.Provider.Name),
		BaseURL: baseURLFor(cfg.Provider.Name, cfg.Provider.BaseURL),
	})
	if err != nil {
		return err
	}
	if err := backend.DefineTools(ctx, registry.Declarations()); err != nil {
		return fmt.Errorf("failed to register tools with provider: %w", err)
	}

	res := resilience.NewContext(
		resilience.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.TokensPerMinute),
		resilience.NewCircuitBreaker(cfg.Breaker.FailureThreshold, time.Duration(cfg.Breaker.RecoveryTimeoutSeconds)*time.Second),
		resilience.NewRetry(cfg.Retry.MaxAttempts, time.Duration(cfg.Retry.InitialDelayMs)*time.Millisecond, time.Duration(cfg.Retry.MaxDelayMs)*time.Millisecond, cfg.Retry.JitterFraction),
	)
	resilient := provider.NewResilient(backend, res)

	// === SESSION ===
	session := conversation.NewSession(cfg.TokenBudget)
	if opts.loadPath != "" {
		session, err = conversation.LoadSession(opts.loadPath, cfg.TokenBudget)
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		Provider:          resilient,
		Registry:          registry,
		Manager:           session.Manager(),
		SystemInstruction: systemInstruction,
		MaxIterations:     cfg.MaxIterations,
		Logger:            logger,
	})

	repl, err := newREPL(cfg, orch, resilient, session, logger)
	if err != nil {
		return err
	}
	return repl.Run(ctx)
}

func buildRegistry(cfg *config.Config, validator *sandbox.Validator, logger *slog.Logger) (*tool.Registry, error) {
	ignore, err := gitutil.NewIgnoreMatcher(validator.Policy().Root)
	if err != nil {
		logger.Warn("gitignore unavailable, listing everything", "error", err)
		ignore = nil
	}

	tools := []tool.Tool{
		file.NewReadTool(validator),
		file.NewWriteTool(validator),
		directory.NewListTool(validator, ignore, cfg.Tools.MaxListResults),
		search.NewSearchTool(validator, ignore, cfg.Tools.MaxSearchResults),
	}
	if run := shell.NewRunTool(validator, time.Duration(cfg.Tools.CommandTimeoutSecs)*time.Second); run != nil {
		tools = append(tools, run)
	}

	return tool.NewRegistry(tools...)
}

func apiKeyFor(name string) string {
	switch name {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "ollama":
		return os.Getenv("OLLAMA_API_KEY")
	default:
		return ""
	}
}

func baseURLFor(name, configured string) string {
	if configured != "" {
		return configured
	}
	switch name {
	case "ollama":
		return os.Getenv("OLLAMA_BASE_URL")
	case "openai":
		return os.Getenv("OPENAI_BASE_URL")
	default:
		return ""
	}
}
