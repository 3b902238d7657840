package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Provider  ProviderConfig  `json:"provider"`
	Sandbox   SandboxConfig   `json:"sandbox"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Breaker   BreakerConfig   `json:"breaker"`
	Retry     RetryConfig     `json:"retry"`
	Tools     ToolsConfig     `json:"tools"`
	Session   SessionConfig   `json:"session"`

	// MaxIterations bounds tool round trips within one operator turn.
	MaxIterations int `json:"max_iterations"` // Default: 5

	// TokenBudget caps the estimated transcript size before old turns
	// are pruned. Zero disables pruning.
	TokenBudget int `json:"token_budget"` // Default: 100000
}

type ProviderConfig struct {
	Name    string `json:"name"`     // Default: "gemini"
	Model   string `json:"model"`    // Default: "gemini-2.0-flash"
	BaseURL string `json:"base_url"` // OpenAI-compatible endpoint; empty uses the backend default
}

type SandboxConfig struct {
	// Root confines all file tools; empty means the working directory.
	Root string `json:"root"`

	MaxFileSize int64 `json:"max_file_size"` // Default: 10 * 1024 * 1024 (10MB)

	// AllowedExtensions limits writable file types; empty allows all.
	AllowedExtensions []string `json:"allowed_extensions"`

	// AllowedCommands enables run_command for the named executables;
	// empty disables the tool entirely.
	AllowedCommands []string `json:"allowed_commands"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"` // Default: 10
	TokensPerMinute   int `json:"tokens_per_minute"`   // Default: 100000
}

type BreakerConfig struct {
	FailureThreshold       int `json:"failure_threshold"`        // Default: 5
	RecoveryTimeoutSeconds int `json:"recovery_timeout_seconds"` // Default: 30
}

type RetryConfig struct {
	MaxAttempts    int     `json:"max_attempts"`     // Default: 3
	InitialDelayMs int     `json:"initial_delay_ms"` // Default: 500
	MaxDelayMs     int     `json:"max_delay_ms"`     // Default: 10000
	JitterFraction float64 `json:"jitter_fraction"`  // Default: 0.2
}

type ToolsConfig struct {
	MaxListResults     int `json:"max_list_results"`     // Default: 1000
	MaxSearchResults   int `json:"max_search_results"`   // Default: 200
	CommandTimeoutSecs int `json:"command_timeout_secs"` // Default: 60
}

type SessionConfig struct {
	// Dir is where /save and /load keep session files; empty means
	// ~/.local/share/aide/sessions.
	Dir string `json:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:  "gemini",
			Model: "gemini-2.0-flash",
		},
		Sandbox: SandboxConfig{
			MaxFileSize: 10 * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 10,
			TokensPerMinute:   100000,
		},
		Breaker: BreakerConfig{
			FailureThreshold:       5,
			RecoveryTimeoutSeconds: 30,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelayMs: 500,
			MaxDelayMs:     10000,
			JitterFraction: 0.2,
		},
		Tools: ToolsConfig{
			MaxListResults:     1000,
			MaxSearchResults:   200,
			CommandTimeoutSecs: 60,
		},
		MaxIterations: 5,
		TokenBudget:   100000,
	}
}
