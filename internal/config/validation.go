package config

import (
	"fmt"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Provider validation
	switch c.Provider.Name {
	case "gemini", "ollama", "openai", "noop":
	default:
		errs = append(errs, "provider.name must be one of gemini, ollama, openai, noop")
	}
	if c.Provider.Model == "" && c.Provider.Name != "noop" {
		errs = append(errs, "provider.model must be set")
	}

	// Sandbox validation
	if c.Sandbox.MaxFileSize < 1 {
		errs = append(errs, "sandbox.max_file_size must be >= 1")
	}

	// Rate limit validation
	if c.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "rate_limit.requests_per_minute must be >= 1")
	}
	if c.RateLimit.TokensPerMinute < 1 {
		errs = append(errs, "rate_limit.tokens_per_minute must be >= 1")
	}

	// Breaker validation
	if c.Breaker.FailureThreshold < 1 {
		errs = append(errs, "breaker.failure_threshold must be >= 1")
	}
	if c.Breaker.RecoveryTimeoutSeconds < 1 {
		errs = append(errs, "breaker.recovery_timeout_seconds must be >= 1")
	}

	// Retry validation
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Retry.InitialDelayMs < 1 {
		errs = append(errs, "retry.initial_delay_ms must be >= 1")
	}
	if c.Retry.MaxDelayMs < c.Retry.InitialDelayMs {
		errs = append(errs, "retry.max_delay_ms must be >= retry.initial_delay_ms")
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		errs = append(errs, "retry.jitter_fraction must be between 0 and 1")
	}

	// Tools validation
	if c.Tools.MaxListResults < 1 {
		errs = append(errs, "tools.max_list_results must be >= 1")
	}
	if c.Tools.MaxSearchResults < 1 {
		errs = append(errs, "tools.max_search_results must be >= 1")
	}
	if c.Tools.CommandTimeoutSecs < 1 {
		errs = append(errs, "tools.command_timeout_secs must be >= 1")
	}

	if c.MaxIterations < 1 {
		errs = append(errs, "max_iterations must be >= 1")
	}
	if c.TokenBudget < 0 {
		errs = append(errs, "token_budget must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
