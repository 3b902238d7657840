package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common provider failures.
var (
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrAuthentication     = errors.New("authentication failed")
	ErrNetwork            = errors.New("network error")
	ErrTimeout            = errors.New("request timeout")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrMalformedResponse  = errors.New("malformed response")
)

// ErrorCode represents a provider error code.
type ErrorCode string

const (
	ErrorCodeRateLimit         ErrorCode = "rate_limit"
	ErrorCodeAuth              ErrorCode = "authentication_failed"
	ErrorCodeNetwork           ErrorCode = "network_error"
	ErrorCodeTimeout           ErrorCode = "timeout"
	ErrorCodeUnavailable       ErrorCode = "service_unavailable"
	ErrorCodeInvalidRequest    ErrorCode = "invalid_request"
	ErrorCodeMalformedResponse ErrorCode = "malformed_response"
)

// ProviderError wraps backend failures with the classification the
// resilience layer needs. Only the backend adapters construct these,
// since only they understand their wire-level status codes.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retryable  bool
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.Underlying }

// IsRetryable reports whether err is a retryable provider failure.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

// GetRetryAfter returns the server-requested retry delay, if any.
func GetRetryAfter(err error) *time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return nil
}
