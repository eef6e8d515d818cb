package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError is the caller's fault: unknown provider, empty key, empty
// question. It is surfaced immediately and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// Kind is a best-effort classification of a generation failure. It is a
// heuristic over the provider's error message, good enough to pick the right
// user-facing message, not a guarantee.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindUnavailable Kind = "unavailable"
	KindOther       Kind = "other"
)

// GenerationError wraps a provider call failure. It is fatal for the current
// ask: no partial answer is ever returned around it.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case KindAuth:
		return fmt.Sprintf("authentication failed: invalid api key: %v", e.Err)
	case KindUnavailable:
		return fmt.Sprintf("provider unavailable: %v", e.Err)
	default:
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

var authSubstrings = []string{
	"401", "unauthorized", "invalid api key", "invalid_argument",
	"invalid x-api-key", "permission denied", "api key not valid",
}

var unavailableSubstrings = []string{
	"429", "503", "timeout", "deadline exceeded", "connection refused",
	"rate limit", "overloaded", "unavailable", "no such host",
}

// ClassifyGeneration inspects a provider error's message for known
// substrings so callers can tell a bad key from a provider outage.
func ClassifyGeneration(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	msg := strings.ToLower(err.Error())

	for _, s := range authSubstrings {
		if strings.Contains(msg, s) {
			return &GenerationError{Kind: KindAuth, Err: err}
		}
	}

	for _, s := range unavailableSubstrings {
		if strings.Contains(msg, s) {
			return &GenerationError{Kind: KindUnavailable, Err: err}
		}
	}

	return &GenerationError{Kind: KindOther, Err: err}
}
