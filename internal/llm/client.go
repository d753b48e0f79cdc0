package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client is the narrow contract the engine has on a hosted text-generation
// model. Implementations are stateless per call; no session affinity.
type Client interface {
	// Generate sends a prompt and returns the generated text. Errors at the
	// model boundary are *CallError values carrying a Kind.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	// Model returns the model identifier in use.
	Model() string
}

// ErrorKind classifies a failed generation call.
type ErrorKind string

const (
	KindRateLimited     ErrorKind = "rate_limited"
	KindTimeout         ErrorKind = "timeout"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// CallError is a failure at the generation boundary. Raw payloads stay here;
// only the kind and a truncated message travel up.
type CallError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm call failed (%s, status %d): %s", e.Kind, e.Status, truncate(e.Message, 200))
	}
	return fmt.Sprintf("llm call failed (%s): %s", e.Kind, truncate(e.Message, 200))
}

// KindOf extracts the error kind, if err is a call error.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
