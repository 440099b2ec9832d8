package llm

import (
	"context"
	"errors"
)

// Completer abstracts the AI text-completion service. Implementations must
// honor ctx cancellation and return an error on timeout or malformed upstream
// responses; callers degrade to deterministic fallbacks on error.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ErrNotConfigured is returned by the placeholder completer.
var ErrNotConfigured = errors.New("completion client not configured")

// PlaceholderCompleter stands in when no provider is wired; every call fails
// so callers exercise their fallback paths.
type PlaceholderCompleter struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	_ = ctx
	_ = prompt
	_ = maxTokens
	return "", ErrNotConfigured
}
