// Package model provides the opaque model-call capability consumed by the
// assistant core. The core never constructs or parses a provider wire
// protocol; it sees only Caller.
package model

import "context"

// Usage reports token consumption for one model call.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
}

// Caller performs one opaque call to the remote language model.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, Usage, error)
}

// CallerFunc adapts a function to the Caller interface. Used by tests and
// simple integrations.
type CallerFunc func(ctx context.Context, prompt string) (string, Usage, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, prompt string) (string, Usage, error) {
	return f(ctx, prompt)
}
