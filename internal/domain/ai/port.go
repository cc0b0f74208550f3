package ai

import "context"

// Prompt is one instruction sent to the completion provider.
type Prompt struct {
	System string
	User   string
}

// Client port untuk LLM completion. One call per Complete, no internal retry.
type Client interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}
