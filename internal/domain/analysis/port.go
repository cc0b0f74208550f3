package analysis

import (
	"context"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
)

// LogSource port, supplies raw request records for one run.
// An empty slice with nil error means there is nothing to analyze.
type LogSource interface {
	Fetch(ctx context.Context) ([]RequestRecord, error)
}

// PromptBuilder port, turns records into one prompt (batch) or one prompt per record.
type PromptBuilder interface {
	Build(mode Mode, records []RequestRecord) []ai.Prompt
}

// ReplyExtractor port, pulls verdicts out of free-form LLM text.
type ReplyExtractor interface {
	Extract(reply string) ([]Verdict, error)
}

// ArchiveStore port (penyimpanan arsip hasil run)
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
