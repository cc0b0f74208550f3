package analysis

import (
	"context"
	"sync/atomic"

	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
)

// MaxHistoryLimit caps a single history read.
const MaxHistoryLimit = 100

// Store holds the latest committed summary and, optionally, the durable run history.
// Readers get immutable snapshots and never block on writers.
type Store struct {
	latest  atomic.Pointer[domain.State]
	history history.Repository
}

// NewStore builds a store; repo may be nil when no history is kept.
func NewStore(repo history.Repository) *Store {
	s := &Store{history: repo}
	s.latest.Store(&domain.State{})
	return s
}

// Latest returns a copy of the current state. It never fails.
func (s *Store) Latest() domain.State {
	cur := s.latest.Load()
	out := domain.State{}
	if cur.LastUpdated != nil {
		t := *cur.LastUpdated
		out.LastUpdated = &t
	}
	if cur.Latest != nil {
		sum := *cur.Latest
		out.Latest = &sum
	}
	return out
}

// Commit atomically replaces the latest summary. The stored snapshot is never mutated afterwards.
func (s *Store) Commit(sum domain.Summary) domain.State {
	sum = sum.Normalize()
	at := sum.GeneratedAt
	next := &domain.State{LastUpdated: &at, Latest: &sum}
	s.latest.Store(next)
	return s.Latest()
}

// HasHistory reports whether a durable history repository is attached.
func (s *Store) HasHistory() bool {
	return s.history != nil
}

// Append records one completed run in the history and returns its id.
func (s *Store) Append(ctx context.Context, sum domain.Summary, rawInput string) (int64, error) {
	if s.history == nil {
		return 0, nil
	}
	sum = sum.Normalize()
	return s.history.Append(ctx, &history.Entry{
		RunID:            sum.RunID,
		CreatedAt:        sum.GeneratedAt,
		IsAttack:         sum.IsAttack,
		NeedsTestCommand: sum.NeedsTestCommand,
		TestCommand:      sum.TestCommand,
		Explanation:      sum.Explanation,
		RawInput:         rawInput,
	})
}

// History returns up to limit entries, most recent first.
func (s *Store) History(ctx context.Context, limit int) ([]*history.Entry, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if s.history == nil {
		return []*history.Entry{}, nil
	}
	out, err := s.history.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*history.Entry{}
	}
	return out, nil
}
