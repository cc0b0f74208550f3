package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
)

// HistoryRepository keeps run history in process memory. Entries are lost on restart.
type HistoryRepository struct {
	mu      sync.RWMutex
	entries []history.Entry
	max     int
}

// NewHistoryRepository builds a repository; max > 0 drops the oldest entries beyond max.
func NewHistoryRepository(max int) *HistoryRepository {
	return &HistoryRepository{max: max}
}

func (r *HistoryRepository) Append(_ context.Context, e *history.Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next int64 = 1
	if n := len(r.entries); n > 0 {
		next = r.entries[n-1].ID + 1
	}
	cp := *e
	cp.ID = next
	r.entries = append(r.entries, cp)
	if r.max > 0 && len(r.entries) > r.max {
		r.entries = append([]history.Entry(nil), r.entries[len(r.entries)-r.max:]...)
	}
	return next, nil
}

func (r *HistoryRepository) Latest(_ context.Context, limit int) ([]*history.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*history.Entry, 0, min(limit, len(r.entries)))
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := r.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}
