package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeSource struct {
	records []domain.RequestRecord
	err     error
}

func (f *fakeSource) Fetch(context.Context) ([]domain.RequestRecord, error) {
	return f.records, f.err
}

// fakeLLM answers by looking for a key of replies inside the user prompt.
type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	def     string
	calls   atomic.Int32
	block   chan struct{}
}

func (f *fakeLLM) Complete(ctx context.Context, p ai.Prompt) (string, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, err := range f.errs {
		if strings.Contains(p.User, k) {
			return "", err
		}
	}
	for k, r := range f.replies {
		if strings.Contains(p.User, k) {
			return r, nil
		}
	}
	return f.def, nil
}

type recordingPrompts struct {
	inner domain.PromptBuilder
	modes []domain.Mode
}

func (r *recordingPrompts) Build(m domain.Mode, recs []domain.RequestRecord) []ai.Prompt {
	r.modes = append(r.modes, m)
	return r.inner.Build(m, recs)
}

// simplePrompts puts each source line verbatim in the user prompt.
type simplePrompts struct{}

func (simplePrompts) Build(m domain.Mode, recs []domain.RequestRecord) []ai.Prompt {
	if len(recs) == 0 {
		return nil
	}
	if m == domain.ModePerRecord {
		out := make([]ai.Prompt, 0, len(recs))
		for _, r := range recs {
			out = append(out, ai.Prompt{User: r.SourceLine})
		}
		return out
	}
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, r.SourceLine)
	}
	return []ai.Prompt{{User: strings.Join(lines, "\n")}}
}

// jsonExtractor only accepts replies that start with '{'.
type jsonExtractor struct{}

func (jsonExtractor) Extract(reply string) ([]domain.Verdict, error) {
	switch reply {
	case "attack":
		return []domain.Verdict{{IsAttack: true, NeedsTestCommand: true, TestCommand: "curl -I http://t", Explanation: "attack"}}, nil
	case "benign":
		return []domain.Verdict{{Explanation: "benign"}}, nil
	case "double":
		return []domain.Verdict{{Explanation: "a"}, {IsAttack: true, Explanation: "b"}}, nil
	}
	return nil, domain.ErrNoJSONFound
}

type memHistory struct {
	mu      sync.Mutex
	entries []*history.Entry
	err     error
}

func (m *memHistory) Append(_ context.Context, e *history.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	cp := *e
	cp.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &cp)
	return cp.ID, nil
}

func (m *memHistory) Latest(_ context.Context, limit int) ([]*history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*history.Entry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

type fakeArchive struct {
	keys []string
	data [][]byte
	err  error
}

func (f *fakeArchive) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	f.data = append(f.data, data)
	return "s3://bucket/" + key, nil
}

type fakeObserver struct {
	mu       sync.Mutex
	outcomes []string
	running  []bool
}

func (o *fakeObserver) ObserveRun(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *fakeObserver) SetRunning(r bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = append(o.running, r)
}

var errBoom = errors.New("boom")
