package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

var testNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newService(src *fakeSource, llm *fakeLLM, mode domain.Mode) (*Service, *Store, *fakeObserver) {
	store := NewStore(nil)
	obs := &fakeObserver{}
	return &Service{
		Source:    src,
		Prompts:   simplePrompts{},
		LLM:       llm,
		Extractor: jsonExtractor{},
		Store:     store,
		Clock:     fixedClock{t: testNow},
		Observer:  obs,
		Mode:      mode,
	}, store, obs
}

func lines(ls ...string) []domain.RequestRecord {
	out := make([]domain.RequestRecord, 0, len(ls))
	for _, l := range ls {
		out = append(out, domain.RequestRecord{SourceLine: l})
	}
	return out
}

func TestRunEmptySourceSkipsLLM(t *testing.T) {
	llm := &fakeLLM{def: "attack"}
	svc, store, obs := newService(&fakeSource{}, llm, domain.ModeBatch)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Empty)
	assert.Zero(t, llm.calls.Load())
	assert.True(t, store.Latest().Empty())
	assert.Equal(t, []string{OutcomeEmpty}, obs.outcomes)
}

func TestRunSourceFailureKeepsPreviousState(t *testing.T) {
	svc, store, obs := newService(&fakeSource{err: domain.ErrSourceUnavailable}, &fakeLLM{def: "attack"}, domain.ModeBatch)
	store.Commit(domain.Summary{RunID: "prev", GeneratedAt: testNow})

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	assert.Equal(t, "prev", store.Latest().Latest.RunID)
	assert.Equal(t, []string{OutcomeFailed}, obs.outcomes)
}

func TestRunBatchCommitsSummary(t *testing.T) {
	llm := &fakeLLM{def: "attack"}
	svc, store, obs := newService(&fakeSource{records: lines("a", "b", "c")}, llm, domain.ModeBatch)
	repo := &memHistory{}
	svc.Store = NewStore(repo)
	store = svc.Store
	arch := &fakeArchive{}
	svc.Archive = arch

	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, llm.calls.Load())
	assert.Equal(t, 3, res.Records)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, int64(1), res.HistoryID)

	st := store.Latest()
	require.NotNil(t, st.Latest)
	assert.True(t, st.Latest.IsAttack)
	assert.Equal(t, "curl -I http://t", st.Latest.TestCommand)
	assert.Equal(t, 3, st.Latest.RecordCount)
	assert.Equal(t, res.RunID, st.Latest.RunID)
	assert.Equal(t, testNow, *st.LastUpdated)

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "a\nb\nc", repo.entries[0].RawInput)

	require.Len(t, arch.keys, 1)
	assert.Equal(t, "runs/2024/05/06/"+res.RunID+".json", arch.keys[0])
	assert.Equal(t, "s3://bucket/"+arch.keys[0], res.ArchiveURL)
	var archived map[string]any
	require.NoError(t, json.Unmarshal(arch.data[0], &archived))
	assert.Equal(t, "a\nb\nc", archived["raw_input"])

	assert.Equal(t, []string{OutcomeSuccess}, obs.outcomes)
}

func TestRunBatchFailureCommitsNothing(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
		want error
	}{
		{"llm quota", &fakeLLM{errs: map[string]error{"a": ai.ErrQuotaExceeded}}, ai.ErrQuotaExceeded},
		{"no json", &fakeLLM{def: "I cannot help with that"}, domain.ErrNoJSONFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newService(&fakeSource{records: lines("a")}, tt.llm, domain.ModeBatch)

			_, err := svc.Run(context.Background())
			require.ErrorIs(t, err, tt.want)
			assert.True(t, store.Latest().Empty())
		})
	}
}

func TestRunPerRecordSkipsFailures(t *testing.T) {
	llm := &fakeLLM{
		replies: map[string]string{"evil": "attack", "fine": "benign"},
		errs:    map[string]error{"broken": ai.ErrUpstream},
	}
	src := &fakeSource{records: []domain.RequestRecord{
		{SourceLine: "fine 1", Method: "GET", Endpoint: "/"},
		{SourceLine: "broken", Method: "GET", Endpoint: "/x"},
		{SourceLine: "evil", Method: "GET", Endpoint: "/etc/passwd", ClientIdentity: "1.2.3.4"},
		{SourceLine: "gibberish"},
	}}
	svc, store, _ := newService(src, llm, domain.ModePerRecord)
	svc.Concurrency = 2

	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 4, llm.calls.Load())
	assert.Equal(t, 2, res.Skipped)
	st := store.Latest()
	require.NotNil(t, st.Latest)
	assert.True(t, st.Latest.IsAttack)
	assert.Equal(t, 2, st.Latest.RecordCount)
	assert.Equal(t, "- - 1.2.3.4 accessed GET /etc/passwd: attack", st.Latest.Explanation)
}

func TestRunPerRecordAllFail(t *testing.T) {
	llm := &fakeLLM{def: "nope"}
	svc, store, obs := newService(&fakeSource{records: lines("a", "b")}, llm, domain.ModePerRecord)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoJSONFound)
	assert.True(t, store.Latest().Empty())
	assert.Equal(t, []string{OutcomeFailed}, obs.outcomes)
}

func TestRunPerRecordFoldsMultipleVerdicts(t *testing.T) {
	llm := &fakeLLM{def: "double"}
	svc, store, _ := newService(&fakeSource{records: lines("only")}, llm, domain.ModePerRecord)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	st := store.Latest()
	assert.True(t, st.Latest.IsAttack)
	assert.Equal(t, 1, st.Latest.RecordCount)
}

func TestRunHistoryAndArchiveFailuresDoNotFailRun(t *testing.T) {
	svc, _, _ := newService(&fakeSource{records: lines("a")}, &fakeLLM{def: "benign"}, domain.ModeBatch)
	svc.Store = NewStore(&memHistory{err: errBoom})
	svc.Archive = &fakeArchive{err: errBoom}

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.HistoryID)
	assert.Empty(t, res.ArchiveURL)
	assert.False(t, svc.Store.Latest().Empty())
}

func TestRunUsesPromptMode(t *testing.T) {
	rec := &recordingPrompts{inner: simplePrompts{}}
	svc, _, _ := newService(&fakeSource{records: lines("a")}, &fakeLLM{def: "benign"}, "")
	svc.Prompts = rec

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Mode{domain.ModeBatch}, rec.modes)
}
