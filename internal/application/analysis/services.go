package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/automaton-logwatch/internal/application"
	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

const defaultConcurrency = 4

// Observer receives run metrics. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRun(outcome string, d time.Duration)
	SetRunning(running bool)
}

// Outcome labels reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeFailed  = "failed"
)

// Service implements one pipeline run:
// source → prompt → llm → extract → aggregate → store.
// Run must not be called concurrently; the Scheduler serializes it.
type Service struct {
	Source    domain.LogSource
	Prompts   domain.PromptBuilder
	LLM       ai.Client
	Extractor domain.ReplyExtractor
	Store     *Store
	Archive   domain.ArchiveStore // optional
	Clock     application.Clock
	Observer  Observer // optional

	Mode        domain.Mode
	Concurrency int           // per-record fan-out limit
	CallTimeout time.Duration // per LLM call, 0 means no limit
}

// RunResult describes what a run did.
type RunResult struct {
	RunID      string       `json:"run_id,omitempty"`
	Empty      bool         `json:"empty"`
	Records    int          `json:"records"`
	Skipped    int          `json:"skipped"`
	HistoryID  int64        `json:"history_id,omitempty"`
	ArchiveURL string       `json:"archive_url,omitempty"`
	State      domain.State `json:"state"`
}

// Run executes one pipeline run. On error nothing is committed.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	start := s.Clock.Now()
	res, err := s.run(ctx)
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case res.Empty:
		outcome = OutcomeEmpty
	}
	if s.Observer != nil {
		s.Observer.ObserveRun(outcome, s.Clock.Now().Sub(start))
	}
	return res, err
}

func (s *Service) run(ctx context.Context) (RunResult, error) {
	records, err := s.Source.Fetch(ctx)
	if err != nil {
		return RunResult{State: s.Store.Latest()}, err
	}
	if len(records) == 0 {
		log.Info().Msg("no log records to analyze, skipping run")
		return RunResult{Empty: true, State: s.Store.Latest()}, nil
	}

	runID := uuid.New().String()
	logger := log.With().Str("run_id", runID).Str("mode", string(s.mode())).Int("records", len(records)).Logger()
	logger.Info().Msg("analysis run started")

	var (
		sum     domain.Summary
		skipped int
	)
	if s.mode() == domain.ModePerRecord {
		sum, skipped, err = s.perRecord(ctx, records)
	} else {
		sum, err = s.batch(ctx, records)
	}
	if err != nil {
		logger.Error().Err(err).Msg("analysis run failed")
		return RunResult{RunID: runID, Records: len(records), Skipped: skipped, State: s.Store.Latest()}, err
	}

	sum.RunID = runID
	sum.GeneratedAt = s.Clock.Now().UTC()
	state := s.Store.Commit(sum)
	sum = *state.Latest

	result := RunResult{RunID: runID, Records: len(records), Skipped: skipped, State: state}
	raw := rawInput(records)

	// history & arsip boleh gagal, latest tetap ter-commit
	if s.Store.HasHistory() {
		id, err := s.Store.Append(ctx, sum, raw)
		if err != nil {
			logger.Error().Err(err).Msg("failed to append history entry")
		} else {
			result.HistoryID = id
		}
	}
	if s.Archive != nil {
		url, err := s.archive(ctx, sum, raw)
		if err != nil {
			logger.Error().Err(err).Msg("failed to archive run")
		} else {
			result.ArchiveURL = url
		}
	}

	logger.Info().
		Bool("is_attack", sum.IsAttack).
		Bool("need_test_command", sum.NeedsTestCommand).
		Int("skipped", skipped).
		Msg("analysis run committed")
	return result, nil
}

func (s *Service) mode() domain.Mode {
	if s.Mode == "" {
		return domain.ModeBatch
	}
	return s.Mode
}

// batch sends every record in one prompt; any failure aborts the run.
func (s *Service) batch(ctx context.Context, records []domain.RequestRecord) (domain.Summary, error) {
	prompts := s.Prompts.Build(domain.ModeBatch, records)
	if len(prompts) == 0 {
		return domain.Summary{}, domain.ErrNothingToAggregate
	}
	verdicts, err := s.judge(ctx, prompts[0])
	if err != nil {
		return domain.Summary{}, err
	}
	sum, err := Aggregate(domain.ModeBatch, verdicts, nil)
	if err != nil {
		return domain.Summary{}, err
	}
	sum.RecordCount = len(records)
	return sum, nil
}

// perRecord fans out one call per record with bounded parallelism.
// A failed record is skipped; the run fails only when every record failed.
func (s *Service) perRecord(ctx context.Context, records []domain.RequestRecord) (domain.Summary, int, error) {
	prompts := s.Prompts.Build(domain.ModePerRecord, records)
	if len(prompts) != len(records) {
		return domain.Summary{}, 0, fmt.Errorf("prompt builder returned %d prompts for %d records", len(prompts), len(records))
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	results := make([]*domain.Verdict, len(prompts))
	errs := make([]error, len(prompts))
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range prompts {
		g.Go(func() error {
			verdicts, err := s.judge(ctx, prompts[i])
			if err != nil {
				errs[i] = err
				return nil
			}
			merged, err := Aggregate(domain.ModeBatch, verdicts, nil)
			if err != nil {
				errs[i] = err
				return nil
			}
			v := merged.Verdict
			results[i] = &v
			return nil
		})
	}
	_ = g.Wait()

	verdicts := make([]domain.Verdict, 0, len(results))
	kept := make([]domain.RequestRecord, 0, len(results))
	skipped := 0
	for i, v := range results {
		if v == nil {
			skipped++
			log.Warn().Err(errs[i]).Str("line", truncate(records[i].SourceLine, 120)).Msg("record skipped")
			continue
		}
		verdicts = append(verdicts, *v)
		kept = append(kept, records[i])
	}
	if len(verdicts) == 0 {
		return domain.Summary{}, skipped, fmt.Errorf("all %d records failed: %w", len(records), errors.Join(errs...))
	}

	sum, err := Aggregate(domain.ModePerRecord, verdicts, kept)
	return sum, skipped, err
}

// judge performs one LLM call and extracts the verdicts from the reply.
func (s *Service) judge(ctx context.Context, p ai.Prompt) ([]domain.Verdict, error) {
	if s.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.CallTimeout)
		defer cancel()
	}
	reply, err := s.LLM.Complete(ctx, p)
	if err != nil {
		return nil, err
	}
	verdicts, err := s.Extractor.Extract(reply)
	if err != nil {
		log.Debug().Err(err).Str("reply", truncate(reply, 500)).Msg("could not extract verdict")
		return nil, err
	}
	return verdicts, nil
}

type archivedRun struct {
	Summary  domain.Summary `json:"summary"`
	RawInput string         `json:"raw_input"`
}

func (s *Service) archive(ctx context.Context, sum domain.Summary, raw string) (string, error) {
	b, err := json.Marshal(archivedRun{Summary: sum, RawInput: raw})
	if err != nil {
		return "", fmt.Errorf("failed to marshal archived run: %w", err)
	}
	key := fmt.Sprintf("runs/%s/%s.json", sum.GeneratedAt.Format("2006/01/02"), sum.RunID)
	return s.Archive.Put(ctx, key, b, "application/json")
}

func rawInput(records []domain.RequestRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.SourceLine)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
