package analysis

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// NoAttackExplanation is used in per-record mode when no verdict flagged an attack.
const NoAttackExplanation = "No attack activity detected in the analyzed requests."

// Aggregate reduces verdicts into one summary, preserving input order.
// records is optional; when given it must line up index by index with verdicts.
func Aggregate(mode domain.Mode, verdicts []domain.Verdict, records []domain.RequestRecord) (domain.Summary, error) {
	if len(verdicts) == 0 {
		return domain.Summary{}, domain.ErrNothingToAggregate
	}
	if records != nil && len(records) != len(verdicts) {
		return domain.Summary{}, fmt.Errorf("aggregate: %d verdicts but %d records", len(verdicts), len(records))
	}

	var out domain.Summary
	commands := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		out.IsAttack = out.IsAttack || v.IsAttack
		out.NeedsTestCommand = out.NeedsTestCommand || v.NeedsTestCommand
		if cmd := strings.TrimSpace(v.TestCommand); cmd != "" {
			commands = append(commands, cmd)
		}
	}
	out.TestCommand = strings.Join(commands, "\n")
	out.RecordCount = len(verdicts)
	if records != nil {
		out.RecordCount = len(records)
	}

	switch {
	case len(verdicts) == 1:
		out.Explanation = verdicts[0].Explanation
	case mode == domain.ModePerRecord:
		out.Explanation = perRecordExplanation(verdicts, records)
	default:
		out.Explanation = batchExplanation(verdicts)
	}

	return out.Normalize(), nil
}

func batchExplanation(verdicts []domain.Verdict) string {
	lines := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		if e := strings.TrimSpace(v.Explanation); e != "" {
			lines = append(lines, "- "+e)
		}
	}
	return strings.Join(lines, "\n")
}

func perRecordExplanation(verdicts []domain.Verdict, records []domain.RequestRecord) string {
	lines := make([]string, 0, len(verdicts))
	for i, v := range verdicts {
		if !v.IsAttack {
			continue
		}
		var r domain.RequestRecord
		if records != nil {
			r = records[i]
		}
		lines = append(lines, fmt.Sprintf("%s - %s accessed %s %s: %s",
			formatTimestamp(r.Timestamp),
			orDash(r.ClientIdentity),
			orDash(r.Method),
			orDash(r.Endpoint),
			strings.TrimSpace(v.Explanation),
		))
	}
	if len(lines) == 0 {
		return NoAttackExplanation
	}
	return strings.Join(lines, "\n")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// orDash returns "-" when the input is empty/whitespace
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
