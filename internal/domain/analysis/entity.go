package analysis

import (
	"time"
)

// Mode decides how records are turned into prompts.
type Mode string

const (
	// ModeBatch sends every record in a single prompt.
	ModeBatch Mode = "batch"
	// ModePerRecord sends one prompt per record.
	ModePerRecord Mode = "per_record"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeBatch || m == ModePerRecord
}

// RequestRecord is one log line or synthesized request event.
type RequestRecord struct {
	SourceLine     string    `json:"source_line"`
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method,omitempty"`
	Endpoint       string    `json:"endpoint,omitempty"`
	StatusCode     int       `json:"status_code,omitempty"`
	ClientIdentity string    `json:"client_identity,omitempty"`
}

// Verdict value object, satu hasil judgement dari LLM
type Verdict struct {
	IsAttack         bool   `json:"is_attack"`
	NeedsTestCommand bool   `json:"need_test_command"`
	TestCommand      string `json:"shell_script"`
	Explanation      string `json:"general_response"`
}

// Summary is the aggregated verdict of one pipeline run. This is what gets cached and served.
type Summary struct {
	Verdict
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id,omitempty"`
	RecordCount int       `json:"record_count"`
}

// State is the single process-wide "latest result" slot.
type State struct {
	LastUpdated *time.Time `json:"timestamp"`
	Latest      *Summary   `json:"results"`
}

// Empty reports whether nothing was committed yet.
func (s State) Empty() bool {
	return s.Latest == nil
}
