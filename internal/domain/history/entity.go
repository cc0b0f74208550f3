package history

import "time"

// Entry represents one completed pipeline run stored for auditing and retrieval.
// IDs are assigned by the repository, strictly increasing, and never updated.
type Entry struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"run_id"`
	CreatedAt        time.Time `json:"timestamp"`
	IsAttack         bool      `json:"is_attack"`
	NeedsTestCommand bool      `json:"need_test_command"`
	TestCommand      string    `json:"shell_script"`
	Explanation      string    `json:"general_response"`
	RawInput         string    `json:"raw_input"`
}
