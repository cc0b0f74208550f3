package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// replySchema is the literal reply shape every prompt asks for.
const replySchema = `{
  "is_attack": true/false,
  "need_test_command": true/false,
  "shell_script": "<test command or empty string>",
  "general_response": "<explanation of the activity>"
}`

// GetSystemPrompt provides strict directions for the reply format.
func GetSystemPrompt() string {
	return `You are a senior web application security analyst reviewing HTTP access logs. You must produce one valid JSON object only (no markdown, no commentary, no code fences).

Requirements:
- The object has exactly four fields: is_attack (boolean), need_test_command (boolean), shell_script (string), general_response (string).
- If need_test_command is true, shell_script must hold a shell command that safely confirms the finding; otherwise use an empty string.
- general_response is a concise description of the activity.`
}

// GetUserPrompt builds the user message for a batch of raw log text.
func GetUserPrompt(logContent string) string {
	var b strings.Builder
	b.WriteString("Return the analysis as JSON only, with no other text or formatting:\n\n")
	b.WriteString(replySchema)
	b.WriteString("\n\nAnalyze the following log:\n")
	b.WriteString(logContent)
	return b.String()
}

// GetRecordPrompt builds the user message for a single request record.
func GetRecordPrompt(r analysis.RequestRecord) string {
	var b strings.Builder
	b.WriteString("Return the analysis as JSON only, with no other text or formatting:\n\n")
	b.WriteString(replySchema)
	b.WriteString("\n\nDecide whether this single HTTP request is part of an attack.\n")
	if r.Method != "" || r.Endpoint != "" {
		fmt.Fprintf(&b, "Method: %s\nEndpoint: %s\n", analysis.StripControl(r.Method), analysis.StripControl(r.Endpoint))
	}
	if r.StatusCode != 0 {
		fmt.Fprintf(&b, "Status: %d\n", r.StatusCode)
	}
	if r.ClientIdentity != "" {
		fmt.Fprintf(&b, "Client: %s\n", analysis.StripControl(r.ClientIdentity))
	}
	if !r.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Time: %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	}
	b.WriteString("Log line:\n")
	b.WriteString(analysis.StripControl(r.SourceLine))
	return b.String()
}

// Builder implements analysis.PromptBuilder.
type Builder struct{}

// Build implements analysis.PromptBuilder.
func (Builder) Build(mode analysis.Mode, records []analysis.RequestRecord) []ai.Prompt {
	return Build(mode, records)
}

// Build returns one prompt for the whole batch, or one prompt per record.
func Build(mode analysis.Mode, records []analysis.RequestRecord) []ai.Prompt {
	if len(records) == 0 {
		return nil
	}
	system := GetSystemPrompt()
	if mode == analysis.ModePerRecord {
		out := make([]ai.Prompt, 0, len(records))
		for _, r := range records {
			out = append(out, ai.Prompt{System: system, User: GetRecordPrompt(r)})
		}
		return out
	}
	return []ai.Prompt{{System: system, User: GetUserPrompt(JoinSourceLines(records))}}
}

// JoinSourceLines returns the raw text of every record, one per line.
func JoinSourceLines(records []analysis.RequestRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, analysis.StripControl(r.SourceLine))
	}
	return strings.Join(lines, "\n")
}
