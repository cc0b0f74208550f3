package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// Strategy selects how the JSON payload is located inside a free-form reply.
type Strategy string

const (
	// StrategyBalanced tracks nesting depth and string literals, trying openers left to right.
	StrategyBalanced Strategy = "balanced"
	// StrategyGreedy takes the first opener and the last matching closer in the whole text.
	// Prose containing brackets around the payload can corrupt the match.
	StrategyGreedy Strategy = "greedy"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyBalanced || s == StrategyGreedy
}

// Extractor implements analysis.ReplyExtractor. The zero value uses the balanced strategy.
type Extractor struct {
	Strategy Strategy
}

// Extract implements analysis.ReplyExtractor.
func (e Extractor) Extract(reply string) ([]analysis.Verdict, error) {
	return ExtractWith(e.Strategy, reply)
}

// Extract locates the JSON payload in reply with the balanced strategy.
func Extract(reply string) ([]analysis.Verdict, error) {
	return ExtractWith(StrategyBalanced, reply)
}

// ExtractWith locates the JSON payload in reply and decodes it into verdicts.
// A single object yields one verdict; an array yields one verdict per object element.
// Only objects carrying at least one verdict field count, so a placeholder like {}
// in the prose never shadows the real payload.
func ExtractWith(s Strategy, reply string) ([]analysis.Verdict, error) {
	if s == StrategyGreedy {
		return extractGreedy(reply)
	}
	return extractBalanced(reply)
}

func extractBalanced(text string) ([]analysis.Verdict, error) {
	found := false
	var firstErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end := matchingClose(text, i)
		if end == -1 {
			continue
		}
		found = true
		verdicts, err := decodeVerdicts(text[i : end+1])
		if err == nil {
			return verdicts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if !found {
		return nil, analysis.ErrNoJSONFound
	}
	return nil, firstErr
}

// matchingClose returns the index of the bracket closing the one at start, or -1.
func matchingClose(text string, start int) int {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

func extractGreedy(text string) ([]analysis.Verdict, error) {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return nil, analysis.ErrNoJSONFound
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return nil, analysis.ErrNoJSONFound
	}
	return decodeVerdicts(text[start : end+1])
}

func decodeVerdicts(raw string) ([]analysis.Verdict, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrMalformedJSON, err)
	}

	switch t := v.(type) {
	case map[string]any:
		if !analysis.HasVerdictField(t) {
			return nil, fmt.Errorf("%w: object holds no verdict fields", analysis.ErrMalformedJSON)
		}
		return []analysis.Verdict{analysis.VerdictFromMap(t)}, nil
	case []any:
		out := make([]analysis.Verdict, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok && analysis.HasVerdictField(m) {
				out = append(out, analysis.VerdictFromMap(m))
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: array holds no verdict objects", analysis.ErrMalformedJSON)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T payload", analysis.ErrMalformedJSON, v)
	}
}
