package analysis

import "strings"

// DefaultExplanation is used whenever a reply carries no usable explanation.
const DefaultExplanation = "no analysis result"

// verdictKeys are the wire fields of a verdict object.
var verdictKeys = [...]string{"is_attack", "need_test_command", "shell_script", "general_response"}

// HasVerdictField reports whether m carries at least one verdict field.
// Placeholder objects such as {} do not count as a verdict.
func HasVerdictField(m map[string]any) bool {
	for _, k := range verdictKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// VerdictFromMap builds a Verdict out of a decoded JSON object.
// Missing or wrong-typed fields fall back to their defaults.
func VerdictFromMap(m map[string]any) Verdict {
	v := Verdict{}
	if b, ok := m["is_attack"].(bool); ok {
		v.IsAttack = b
	}
	if b, ok := m["need_test_command"].(bool); ok {
		v.NeedsTestCommand = b
	}
	if s, ok := m["shell_script"].(string); ok {
		v.TestCommand = s
	}
	if s, ok := m["general_response"].(string); ok {
		v.Explanation = s
	}
	return v.Normalize()
}

// Normalize applies field defaulting so callers never see an empty explanation.
func (v Verdict) Normalize() Verdict {
	v.TestCommand = strings.TrimSpace(v.TestCommand)
	if strings.TrimSpace(v.Explanation) == "" {
		v.Explanation = DefaultExplanation
	}
	return v
}

// Normalize applies the verdict defaults to the summary fields.
func (s Summary) Normalize() Summary {
	s.Verdict = s.Verdict.Normalize()
	return s
}
