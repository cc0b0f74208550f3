package analysis

import "strings"

// StripControl drops null bytes and control characters, keeping tabs and newlines,
// and trims surrounding space. Log text goes through it before reaching a prompt
// or an error body.
func StripControl(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
