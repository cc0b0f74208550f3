package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictFromMap(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want Verdict
	}{
		{
			name: "all fields",
			in: map[string]any{
				"is_attack":         true,
				"need_test_command": true,
				"shell_script":      "curl -I target",
				"general_response":  "scan",
			},
			want: Verdict{IsAttack: true, NeedsTestCommand: true, TestCommand: "curl -I target", Explanation: "scan"},
		},
		{
			name: "missing fields default",
			in:   map[string]any{},
			want: Verdict{Explanation: DefaultExplanation},
		},
		{
			name: "wrong types default",
			in: map[string]any{
				"is_attack":         "true",
				"need_test_command": 1.0,
				"shell_script":      []any{"ls"},
				"general_response":  42.0,
			},
			want: Verdict{Explanation: DefaultExplanation},
		},
		{
			name: "blank explanation defaults",
			in:   map[string]any{"is_attack": true, "general_response": "   "},
			want: Verdict{IsAttack: true, Explanation: DefaultExplanation},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerdictFromMap(tc.in))
		})
	}
}

func TestSummaryNormalize(t *testing.T) {
	s := Summary{Verdict: Verdict{IsAttack: true}}
	got := s.Normalize()
	assert.True(t, got.IsAttack)
	assert.Equal(t, DefaultExplanation, got.Explanation)
	assert.Empty(t, got.TestCommand)
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeBatch.Valid())
	assert.True(t, ModePerRecord.Valid())
	assert.False(t, Mode("stream").Valid())
}

func TestHasVerdictField(t *testing.T) {
	assert.False(t, HasVerdictField(map[string]any{}))
	assert.False(t, HasVerdictField(map[string]any{"status": "ok"}))
	assert.True(t, HasVerdictField(map[string]any{"is_attack": false}))
	assert.True(t, HasVerdictField(map[string]any{"general_response": nil}))
}
