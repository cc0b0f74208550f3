package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		kinds []string
	}{
		{
			name:  "clean",
			line:  `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326 "-" "Mozilla/5.0"`,
			kinds: nil,
		},
		{
			name:  "sqlmap traversal forbidden",
			line:  `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET /?file=../../etc/passwd HTTP/1.1" 403 12 "-" "sqlmap/1.7"`,
			kinds: []string{KindSuspiciousTool, KindSuspiciousRequest, KindSuspiciousRequest, KindAccessDenied},
		},
		{
			name:  "curl admin server error",
			line:  `5.6.7.8 - - [10/Oct/2023:13:55:36 +0000] "POST /admin/login HTTP/1.1" 500 0 "-" "curl/8.0"`,
			kinds: []string{KindSuspiciousTool, KindSuspiciousRequest, KindServerError},
		},
		{
			name:  "status without surrounding spaces is ignored",
			line:  "status=403",
			kinds: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := AnalyzeLine(tt.line, 7)
			if tt.kinds == nil {
				assert.Nil(t, rep)
				return
			}
			require.NotNil(t, rep)
			assert.Equal(t, 7, rep.LineNumber)
			assert.Equal(t, tt.line, rep.Content)
			kinds := make([]string, 0, len(rep.Issues))
			for _, is := range rep.Issues {
				kinds = append(kinds, is.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestAnalyzeText(t *testing.T) {
	text := "GET / 200 ok\nGET /admin 200 x\n\nUser-Agent: python-requests/2.31\n"

	got := AnalyzeText(text)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].LineNumber)
	assert.Equal(t, 4, got[1].LineNumber)
	assert.Equal(t, "uses python-requests", got[1].Issues[0].Details)
}

func TestAnalyzeTextEmpty(t *testing.T) {
	got := AnalyzeText("")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
