package logsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// File reads a static access-log file on every fetch.
type File struct {
	Path string
	// SplitLines emits one record per non-blank line instead of one opaque blob.
	SplitLines bool
}

func NewFile(path string, splitLines bool) *File {
	return &File{Path: path, SplitLines: splitLines}
}

func (f *File) Fetch(ctx context.Context) ([]analysis.RequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", analysis.ErrSourceUnavailable, f.Path, err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !f.SplitLines {
		return []analysis.RequestRecord{{SourceLine: text}}, nil
	}

	var out []analysis.RequestRecord
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseCombined(line))
	}
	return out, nil
}

func (f *File) String() string {
	return "file:" + f.Path
}
