package logsource

import (
	"regexp"
	"strconv"
	"time"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

const clfTimeLayout = "02/Jan/2006:15:04:05 -0700"

// host ident user [time] "METHOD target proto" status bytes ["referer" "agent"]
var clfLine = regexp.MustCompile(`^(\S+) \S+ \S+ \[([^\]]+)\] "(\S+) (\S+)(?: [^"]*)?" (\d{3}) (?:\d+|-)`)

// ParseCombined fills record metadata from a Common/Combined Log Format line.
// Lines that do not match keep only SourceLine.
func ParseCombined(line string) analysis.RequestRecord {
	rec := analysis.RequestRecord{SourceLine: line}
	m := clfLine.FindStringSubmatch(line)
	if m == nil {
		return rec
	}
	rec.ClientIdentity = m[1]
	if ts, err := time.Parse(clfTimeLayout, m[2]); err == nil {
		rec.Timestamp = ts
	}
	rec.Method = m[3]
	rec.Endpoint = m[4]
	rec.StatusCode, _ = strconv.Atoi(m[5])
	return rec
}
