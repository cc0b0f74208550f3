// Package heuristic flags access-log lines with fixed substring rules.
// It is a cheap local pre-check and never calls the LLM.
package heuristic

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// Issue kinds.
const (
	KindSuspiciousTool    = "suspicious_tool"
	KindSuspiciousRequest = "suspicious_request"
	KindAccessDenied      = "access_denied"
	KindServerError       = "server_error"
)

type Issue struct {
	Kind        string `json:"type"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

// LineReport lists the issues found on one line.
type LineReport struct {
	LineNumber int     `json:"line_number"`
	Content    string  `json:"line_content"`
	Issues     []Issue `json:"issues"`
}

type rule struct {
	needle      string
	description string
}

// order matters, reports list issues in rule order
var userAgents = []rule{
	{"sqlmap", "SQL injection tool"},
	{"Dalfox", "XSS scanner"},
	{"curl", "automation tool"},
	{"python-requests", "automation tool"},
}

var urlPatterns = []rule{
	{"file=../../", "path traversal attempt"},
	{"/admin", "admin page access"},
	{"/etc/passwd", "system file access attempt"},
}

var statusCode = regexp.MustCompile(`\s(\d{3})\s`)

// AnalyzeLine returns nil when the line matches no rule.
func AnalyzeLine(line string, lineNumber int) *LineReport {
	issues := make([]Issue, 0, 4)

	for _, r := range userAgents {
		if strings.Contains(line, r.needle) {
			issues = append(issues, Issue{Kind: KindSuspiciousTool, Description: r.description, Details: "uses " + r.needle})
		}
	}
	for _, r := range urlPatterns {
		if strings.Contains(line, r.needle) {
			issues = append(issues, Issue{Kind: KindSuspiciousRequest, Description: r.description, Details: fmt.Sprintf("contains %s pattern", r.needle)})
		}
	}

	if m := statusCode.FindStringSubmatch(line); m != nil {
		switch m[1] {
		case "403":
			issues = append(issues, Issue{Kind: KindAccessDenied, Description: "request blocked by a security control", Details: "HTTP 403 Forbidden"})
		case "500":
			issues = append(issues, Issue{Kind: KindServerError, Description: "request may have caused a server error", Details: "HTTP 500 Internal Server Error"})
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &LineReport{LineNumber: lineNumber, Content: line, Issues: issues}
}

// AnalyzeText runs AnalyzeLine over every line of text. Line numbers start at 1.
func AnalyzeText(text string) []LineReport {
	out := []LineReport{}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		if rep := AnalyzeLine(sc.Text(), n); rep != nil {
			out = append(out, *rep)
		}
	}
	return out
}
