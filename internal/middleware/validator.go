package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// DefaultHistoryLimit is used when the limit query parameter is absent or not a number.
const DefaultHistoryLimit = 10

// ParseLimit reads a history limit. Missing or non-numeric input falls back to the default;
// a numeric value <= 0 is rejected.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultHistoryLimit, nil
	}
	if n <= 0 {
		return 0, analysis.ErrInvalidLimit
	}
	return n, nil
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// WriteError writes {"error":true,"message":...} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: true, Message: analysis.StripControl(msg)})
}
