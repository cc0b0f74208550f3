package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
)

func completionServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
"choices":[{"index":0,"message":{"role":"assistant","content":"{\"is_attack\": true}"},"finish_reason":"stop"}]}`

func TestCompleteReturnsContent(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, http.StatusOK, okBody, &seen)

	c := NewClient("test-key", "", srv.URL)
	got, err := c.Complete(context.Background(), ai.Prompt{System: "sys", User: "analyze this"})
	require.NoError(t, err)
	assert.Equal(t, `{"is_attack": true}`, got)

	assert.Equal(t, defaultModel, seen["model"])
	assert.EqualValues(t, maxTokens, seen["max_tokens"])
	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "analyze this", msgs[1].(map[string]any)["content"])
}

func TestCompleteReasoningModelUsesCompletionTokens(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, http.StatusOK, okBody, &seen)

	c := NewClient("test-key", "o3-mini", srv.URL)
	_, err := c.Complete(context.Background(), ai.Prompt{User: "x"})
	require.NoError(t, err)
	assert.EqualValues(t, maxTokens, seen["max_completion_tokens"])
	assert.NotContains(t, seen, "max_tokens")
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "credentials rejected",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantErr: ai.ErrAuth,
		},
		{
			name:    "quota",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			wantErr: ai.ErrQuotaExceeded,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"message":"boom","type":"server_error"}}`,
			wantErr: ai.ErrUpstream,
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`,
			wantErr: ai.ErrEmptyReply,
		},
		{
			name:    "blank content",
			status:  http.StatusOK,
			body:    `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"  "}}]}`,
			wantErr: ai.ErrEmptyReply,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := completionServer(t, tc.status, tc.body, nil)
			c := NewClient("test-key", "gpt-4o-mini", srv.URL)
			_, err := c.Complete(context.Background(), ai.Prompt{User: "x"})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCompleteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient("test-key", "", url)
	_, err := c.Complete(context.Background(), ai.Prompt{User: "x"})
	assert.ErrorIs(t, err, ai.ErrUpstream)
}

func TestCompleteTimeoutKeepsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient("test-key", "", srv.URL).Complete(ctx, ai.Prompt{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
