package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func llmResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 50},
	})
	return string(b)
}

func newTestLLMClient(t *testing.T, handler http.HandlerFunc) (*LLMClient, *httptest.Server) {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	c := NewLLMClient(u, "test-key", "test-model")
	return c, ts
}

func TestGenerateStructuredParsesContent(t *testing.T) {
	c, _ := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Equal(t, 0.3, req.Temperature)
		require.Equal(t, 6000, req.MaxTokens)
		require.Equal(t, "json_schema", req.ResponseFormat.Type)

		_, _ = w.Write([]byte(llmResponse(`{"edl": []}`)))
	})

	out, usage, err := c.GenerateStructured("req1", []ChatMessage{{Role: "user", Content: "hi"}}, "edit_plan", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"edl": []}`, string(out))
	require.Equal(t, 100, usage.PromptTokens)
	require.Equal(t, 50, usage.CompletionTokens)
}

func TestGenerateStructuredStripsFences(t *testing.T) {
	c, _ := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(llmResponse("```json\n{\"a\": 1}\n```")))
	})

	out, _, err := c.GenerateStructured("req1", nil, "edit_plan", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a": 1}`, string(out))
}

func TestGenerateStructuredRetriesOn429And5xx(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(llmResponse(`{"ok": true}`)))
		}
	})

	out, _, err := c.GenerateStructured("req1", nil, "edit_plan", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(out))
	require.EqualValues(t, 3, calls.Load())
}

func TestGenerateStructuredDoesNotRetry4xx(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, _, err := c.GenerateStructured("req1", nil, "edit_plan", json.RawMessage(`{}`))
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load())
}

func TestGenerateStructuredRepairsTruncatedJSON(t *testing.T) {
	c, _ := newTestLLMClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(llmResponse(`{"edl": [{"start": 0, "end": 2.5},`)))
	})

	out, _, err := c.GenerateStructured("req1", nil, "edit_plan", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"edl": [{"start": 0, "end": 2.5}]}`, string(out))
}

func TestUnconfiguredLLMClient(t *testing.T) {
	c := NewLLMClient(nil, "", "")
	_, _, err := c.GenerateStructured("req1", nil, "edit_plan", json.RawMessage(`{}`))
	require.ErrorContains(t, err, "not configured")
}

func TestStripMarkdownFences(t *testing.T) {
	require.Equal(t, `{"a": 1}`, StripMarkdownFences("```json\n{\"a\": 1}\n```"))
	require.Equal(t, `{"a": 1}`, StripMarkdownFences("```\n{\"a\": 1}\n```"))
	require.Equal(t, `{"a": 1}`, StripMarkdownFences(`{"a": 1}`))
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "trailing comma in object",
			in:       `{"a": 1,}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "trailing comma in array",
			in:       `{"a": [1, 2,]}`,
			expected: `{"a": [1, 2]}`,
		},
		{
			name:     "two open braces and one open bracket appends bracket then braces",
			in:       `{"a": {"b": [1, 2`,
			expected: `{"a": {"b": [1, 2]}}`,
		},
		{
			name:     "comma dangling at end of truncated array",
			in:       `{"edl": [{"start": 0, "end": 2.5},`,
			expected: `{"edl": [{"start": 0, "end": 2.5}]}`,
		},
		{
			name:     "balanced input untouched",
			in:       `{"a": [1]}`,
			expected: `{"a": [1]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, RepairJSON(tt.in))
		})
	}
}
