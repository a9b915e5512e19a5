package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptionImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "data:image/jpeg;base64,abcd", req["image"])
		require.Equal(t, "describe this frame", req["prompt"])

		_, _ = w.Write([]byte(`{"text": "a dog catching a frisbee", "model": "vision-1", "usage": {"prompt_tokens": 10, "completion_tokens": 8}}`))
	}))
	defer ts.Close()

	u, _ := url.Parse(ts.URL)
	c := NewVisionClient(u, "key", "vision-1")

	result, err := c.CaptionImage("req1", "data:image/jpeg;base64,abcd", "describe this frame")
	require.NoError(t, err)
	require.Equal(t, "a dog catching a frisbee", result.Text)
	require.Equal(t, "vision-1", result.Model)
	require.Equal(t, 8, result.Usage.CompletionTokens)
}

func TestCaptionImageFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	u, _ := url.Parse(ts.URL)
	c := NewVisionClient(u, "", "")
	_, err := c.CaptionImage("req1", "http://example.com/frame.jpg", "prompt")
	require.ErrorContains(t, err, "status 503")
}

func TestCaptionImageUnconfigured(t *testing.T) {
	var c *VisionClient
	require.False(t, c.IsConfigured())

	c = NewVisionClient(nil, "", "")
	_, err := c.CaptionImage("req1", "img", "prompt")
	require.ErrorContains(t, err, "not configured")
}
