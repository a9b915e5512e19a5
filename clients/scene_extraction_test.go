package clients

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSceneExtractionStartAndPoll(t *testing.T) {
	var polls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job_id": "ext-1", "status": "processing"}`))
	})
	mux.HandleFunc("/extract/ext-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"job_id": "ext-1", "status": "processing"}`))
			return
		}
		_, _ = fmt.Fprint(w, `{
			"job_id": "ext-1",
			"status": "completed",
			"scenes": [
				{"start": 0, "end": 12.5, "description": "opening shot"},
				{"start": 12.5, "end": 38, "description": "interview"}
			]
		}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	u, _ := url.Parse(ts.URL + "/extract")
	c := NewSceneExtractionClient(u, "key")

	jobID, err := c.StartExtraction("req1", SceneExtractionRequest{
		VideoURL:         "http://example.com/video.mp4",
		ExtractionType:   "shot_based",
		ExtractionConfig: map[string]any{"threshold": 20},
	})
	require.NoError(t, err)
	require.Equal(t, "ext-1", jobID)

	scenes, err := c.AwaitExtraction("req1", jobID)
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	require.Equal(t, "opening shot", scenes[0].Description)
	require.GreaterOrEqual(t, polls.Load(), int64(3))
}

func TestSceneExtractionFailedJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract/ext-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job_id": "ext-2", "status": "failed", "error": "decode error"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	u, _ := url.Parse(ts.URL + "/extract")
	c := NewSceneExtractionClient(u, "")

	_, err := c.AwaitExtraction("req1", "ext-2")
	require.ErrorContains(t, err, "decode error")
}
