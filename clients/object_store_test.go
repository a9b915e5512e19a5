package clients

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectStoreUpload(t *testing.T) {
	var gotPath, gotUpsert, gotContentType string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUpsert = r.Header.Get("x-upsert")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	localPath := filepath.Join(t.TempDir(), "edited_16_9.mp4")
	require.NoError(t, os.WriteFile(localPath, []byte("mp4 bytes"), 0644))

	u, _ := url.Parse(ts.URL)
	c := NewObjectStoreClient(u, "key", "videos")

	publicURL, err := c.Upload("req1", localPath, "", "job-1", "edited_16_9.mp4")
	require.NoError(t, err)
	require.Equal(t, "/object/videos/job-1/edited_16_9.mp4", gotPath)
	require.Equal(t, "true", gotUpsert)
	require.Equal(t, "video/mp4", gotContentType)
	require.Equal(t, "mp4 bytes", string(gotBody))
	require.Equal(t, ts.URL+"/object/public/videos/job-1/edited_16_9.mp4", publicURL)
}

func TestObjectStoreUploadFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	localPath := filepath.Join(t.TempDir(), "f.mp4")
	require.NoError(t, os.WriteFile(localPath, []byte("x"), 0644))

	u, _ := url.Parse(ts.URL)
	c := NewObjectStoreClient(u, "", "videos")
	_, err := c.Upload("req1", localPath, "", "job-1", "f.mp4")
	require.ErrorContains(t, err, "403")
}

func TestObjectStoreUnconfigured(t *testing.T) {
	c := NewObjectStoreClient(nil, "", "")
	_, err := c.Upload("req1", "nope.mp4", "", "", "f.mp4")
	require.ErrorContains(t, err, "not configured")
}
