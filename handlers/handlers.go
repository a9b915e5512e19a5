package handlers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/reelforge/reelforge-api/analysis"
	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/metrics"
	"github.com/reelforge/reelforge-api/pipeline"
	"github.com/reelforge/reelforge-api/store"
	"github.com/reelforge/reelforge-api/video"
)

// EditHandlersCollection bundles the dependencies of the public API
// handlers.
type EditHandlersCollection struct {
	Engine      *pipeline.Coordinator
	Store       *store.Store
	Fetcher     *clients.BlobFetcher
	Prober      video.Prober
	Analyzer    *analysis.Analyzer
	Metrics     *metrics.Metrics
	StorageRoot string
}

func (d *EditHandlersCollection) Ok() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if _, err := io.WriteString(w, "OK"); err != nil {
			log.LogNoRequestID("Failed to write HTTP response for " + req.URL.RawPath)
		}
	}
}

func HasContentType(r *http.Request, mimetype string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return mimetype == "application/octet-stream"
	}

	for _, v := range strings.Split(contentType, ",") {
		t, _, err := mime.ParseMediaType(v)
		if err != nil {
			break
		}
		if t == mimetype {
			return true
		}
	}

	return false
}
