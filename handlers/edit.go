package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"

	"github.com/reelforge/reelforge-api/config"
	"github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/pipeline"
	"github.com/reelforge/reelforge-api/store"
)

type GenerateEditResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// GenerateEdit accepts a generate request, schedules the pipeline, and
// returns immediately with the new job's ID.
func (d *EditHandlersCollection) GenerateEdit() httprouter.Handle {
	schema := inputSchemasCompiled["GenerateEdit"]

	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		start := time.Now()
		d.Metrics.GenerateRequestCount.Inc()

		var generateRequest pipeline.GenerateRequest
		if !HasContentType(req, "application/json") {
			errors.WriteHTTPUnsupportedMediaType(w, "Requires application/json content type", nil)
			return
		} else if payload, err := io.ReadAll(req.Body); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read payload", err)
			return
		} else if result, err := schema.Validate(gojsonschema.NewBytesLoader(payload)); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot validate payload", err)
			return
		} else if !result.Valid() {
			errors.WriteHTTPBadBodySchema("/api/ai-edit/generate", w, result.Errors())
			return
		} else if err := json.Unmarshal(payload, &generateRequest); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		requestID := config.RandomTrailer(8)
		log.AddContext(requestID, "source_count", len(generateRequest.VideosData))

		jobID, err := d.Engine.StartGenerateJob(requestID, generateRequest)
		if err != nil {
			apiErr := errors.WriteHTTPError(w, "Cannot start edit job", err)
			d.observeGenerate(start, false, apiErr.Status)
			return
		}

		d.respondJSON(w, requestID, http.StatusOK, GenerateEditResponse{
			JobID:     jobID,
			Status:    store.JobStatusQueued,
			RequestID: requestID,
		})
		d.observeGenerate(start, true, http.StatusOK)
	}
}

func (d *EditHandlersCollection) observeGenerate(start time.Time, success bool, status int) {
	d.Metrics.GenerateRequestDurationSec.
		WithLabelValues(fmt.Sprintf("%t", success), fmt.Sprintf("%d", status)).
		Observe(time.Since(start).Seconds())
}

// GetPlan returns the persisted plan for a generate job, plus job status.
func (d *EditHandlersCollection) GetPlan() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		jobID := ps.ByName("jobID")
		job, err := d.Store.Jobs.Get(jobID)
		if err != nil {
			errors.WriteHTTPError(w, "Cannot fetch job", err)
			return
		}

		response := map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		}
		if job.Error != "" {
			response["error"] = job.Error
		}

		plan, err := d.Store.Plans.Get(jobID)
		if err == nil {
			response["plan"] = plan.Plan
			response["render_edl"] = plan.RenderEDL
			if len(plan.Warnings) > 0 {
				response["warnings"] = plan.Warnings
			}
			if len(plan.Compression) > 0 {
				response["compression"] = plan.Compression
			}
			response["token_usage"] = map[string]int{
				"prompt_tokens":     plan.PromptTokens,
				"completion_tokens": plan.CompletionTokens,
			}
		} else if errors.KindOf(err) != errors.KindNotFound {
			errors.WriteHTTPError(w, "Cannot fetch plan", err)
			return
		}

		d.respondJSON(w, "", http.StatusOK, response)
	}
}

type ApplyEditResponse struct {
	EditJobID string `json:"edit_job_id"`
	Status    string `json:"status"`
}

// ApplyEdit schedules a render of an already generated plan.
func (d *EditHandlersCollection) ApplyEdit() httprouter.Handle {
	schema := inputSchemasCompiled["ApplyEdit"]

	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		planJobID := ps.ByName("jobID")

		var applyRequest pipeline.ApplyRequest
		if payload, err := io.ReadAll(req.Body); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read payload", err)
			return
		} else if len(payload) > 0 {
			if result, err := schema.Validate(gojsonschema.NewBytesLoader(payload)); err != nil {
				errors.WriteHTTPInternalServerError(w, "Cannot validate payload", err)
				return
			} else if !result.Valid() {
				errors.WriteHTTPBadBodySchema("/api/ai-edit/apply", w, result.Errors())
				return
			} else if err := json.Unmarshal(payload, &applyRequest); err != nil {
				errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
				return
			}
		}

		requestID := config.RandomTrailer(8)
		editJobID, err := d.Engine.StartApplyJob(requestID, planJobID, applyRequest)
		if err != nil {
			errors.WriteHTTPError(w, "Cannot start apply job", err)
			return
		}

		d.respondJSON(w, requestID, http.StatusOK, ApplyEditResponse{
			EditJobID: editJobID,
			Status:    store.JobStatusQueued,
		})
	}
}

// GetEditStatus returns a render job's status, with local output paths
// exposed as URLs under /storage/.
func (d *EditHandlersCollection) GetEditStatus() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		jobID := ps.ByName("jobID")
		job, err := d.Store.Jobs.Get(jobID)
		if err != nil {
			errors.WriteHTTPError(w, "Cannot fetch job", err)
			return
		}

		response := map[string]any{
			"job_id":      job.ID,
			"kind":        job.Kind,
			"status":      job.Status,
			"retry_count": job.RetryCount,
			"created_at":  job.CreatedAt,
		}
		if job.Error != "" {
			response["error"] = job.Error
		}
		if len(job.StageLog) > 0 {
			response["stage_log"] = job.StageLog
		}
		if len(job.Output) > 0 {
			var output struct {
				OutputPaths []string `json:"output_paths"`
				StorageURLs []string `json:"storage_urls"`
			}
			if err := json.Unmarshal(job.Output, &output); err == nil {
				response["output_urls"] = d.storageURLs(output.OutputPaths)
				if len(output.StorageURLs) > 0 {
					response["storage_urls"] = output.StorageURLs
				}
			}
		}

		d.respondJSON(w, "", http.StatusOK, response)
	}
}

// storageURLs converts local output paths under the storage root into URLs
// served from /storage/.
func (d *EditHandlersCollection) storageURLs(paths []string) []string {
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(d.StorageRoot, p); err == nil && !strings.HasPrefix(rel, "..") {
			urls = append(urls, "/storage/"+filepath.ToSlash(rel))
		} else {
			urls = append(urls, p)
		}
	}
	return urls
}

func (d *EditHandlersCollection) respondJSON(w http.ResponseWriter, requestID string, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		if requestID != "" {
			log.LogError(requestID, "error writing HTTP response", err)
		} else {
			log.LogNoRequestID("error writing HTTP response", "err", err)
		}
	}
}
