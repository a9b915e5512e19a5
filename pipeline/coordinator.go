// Package pipeline coordinates the end-to-end edit flow: ingest the source
// videos, generate an edit plan, render it, upload the results, and fire the
// webhook. API handlers call the coordinator and never block; the actual
// work runs in background goroutines keyed by job ID.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-api/agent"
	"github.com/reelforge/reelforge-api/analysis"
	"github.com/reelforge/reelforge-api/cache"
	"github.com/reelforge/reelforge-api/clients"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/metrics"
	"github.com/reelforge/reelforge-api/render"
	"github.com/reelforge/reelforge-api/store"
	"github.com/reelforge/reelforge-api/video"
)

// SourceVideo is one input to a generate request. A caller may ship a
// precomputed description corpus inline; sources without one are analyzed
// on ingest.
type SourceVideo struct {
	VideoID    string                      `json:"video_id,omitempty"`
	URL        string                      `json:"url"`
	Summary    string                      `json:"summary,omitempty"`
	Frames     []agent.Frame               `json:"frames,omitempty"`
	Scenes     []agent.Scene               `json:"scenes,omitempty"`
	Transcript []clients.TranscriptSegment `json:"transcript,omitempty"`
}

// GenerateRequest is the payload of POST /api/ai-edit/generate.
type GenerateRequest struct {
	VideosData   []SourceVideo       `json:"videos_data"`
	Summary      string              `json:"summary,omitempty"`
	StoryIntent  agent.StoryIntent   `json:"story_intent,omitempty"`
	StoryPrompt  string              `json:"story_prompt,omitempty"`
	AutoApply    bool                `json:"auto_apply"`
	AspectRatios []video.AspectRatio `json:"aspect_ratios,omitempty"`
	BurnCaptions bool                `json:"burn_captions,omitempty"`
	CallbackURL  string              `json:"callback_url,omitempty"`
	CallbackData json.RawMessage     `json:"callback_data,omitempty"`
}

// ApplyRequest is the payload of POST /api/ai-edit/apply/:jobID.
type ApplyRequest struct {
	AspectRatios []video.AspectRatio `json:"aspect_ratios,omitempty"`
	BurnCaptions bool                `json:"burn_captions,omitempty"`
	CallbackURL  string              `json:"callback_url,omitempty"`
	CallbackData json.RawMessage     `json:"callback_data,omitempty"`
}

// JobInfo is the in-memory state of one running job; durable state lives in
// the job store.
type JobInfo struct {
	mu sync.Mutex

	JobID     string
	RequestID string
	Kind      string
	Request   GenerateRequest

	Stage       string
	OutputPaths []string
	StorageURLs []string

	// populated by the ingest and generate stages, reused by later stages
	sources     map[string]render.Source
	videos      []agent.VideoData
	renderEDL   []agent.RenderSegment
	transcripts map[string][]clients.TranscriptSegment
}

// Coordinator wires every pipeline dependency explicitly. It should be
// called directly from the API handlers and never blocks on execution.
type Coordinator struct {
	Fetcher     *clients.BlobFetcher
	Prober      video.Prober
	Analyzer    *analysis.Analyzer
	Agent       *agent.StorytellingAgent
	Renderer    *render.Renderer
	ObjectStore *clients.ObjectStoreClient
	Callback    clients.CallbackClient
	Store       *store.Store
	Metrics     *metrics.Metrics
	StorageRoot string

	Jobs *cache.Cache[*JobInfo]
}

func NewCoordinator(fetcher *clients.BlobFetcher, prober video.Prober, analyzer *analysis.Analyzer,
	editAgent *agent.StorytellingAgent, renderer *render.Renderer, objectStore *clients.ObjectStoreClient,
	callback clients.CallbackClient, st *store.Store, m *metrics.Metrics, storageRoot string) *Coordinator {
	return &Coordinator{
		Fetcher:     fetcher,
		Prober:      prober,
		Analyzer:    analyzer,
		Agent:       editAgent,
		Renderer:    renderer,
		ObjectStore: objectStore,
		Callback:    callback,
		Store:       st,
		Metrics:     m,
		StorageRoot: storageRoot,
		Jobs:        cache.New[*JobInfo](),
	}
}

// StartGenerateJob persists a new job record and schedules the pipeline.
// With auto_apply the job runs all four stages; without it the job stops
// after plan generation.
func (c *Coordinator) StartGenerateJob(requestID string, req GenerateRequest) (string, error) {
	if len(req.VideosData) == 0 {
		return "", xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("videos_data must not be empty"))
	}
	for i := range req.VideosData {
		if req.VideosData[i].URL == "" {
			return "", xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("videos_data[%d] has no url", i))
		}
		if req.VideosData[i].VideoID == "" {
			req.VideosData[i].VideoID = uuid.New().String()
		}
	}
	if len(req.AspectRatios) == 0 {
		req.AspectRatios = []video.AspectRatio{video.AspectRatio9x16}
	}
	for _, ar := range req.AspectRatios {
		if !ar.IsValid() {
			return "", xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("unsupported aspect ratio %q", ar))
		}
	}

	kind := store.JobKindGenerate
	if req.AutoApply {
		kind = store.JobKindPipeline
	}
	jobID := uuid.New().String()
	input, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	if err := c.Store.Jobs.Insert(jobID, kind, input); err != nil {
		return "", err
	}
	log.AddContext(requestID, "job_id", jobID)

	job := &JobInfo{JobID: jobID, RequestID: requestID, Kind: kind, Request: req}
	c.Jobs.Store(jobID, job)
	c.Metrics.JobsInFlight.Inc()

	c.runJobAsync(job, func() error {
		if err := c.Store.Jobs.MarkProcessing(job.JobID); err != nil {
			return err
		}
		if err := c.runStage(job, stageIngest, c.ingest); err != nil {
			return err
		}
		if err := c.runStage(job, stageGeneratePlan, c.generatePlan); err != nil {
			return err
		}
		if !job.Request.AutoApply {
			return nil
		}
		return c.renderUploadCallback(job)
	})
	return jobID, nil
}

// StartApplyJob schedules a render of an already generated plan. It returns
// the new edit job's ID.
func (c *Coordinator) StartApplyJob(requestID, planJobID string, req ApplyRequest) (string, error) {
	planJob, err := c.Store.Jobs.Get(planJobID)
	if err != nil {
		return "", err
	}
	if _, err := c.Store.Plans.Get(planJobID); err != nil {
		return "", err
	}

	var generateReq GenerateRequest
	if err := json.Unmarshal(planJob.Input, &generateReq); err != nil {
		return "", fmt.Errorf("error parsing stored input of job %s: %w", planJobID, err)
	}
	if len(req.AspectRatios) > 0 {
		generateReq.AspectRatios = req.AspectRatios
	}
	generateReq.BurnCaptions = generateReq.BurnCaptions || req.BurnCaptions
	if req.CallbackURL != "" {
		generateReq.CallbackURL = req.CallbackURL
		generateReq.CallbackData = req.CallbackData
	}

	jobID := uuid.New().String()
	input, err := json.Marshal(map[string]any{"plan_job_id": planJobID, "request": generateReq})
	if err != nil {
		return "", err
	}
	if err := c.Store.Jobs.Insert(jobID, store.JobKindApply, input); err != nil {
		return "", err
	}
	log.AddContext(requestID, "job_id", jobID, "plan_job_id", planJobID)

	job := &JobInfo{JobID: jobID, RequestID: requestID, Kind: store.JobKindApply, Request: generateReq}
	c.Jobs.Store(jobID, job)
	c.Metrics.JobsInFlight.Inc()

	c.runJobAsync(job, func() error {
		if err := c.Store.Jobs.MarkProcessing(job.JobID); err != nil {
			return err
		}
		if err := c.runStage(job, stageIngest, c.ingest); err != nil {
			return err
		}
		if err := c.loadPlan(job, planJobID); err != nil {
			return err
		}
		return c.renderUploadCallback(job)
	})
	return jobID, nil
}

func (c *Coordinator) renderUploadCallback(job *JobInfo) error {
	if err := c.runStage(job, stageApplyEdit, c.applyEdit); err != nil {
		return err
	}
	if err := c.runStage(job, stageUpload, c.uploadToStorage); err != nil {
		return err
	}
	return c.runStage(job, stageCallback, c.sendCallback)
}

// InFlightJobs reports how many pipeline jobs are currently running, which
// backs the capacity middleware.
func (c *Coordinator) InFlightJobs() int {
	return len(c.Jobs.GetKeys())
}

// runJobAsync runs the job body on a background goroutine, turning panics
// into job failures and finalizing the durable record either way.
func (c *Coordinator) runJobAsync(job *JobInfo, body func() error) {
	// nolint:errcheck
	go recovered(func() (t bool, e error) {
		job.mu.Lock()
		defer job.mu.Unlock()

		_, err := recovered(func() (bool, error) { return true, body() })
		c.finishJob(job, err)
		return
	})
}

func (c *Coordinator) finishJob(job *JobInfo, err error) {
	success := err == nil
	if err != nil {
		log.LogError(job.RequestID, "pipeline job failed", err, "kind", job.Kind, "stage", job.Stage)
		if ferr := c.Store.Jobs.Fail(job.JobID, err.Error()); ferr != nil {
			log.LogError(job.RequestID, "error persisting job failure", ferr)
		}
	} else {
		output, _ := json.Marshal(map[string]any{
			"output_paths": job.OutputPaths,
			"storage_urls": job.StorageURLs,
		})
		if cerr := c.Store.Jobs.Complete(job.JobID, output); cerr != nil {
			log.LogError(job.RequestID, "error persisting job completion", cerr)
		}
	}

	c.Jobs.Remove(job.JobID)
	c.Metrics.JobsInFlight.Dec()
	c.Metrics.PipelineResults.WithLabelValues(job.Kind, strconv.FormatBool(success)).Inc()
	log.Log(job.RequestID, "finished job and removed from job cache", "success", success)
}

func recovered[T any](f func() (T, error)) (t T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.LogNoRequestID("panic in pipeline background goroutine, recovering", "err", rec)
			err = fmt.Errorf("panic in pipeline job: %v", rec)
		}
	}()
	return f()
}

// runStage executes one named stage with retries, recording the stage log
// trail and per-stage metrics.
func (c *Coordinator) runStage(job *JobInfo, stage string, fn func(job *JobInfo) error) error {
	// A job cancelled externally is marked failed in the store; stop
	// before starting the next stage.
	if current, err := c.Store.Jobs.Get(job.JobID); err == nil && current.Status == store.JobStatusFailed {
		return xerrors.Unretriable(fmt.Errorf("job %s was cancelled", job.JobID))
	}

	job.Stage = stage
	start := time.Now()
	if err := c.Store.Jobs.AppendStage(job.JobID, store.StageEntry{Stage: stage, Message: "started", At: start}); err != nil {
		log.LogError(job.RequestID, "error appending stage log", err, "stage", stage)
	}

	err := c.retryStage(job, stage, fn)

	success := strconv.FormatBool(err == nil)
	c.Metrics.PipelineStageDurationSec.WithLabelValues(stage, success).Observe(time.Since(start).Seconds())
	message := "finished"
	if err != nil {
		message = "failed: " + err.Error()
		if len(message) > 200 {
			message = message[:200]
		}
	}
	if aerr := c.Store.Jobs.AppendStage(job.JobID, store.StageEntry{Stage: stage, Message: message, At: time.Now()}); aerr != nil {
		log.LogError(job.RequestID, "error appending stage log", aerr, "stage", stage)
	}
	return err
}
