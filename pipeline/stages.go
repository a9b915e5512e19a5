package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reelforge/reelforge-api/agent"
	"github.com/reelforge/reelforge-api/analysis"
	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/config"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/render"
	"github.com/reelforge/reelforge-api/store"
)

const (
	stageIngest       = "ingest"
	stageGeneratePlan = "generate_edit_plan"
	stageApplyEdit    = "apply_edit"
	stageUpload       = "upload_to_storage"
	stageCallback     = "callback"

	stageMaxRetries = 3
	stageRetryDelay = 60 * time.Second
)

// retryStage retries transient stage failures up to stageMaxRetries times
// with a fixed delay. Unretriable errors (bad input, validation) fail
// immediately.
func (c *Coordinator) retryStage(job *JobInfo, stage string, fn func(job *JobInfo) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			if err := c.Store.Jobs.IncrementRetry(job.JobID); err != nil {
				log.LogError(job.RequestID, "error incrementing retry count", err)
			}
			log.Log(job.RequestID, "retrying pipeline stage", "stage", stage, "attempt", attempt)
		}
		err := fn(job)
		if err != nil && xerrors.IsUnretriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewConstantBackOff(stageRetryDelay), stageMaxRetries-1))
}

// ingest downloads and probes every source, persists the media rows, and
// assembles the per-video description corpus (inline if provided, otherwise
// by running the analysis passes).
func (c *Coordinator) ingest(job *JobInfo) error {
	job.sources = make(map[string]render.Source, len(job.Request.VideosData))
	job.videos = make([]agent.VideoData, 0, len(job.Request.VideosData))

	for _, src := range job.Request.VideosData {
		mediaID := src.VideoID
		if err := c.Store.Media.Insert(store.Media{ID: mediaID, URL: src.URL, Status: "pending"}); err != nil {
			return err
		}

		localPath, err := c.Fetcher.Fetch(job.RequestID, src.URL, mediaID, "source.mp4")
		if err != nil {
			return err
		}
		info, err := c.Prober.ProbeFile(job.RequestID, localPath)
		if err != nil {
			return err
		}
		if err := c.Store.Media.RecordProbe(mediaID, localPath, info); err != nil {
			return err
		}

		job.sources[mediaID] = render.Source{Path: localPath, Fallback: src.URL, Info: info}

		data := agent.VideoData{
			VideoID:    mediaID,
			URL:        src.URL,
			Duration:   info.Duration,
			Summary:    src.Summary,
			Frames:     src.Frames,
			Scenes:     src.Scenes,
			Transcript: src.Transcript,
		}
		if data.Summary == "" {
			data.Summary = job.Request.Summary
		}

		if len(data.Frames) == 0 && len(data.Scenes) == 0 && len(data.Transcript) == 0 {
			if c.Analyzer == nil {
				return xerrors.Wrap(xerrors.KindInvalidInput,
					fmt.Errorf("media %s has no description corpus and analysis capabilities are not configured", mediaID))
			}
			analyzed, err := c.Analyzer.Analyze(context.Background(), job.RequestID, mediaID, analysis.AnalyzeRequest{
				Granularity: config.DefaultFrameGranularitySecs,
				Transcribe:  true,
			})
			if err != nil {
				return err
			}
			c.Metrics.FrameCaptionResults.WithLabelValues("completed").Add(float64(analyzed.Frames.Completed))
			c.Metrics.FrameCaptionResults.WithLabelValues("failed").Add(float64(analyzed.Frames.Failed))
			if err := c.loadCorpus(mediaID, &data); err != nil {
				return err
			}
		}
		job.videos = append(job.videos, data)
	}

	// single-source plans may omit video_id; keep the lookup working
	if len(job.Request.VideosData) == 1 {
		only := job.sources[job.Request.VideosData[0].VideoID]
		job.sources[""] = only
	}
	return nil
}

func (c *Coordinator) loadCorpus(mediaID string, data *agent.VideoData) error {
	frames, err := c.Store.Frames.ListByMedia(mediaID)
	if err != nil {
		return err
	}
	for _, f := range frames {
		data.Frames = append(data.Frames, agent.Frame{
			FrameNumber: f.FrameNumber,
			Timestamp:   f.TimestampSeconds,
			Caption:     f.Caption,
			Status:      f.Status,
		})
	}

	scenes, err := c.Store.Scenes.ListByMedia(mediaID)
	if err != nil {
		return err
	}
	for _, s := range scenes {
		scene := agent.Scene{
			Index:   s.SceneIndex,
			Start:   s.StartSeconds,
			End:     s.EndSeconds,
			Caption: s.Caption,
		}
		if len(s.Metadata) > 0 {
			_ = json.Unmarshal(s.Metadata, &scene.Metadata)
		}
		data.Scenes = append(data.Scenes, scene)
	}

	transcript, err := c.Store.Transcripts.Get(mediaID)
	if err != nil {
		if xerrors.KindOf(err) != xerrors.KindNotFound {
			return err
		}
	} else {
		data.Transcript = transcript.Segments
	}

	media, err := c.Store.Media.Get(mediaID)
	if err == nil && data.Summary == "" {
		data.Summary = media.Summary
	}
	return nil
}

// generatePlan runs the storytelling agent and persists the plan row.
func (c *Coordinator) generatePlan(job *JobInfo) error {
	intent := job.Request.StoryIntent
	if intent.KeyMessage == "" && job.Request.StoryPrompt != "" {
		intent.KeyMessage = job.Request.StoryPrompt
	}

	result, err := c.Agent.GeneratePlan(job.RequestID, job.videos, intent)
	if err != nil {
		return err
	}

	planJSON, err := json.Marshal(result.Plan)
	if err != nil {
		return err
	}
	renderEDL, err := json.Marshal(result.RenderEDL)
	if err != nil {
		return err
	}
	warnings, _ := json.Marshal(result.Warnings)
	compression, _ := json.Marshal(result.Compression)

	if err := c.Store.Plans.Insert(store.PlanRecord{
		JobID:            job.JobID,
		Plan:             planJSON,
		RenderEDL:        renderEDL,
		Warnings:         warnings,
		Compression:      compression,
		PromptTokens:     result.TokenUsage.PromptTokens,
		CompletionTokens: result.TokenUsage.CompletionTokens,
	}); err != nil {
		return err
	}

	c.Metrics.LLMTokensUsed.WithLabelValues("prompt").Add(float64(result.TokenUsage.PromptTokens))
	c.Metrics.LLMTokensUsed.WithLabelValues("completion").Add(float64(result.TokenUsage.CompletionTokens))

	job.renderEDL = result.RenderEDL
	job.transcripts = transcriptsByVideo(job.videos)
	return nil
}

// loadPlan restores a persisted plan into the job, for apply jobs that run
// without a fresh generate stage.
func (c *Coordinator) loadPlan(job *JobInfo, planJobID string) error {
	plan, err := c.Store.Plans.Get(planJobID)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plan.RenderEDL, &job.renderEDL); err != nil {
		return fmt.Errorf("error parsing stored render EDL of job %s: %w", planJobID, err)
	}
	job.transcripts = transcriptsByVideo(job.videos)
	return nil
}

// applyEdit renders the EDL into one MP4 per aspect ratio.
func (c *Coordinator) applyEdit(job *JobInfo) error {
	for _, seg := range job.renderEDL {
		c.Metrics.RenderSegmentDurationSec.Observe(seg.End - seg.Start)
	}
	outputs, err := c.Renderer.Render(job.RequestID, render.Request{
		EDL:          job.renderEDL,
		Sources:      job.sources,
		AspectRatios: job.Request.AspectRatios,
		Transcripts:  job.transcripts,
		BurnCaptions: job.Request.BurnCaptions,
		OutputDir:    config.ProcessedDir(c.StorageRoot, job.JobID),
	})
	if err != nil {
		return err
	}
	job.OutputPaths = outputs
	return nil
}

// uploadToStorage pushes rendered outputs to the object store. An
// unconfigured store, or an upload failure without a webhook requested,
// leaves the pipeline successful with local paths only.
func (c *Coordinator) uploadToStorage(job *JobInfo) error {
	if !c.ObjectStore.IsConfigured() {
		log.Log(job.RequestID, "object store not configured, keeping local outputs only")
		return nil
	}
	for _, path := range job.OutputPaths {
		publicURL, err := c.ObjectStore.Upload(job.RequestID, path, "", job.JobID, filepath.Base(path))
		if err != nil {
			if job.Request.CallbackURL != "" {
				return err
			}
			log.LogError(job.RequestID, "upload failed, keeping local output", err, "path", path)
			continue
		}
		if st, err := os.Stat(path); err == nil {
			c.Metrics.ObjectStoreUploadedBytesTotal.Add(float64(st.Size()))
		}
		job.StorageURLs = append(job.StorageURLs, publicURL)
	}
	return nil
}

// sendCallback fires the webhook. Delivery failure is logged but never
// fails the pipeline: the render artifacts are already persisted.
func (c *Coordinator) sendCallback(job *JobInfo) error {
	if job.Request.CallbackURL == "" {
		return nil
	}
	var storageURL string
	if len(job.StorageURLs) > 0 {
		storageURL = job.StorageURLs[0]
	}
	err := c.Callback.SendWebhook(job.Request.CallbackURL, clients.WebhookPayload{
		StorageURL:   storageURL,
		CallbackData: job.Request.CallbackData,
	})
	if err != nil {
		log.LogError(job.RequestID, "webhook delivery failed", err, "callback_url", job.Request.CallbackURL)
		c.Metrics.WebhookResults.WithLabelValues("failure").Inc()
		return nil
	}
	c.Metrics.WebhookResults.WithLabelValues("success").Inc()
	return nil
}

func transcriptsByVideo(videos []agent.VideoData) map[string][]clients.TranscriptSegment {
	out := make(map[string][]clients.TranscriptSegment, len(videos)+1)
	for _, v := range videos {
		out[v.VideoID] = v.Transcript
	}
	if len(videos) == 1 {
		out[""] = videos[0].Transcript
	}
	return out
}
