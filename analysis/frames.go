// Package analysis runs the per-media description passes: frame sampling
// and captioning, scene segmentation, and transcription. Each pass persists
// its artifacts through the store so that downstream plan generation (and
// restarts) read from durable state.
package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/config"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/store"
	"github.com/reelforge/reelforge-api/video"
	"golang.org/x/sync/errgroup"
)

const defaultCaptionPrompt = "Describe what is happening in this video frame in one concise sentence."

// FrameStore is the slice of the frame repository the sampler needs.
type FrameStore interface {
	Exists(mediaID string, frameNumber int) (bool, error)
	Upsert(f store.FrameRecord) error
}

// Captioner is the slice of the vision client the sampler needs.
type Captioner interface {
	CaptionImage(requestID, image, prompt string) (clients.CaptionResult, error)
}

// FrameSampler extracts one frame every granularity seconds and captions
// them concurrently through the vision capability.
type FrameSampler struct {
	Vision      Captioner
	Frames      FrameStore
	Concurrency int
}

func NewFrameSampler(vision Captioner, frames FrameStore) *FrameSampler {
	return &FrameSampler{
		Vision:      vision,
		Frames:      frames,
		Concurrency: config.CaptionConcurrency,
	}
}

// SampleReport aggregates one sampling pass.
type SampleReport struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SampleAndCaption extracts frames from localPath at the given granularity
// and captions each. A failing caption marks the frame failed without
// aborting the pass; frames already persisted are skipped so the pass is
// restartable.
func (s *FrameSampler) SampleAndCaption(ctx context.Context, requestID, mediaID, localPath string, info video.MediaInfo, granularitySecs float64, captionPrompt string) (SampleReport, error) {
	if granularitySecs <= 0 {
		granularitySecs = 1
	}
	if captionPrompt == "" {
		captionPrompt = defaultCaptionPrompt
	}
	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	everyNFrames := int(fps * granularitySecs)
	if everyNFrames < 1 {
		everyNFrames = 1
	}

	frameDir, err := os.MkdirTemp("", "frames-"+mediaID+"-")
	if err != nil {
		return SampleReport{}, fmt.Errorf("error creating frame dir: %w", err)
	}
	defer os.RemoveAll(frameDir)

	if err := video.ExtractFrames(localPath, filepath.Join(frameDir, "%06d.jpg"), everyNFrames); err != nil {
		return SampleReport{}, err
	}

	entries, err := os.ReadDir(frameDir)
	if err != nil {
		return SampleReport{}, fmt.Errorf("error listing frame dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var report SampleReport
	report.Total = len(names)

	var completed, failed, skipped atomic.Int64
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.Concurrency)
	for i, name := range names {
		frameNumber := i * everyNFrames
		framePath := filepath.Join(frameDir, name)

		exists, err := s.Frames.Exists(mediaID, frameNumber)
		if err != nil {
			return report, err
		}
		if exists {
			skipped.Add(1)
			continue
		}

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			record := store.FrameRecord{
				MediaID:          mediaID,
				FrameNumber:      frameNumber,
				TimestampSeconds: float64(frameNumber) / fps,
			}
			caption, err := s.captionFile(requestID, framePath, captionPrompt)
			if err != nil {
				log.LogError(requestID, "frame caption failed", err, "media_id", mediaID, "frame_number", frameNumber)
				record.Status = "failed"
				record.Error = err.Error()
				failed.Add(1)
			} else {
				record.Caption = caption
				record.Status = "completed"
				completed.Add(1)
			}
			return s.Frames.Upsert(record)
		})
	}
	if err := group.Wait(); err != nil {
		return report, err
	}

	report.Completed = int(completed.Load())
	report.Failed = int(failed.Load())
	report.Skipped = int(skipped.Load())
	log.Log(requestID, "frame sampling finished", "media_id", mediaID,
		"total", report.Total, "completed", report.Completed,
		"failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

func (s *FrameSampler) captionFile(requestID, framePath, prompt string) (string, error) {
	raw, err := os.ReadFile(framePath)
	if err != nil {
		return "", fmt.Errorf("error reading frame %s: %w", framePath, err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)
	result, err := s.Vision.CaptionImage(requestID, dataURL, prompt)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
