package analysis

import (
	"context"
	"fmt"

	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/store"
	"github.com/reelforge/reelforge-api/video"
)

const summaryMaxLength = 300

// MediaStore is the slice of the media repository the analyzer needs.
type MediaStore interface {
	Get(id string) (store.Media, error)
	SetStatus(id, status string) error
	SetSummary(id, summary string) error
}

// AnalyzeRequest selects which passes to run for one media.
type AnalyzeRequest struct {
	Granularity   float64 `json:"granularity,omitempty"`
	CaptionPrompt string  `json:"caption_prompt,omitempty"`
	SceneMode     string  `json:"scene_mode,omitempty"`
	Transcribe    bool    `json:"transcribe"`
}

type AnalyzeResult struct {
	MediaID            string       `json:"media_id"`
	Frames             SampleReport `json:"frames"`
	Scenes             int          `json:"scenes"`
	TranscriptSegments int          `json:"transcript_segments"`
}

// Analyzer composes the three analysis passes over an already ingested
// (downloaded and probed) media.
type Analyzer struct {
	Media       MediaStore
	Sampler     *FrameSampler
	Segmenter   *SceneSegmenter
	Transcriber *Transcriber
}

func NewAnalyzer(media MediaStore, sampler *FrameSampler, segmenter *SceneSegmenter, transcriber *Transcriber) *Analyzer {
	return &Analyzer{Media: media, Sampler: sampler, Segmenter: segmenter, Transcriber: transcriber}
}

// Analyze runs the requested passes sequentially. Frame captioning fans out
// internally; the passes themselves stay ordered so a transcript-derived
// summary can fill in for media that arrived without one.
func (a *Analyzer) Analyze(ctx context.Context, requestID, mediaID string, req AnalyzeRequest) (AnalyzeResult, error) {
	media, err := a.Media.Get(mediaID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if media.LocalPath == "" {
		return AnalyzeResult{}, xerrors.Wrap(xerrors.KindInvalidInput,
			fmt.Errorf("media %s has not been ingested yet", mediaID))
	}
	info := video.MediaInfo{Duration: media.DurationSeconds, FPS: media.FPS, Width: media.Width, Height: media.Height}

	ctx = log.WithLogValues(ctx, "request_id", requestID, "media_id", mediaID)
	result := AnalyzeResult{MediaID: mediaID}

	result.Frames, err = a.Sampler.SampleAndCaption(ctx, requestID, mediaID, media.LocalPath, info, req.Granularity, req.CaptionPrompt)
	if err != nil {
		return result, err
	}
	log.LogCtx(ctx, "frame captioning finished",
		"completed", result.Frames.Completed, "failed", result.Frames.Failed, "skipped", result.Frames.Skipped)

	scenes, err := a.Segmenter.Segment(requestID, mediaID, media.URL, req.SceneMode, media.DurationSeconds)
	if err != nil {
		return result, err
	}
	result.Scenes = len(scenes)
	log.LogCtx(ctx, "scene segmentation finished", "scenes", result.Scenes)

	if req.Transcribe {
		transcript, err := a.Transcriber.Transcribe(requestID, mediaID, media.LocalPath, "", media.HasAudio)
		if err != nil {
			return result, err
		}
		result.TranscriptSegments = transcript.SegmentCount
		if media.Summary == "" && transcript.SegmentCount > 0 {
			if summary := summaryFromTranscript(transcript.Segments, summaryMaxLength); summary != "" {
				if err := a.Media.SetSummary(mediaID, summary); err != nil {
					return result, err
				}
			}
		}
	}

	if err := a.Media.SetStatus(mediaID, "analyzed"); err != nil {
		return result, err
	}
	return result, nil
}
