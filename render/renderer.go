// Package render turns a validated render EDL into final MP4s, one per
// requested aspect ratio: per-segment extraction, concat, loudness
// normalization, optional caption burn-in, faststart.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge-api/agent"
	"github.com/reelforge/reelforge-api/clients"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/video"
)

const minRenderSegmentDuration = 0.1

// loudnorm targets short-form platform loudness.
const loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

const subtitleStyle = "FontSize=24,PrimaryColour=&Hffffff,OutlineColour=&H000000,Outline=2"

// Source is one input video available to the renderer. Path is normally the
// cached local copy; Fallback, when set, is retried once if extraction from
// Path fails.
type Source struct {
	Path     string
	Fallback string
	Info     video.MediaInfo
}

/// Request describes one render: the keep windows, the sources they cut
// from, and the output shapes.
type Request struct {
	EDL          []agent.RenderSegment
	Sources      map[string]Source
	AspectRatios []video.AspectRatio
	Transcripts  map[string][]clients.TranscriptSegment
	BurnCaptions bool
	OutputDir    string
}

type Renderer struct {
	Prober video.Prober
}

func NewRenderer(prober video.Prober) *Renderer {
	return &Renderer{Prober: prober}
}

// Render produces one MP4 per aspect ratio and returns their paths.
func (r *Renderer) Render(requestID string, req Request) ([]string, error) {
	edl, err := validateRenderEDL(requestID, req)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output dir: %w", err)
	}

	for _, ar := range req.AspectRatios {
		if !ar.IsValid() {
			return nil, xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("unsupported aspect ratio %q", ar))
		}
	}

	outputs := make([]string, len(req.AspectRatios))
	group := errgroup.Group{}
	for i := range req.AspectRatios {
		i := i
		ar := req.AspectRatios[i]
		group.Go(func() error {
			out, err := r.renderOne(requestID, req, edl, ar)
			outputs[i] = out
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func validateRenderEDL(requestID string, req Request) ([]agent.RenderSegment, error) {
	if len(req.EDL) == 0 {
		return nil, xerrors.Wrap(xerrors.KindValidationFailure, fmt.Errorf("render EDL is empty"))
	}
	edl := make([]agent.RenderSegment, 0, len(req.EDL))
	for i, seg := range req.EDL {
		src, ok := req.Sources[seg.VideoID]
		if !ok {
			return nil, xerrors.Wrap(xerrors.KindValidationFailure,
				fmt.Errorf("segment %d references unknown source %q", i, seg.VideoID))
		}
		if seg.Start < 0 || seg.End > src.Info.Duration || seg.Start >= seg.End {
			return nil, xerrors.Wrap(xerrors.KindValidationFailure,
				fmt.Errorf("segment %d range %.2f-%.2f is outside [0, %.2f]", i, seg.Start, seg.End, src.Info.Duration))
		}
		if seg.End-seg.Start < minRenderSegmentDuration {
			log.Log(requestID, "dropping sub-minimum render segment",
				"start", seg.Start, "end", seg.End)
			continue
		}
		edl = append(edl, seg)
	}
	if len(edl) == 0 {
		return nil, xerrors.Wrap(xerrors.KindValidationFailure, fmt.Errorf("render EDL has no usable segments"))
	}
	return edl, nil
}

func (r *Renderer) renderOne(requestID string, req Request, edl []agent.RenderSegment, ar video.AspectRatio) (string, error) {
	workDir, err := os.MkdirTemp(req.OutputDir, "segments-"+ar.FileSuffix()+"-")
	if err != nil {
		return "", fmt.Errorf("error creating segment dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segmentPaths := make([]string, 0, len(edl))
	for i, seg := range edl {
		src := req.Sources[seg.VideoID]
		segPath := filepath.Join(workDir, fmt.Sprintf("segment_%04d.mp4", i))
		filterGraph := video.FilterGraph(ar, src.Info.Width, src.Info.Height)

		if err := video.ExtractSegment(src.Path, segPath, seg.Start, seg.End, filterGraph); err != nil {
			if src.Fallback == "" || src.Fallback == src.Path {
				return "", xerrors.Wrap(xerrors.KindRenderFailure, err)
			}
			log.LogError(requestID, "segment extraction failed, retrying against fallback source", err,
				"video_id", seg.VideoID)
			if err := video.ExtractSegment(src.Fallback, segPath, seg.Start, seg.End, filterGraph); err != nil {
				return "", xerrors.Wrap(xerrors.KindRenderFailure, err)
			}
		}
		segmentPaths = append(segmentPaths, segPath)
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := writeConcatList(listPath, segmentPaths); err != nil {
		return "", err
	}

	hasAudio, err := r.firstSegmentHasAudio(requestID, segmentPaths[0])
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(req.OutputDir, fmt.Sprintf("edited_%s.mp4", ar.FileSuffix()))
	kwargs := ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   "medium",
		"crf":      23,
		"movflags": "+faststart",
	}
	if hasAudio {
		kwargs["c:a"] = "aac"
		kwargs["af"] = loudnormFilter
	} else {
		kwargs["an"] = ""
	}

	if req.BurnCaptions && hasTranscript(req.Transcripts) {
		cues := BuildCaptionCues(edl, req.Transcripts)
		if len(cues) > 0 {
			srtPath := filepath.Join(workDir, "captions.srt")
			if err := video.WriteSRT(cues, srtPath); err != nil {
				return "", err
			}
			kwargs["vf"] = fmt.Sprintf("subtitles=%s:force_style='%s'", srtPath, subtitleStyle)
		}
	}

	err = ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(outputPath, kwargs).
		OverWriteOutput().ErrorToStdOut().Run()
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindRenderFailure,
			fmt.Errorf("failed to concat %d segments into %s: %w", len(segmentPaths), outputPath, err))
	}

	log.Log(requestID, "rendered output", "aspect_ratio", string(ar), "path", outputPath,
		"segments", len(segmentPaths), "has_audio", hasAudio)
	return outputPath, nil
}

func (r *Renderer) firstSegmentHasAudio(requestID, path string) (bool, error) {
	info, err := r.Prober.ProbeFile(requestID, path)
	if err != nil {
		return false, xerrors.Wrap(xerrors.KindRenderFailure, fmt.Errorf("error probing first segment: %w", err))
	}
	return info.HasAudio, nil
}

func writeConcatList(listPath string, segmentPaths []string) error {
	var b strings.Builder
	for _, p := range segmentPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("error writing concat list: %w", err)
	}
	return nil
}

func hasTranscript(transcripts map[string][]clients.TranscriptSegment) bool {
	for _, segs := range transcripts {
		if len(segs) > 0 {
			return true
		}
	}
	return false
}

// BuildCaptionCues remaps transcript segments from source time to the
// output timeline: for each keep window, overlapping cues are clamped to
// the window and shifted by the accumulated output offset.
func BuildCaptionCues(edl []agent.RenderSegment, transcripts map[string][]clients.TranscriptSegment) []video.SubtitleCue {
	var cues []video.SubtitleCue
	var elapsed float64
	for _, window := range edl {
		for _, seg := range transcripts[window.VideoID] {
			if seg.End <= window.Start || seg.Start >= window.End {
				continue
			}
			start := seg.Start
			if start < window.Start {
				start = window.Start
			}
			end := seg.End
			if end > window.End {
				end = window.End
			}
			cues = append(cues, video.SubtitleCue{
				Start: elapsed + (start - window.Start),
				End:   elapsed + (end - window.Start),
				Text:  seg.Text,
			})
		}
		elapsed += window.End - window.Start
	}
	return cues
}
