package agent

import (
	"math"
	"sort"
	"strings"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/log"
)

// Compressor reduces a description corpus to fit in an LLM context window.
// Strategies mirror the frame sampler: temporal sampling keeps first and last
// plus evenly spaced middle frames, importance keeps the richest captions.
type Compressor struct {
	MaxFrames             int
	MaxScenes             int
	MaxTranscriptSegments int
}

func NewCompressor(maxFrames, maxScenes, maxTranscriptSegments int) *Compressor {
	return &Compressor{
		MaxFrames:             maxFrames,
		MaxScenes:             maxScenes,
		MaxTranscriptSegments: maxTranscriptSegments,
	}
}

// Compress returns a compressed copy of data plus compression telemetry.
// Strategy names: frames "temporal_sampling" | "importance_based" |
// "scene_based", scenes "all" | "key_moments", transcript "temporal" |
// "density".
func (c *Compressor) Compress(requestID string, data VideoData, frameStrategy, sceneStrategy, transcriptStrategy string) (VideoData, CompressionMetadata) {
	usable := usableFrames(data.Frames)

	out := data
	out.Frames = c.compressFrames(usable, frameStrategy)
	out.Scenes = c.compressScenes(data.Scenes, sceneStrategy)
	out.Transcript = c.compressTranscript(data.Transcript, transcriptStrategy)

	meta := CompressionMetadata{
		TotalFrames:                len(data.Frames),
		TotalScenes:                len(data.Scenes),
		TotalSegments:              len(data.Transcript),
		CompressedFrames:           len(out.Frames),
		CompressedScenes:           len(out.Scenes),
		CompressedSegments:         len(out.Transcript),
		FrameCompressionRatio:      ratio(len(out.Frames), len(data.Frames)),
		SceneCompressionRatio:      ratio(len(out.Scenes), len(data.Scenes)),
		TranscriptCompressionRatio: ratio(len(out.Transcript), len(data.Transcript)),
	}
	log.Log(requestID, "compressed video context",
		"video_id", data.VideoID,
		"frames", meta.CompressedFrames, "of_frames", meta.TotalFrames,
		"scenes", meta.CompressedScenes, "of_scenes", meta.TotalScenes,
		"transcript_segments", meta.CompressedSegments, "of_segments", meta.TotalSegments)
	return out, meta
}

func ratio(compressed, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(compressed) / float64(total)
}

// usableFrames drops frames with empty captions or a failed caption pass.
func usableFrames(frames []Frame) []Frame {
	out := make([]Frame, 0, len(frames))
	for _, f := range frames {
		if strings.TrimSpace(f.Caption) == "" {
			continue
		}
		if f.Status != "" && f.Status != "completed" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (c *Compressor) compressFrames(frames []Frame, strategy string) []Frame {
	if len(frames) <= c.MaxFrames {
		return frames
	}
	switch strategy {
	case "importance_based":
		return importanceFrames(frames, c.MaxFrames)
	default:
		// scene_based has no per-frame scene mapping to lean on, so it
		// falls back to temporal sampling, as does any unknown strategy
		return temporalFrames(frames, c.MaxFrames)
	}
}

// temporalFrames keeps the first and last frame and evenly spaced frames in
// between, so the edges of the timeline always survive compression.
func temporalFrames(frames []Frame, max int) []Frame {
	sorted := make([]Frame, len(frames))
	copy(sorted, frames)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	n := len(sorted)
	target := max
	if n < target {
		target = n
	}
	if target <= 2 {
		if n == 1 {
			return sorted[:1]
		}
		return []Frame{sorted[0], sorted[n-1]}
	}

	picked := []Frame{sorted[0]}
	step := float64(n-2) / float64(target-2)
	for i := 1; i <= target-2; i++ {
		idx := int(1 + float64(i-1)*step)
		if idx < n-1 {
			picked = append(picked, sorted[idx])
		}
	}
	picked = append(picked, sorted[n-1])

	// dedupe by timestamp rounded to 10ms, then restore temporal order
	seen := map[float64]bool{}
	out := make([]Frame, 0, len(picked))
	for _, f := range picked {
		key := math.Round(f.Timestamp*100) / 100
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func importanceFrames(frames []Frame, max int) []Frame {
	sorted := make([]Frame, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].Caption) > len(sorted[j].Caption) })
	out := sorted[:max]
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func (c *Compressor) compressScenes(scenes []Scene, strategy string) []Scene {
	if len(scenes) <= c.MaxScenes {
		return scenes
	}
	if strategy == "key_moments" {
		sorted := make([]Scene, len(scenes))
		copy(sorted, scenes)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].End-sorted[i].Start > sorted[j].End-sorted[j].Start
		})
		out := sorted[:c.MaxScenes]
		sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
		return out
	}
	return scenes[:c.MaxScenes]
}

func (c *Compressor) compressTranscript(segments []clients.TranscriptSegment, strategy string) []clients.TranscriptSegment {
	if len(segments) <= c.MaxTranscriptSegments {
		return segments
	}
	if strategy == "density" {
		sorted := make([]clients.TranscriptSegment, len(segments))
		copy(sorted, segments)
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(strings.Fields(sorted[i].Text)) > len(strings.Fields(sorted[j].Text))
		})
		out := sorted[:c.MaxTranscriptSegments]
		sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
		return out
	}
	n := len(segments)
	step := float64(n) / float64(c.MaxTranscriptSegments)
	out := make([]clients.TranscriptSegment, 0, c.MaxTranscriptSegments)
	for i := 0; i < c.MaxTranscriptSegments; i++ {
		idx := int(float64(i) * step)
		if idx >= n {
			idx = n - 1
		}
		out = append(out, segments[idx])
	}
	return out
}
