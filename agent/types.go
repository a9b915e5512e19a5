package agent

import (
	"github.com/reelforge/reelforge-api/clients"
)

// Frame is one captioned sampled frame, as fed to the agent.
type Frame struct {
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp_seconds"`
	Caption     string  `json:"caption"`
	Status      string  `json:"status,omitempty"`
}

// Scene is one semantically coherent time range within a media.
type Scene struct {
	Index    int            `json:"index"`
	Start    float64        `json:"start"`
	End      float64        `json:"end"`
	Caption  string         `json:"caption"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VideoData is the per-video description corpus handed to the agent.
type VideoData struct {
	VideoID    string                      `json:"video_id"`
	URL        string                      `json:"url"`
	Duration   float64                     `json:"duration"`
	Summary    string                      `json:"summary,omitempty"`
	Frames     []Frame                     `json:"frames,omitempty"`
	Scenes     []Scene                     `json:"scenes,omitempty"`
	Transcript []clients.TranscriptSegment `json:"transcript,omitempty"`
}

type StoryArc struct {
	Hook       string `json:"hook,omitempty"`
	Build      string `json:"build,omitempty"`
	Climax     string `json:"climax,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

type StylePreferences struct {
	Pacing      string `json:"pacing,omitempty"`
	Transitions string `json:"transitions,omitempty"`
	Emphasis    string `json:"emphasis,omitempty"`
}

// StoryIntent is the user-supplied editing brief.
type StoryIntent struct {
	TargetAudience          string            `json:"target_audience,omitempty"`
	Tone                    string            `json:"tone,omitempty"`
	KeyMessage              string            `json:"key_message,omitempty"`
	DesiredLengthPercentage float64           `json:"desired_length_percentage,omitempty"`
	DesiredLength           string            `json:"desired_length,omitempty"` // legacy: short | medium | long
	StoryArc                *StoryArc         `json:"story_arc,omitempty"`
	StylePreferences        *StylePreferences `json:"style_preferences,omitempty"`
}

// LengthPercentage resolves the target duration fraction, mapping the legacy
// desired_length strings and clamping explicit percentages to [25, 100].
func (si StoryIntent) LengthPercentage() float64 {
	if si.DesiredLengthPercentage > 0 {
		pct := si.DesiredLengthPercentage
		if pct < 25 {
			pct = 25
		}
		if pct > 100 {
			pct = 100
		}
		return pct
	}
	switch si.DesiredLength {
	case "medium":
		return 50
	case "long":
		return 85
	default:
		// legacy "short" and unset both map to 30
		return 30
	}
}

// TargetDuration computes the edit's target length in seconds:
// max(minimum, duration*pct/100), with a 20 s floor for sources longer than
// 20 s and a 0.6*duration floor otherwise.
func TargetDuration(sourceDuration, pct float64) float64 {
	minimum := 0.6 * sourceDuration
	if sourceDuration > 20 {
		minimum = 20
	}
	target := sourceDuration * pct / 100
	if target < minimum {
		return minimum
	}
	return target
}

type SegmentType string

const (
	SegmentKeep       SegmentType = "keep"
	SegmentSkip       SegmentType = "skip"
	SegmentTransition SegmentType = "transition"
)

// Segment is one agent-form EDL entry.
type Segment struct {
	Start              float64     `json:"start"`
	End                float64     `json:"end"`
	Type               SegmentType `json:"type"`
	Reason             string      `json:"reason,omitempty"`
	TransitionType     string      `json:"transition_type,omitempty"`
	TransitionDuration float64     `json:"transition_duration,omitempty"`
	VideoID            string      `json:"video_id,omitempty"`
}

func (s Segment) Duration() float64 { return s.End - s.Start }

type StoryAnalysis struct {
	HookTimestamp       float64  `json:"hook_timestamp"`
	ClimaxTimestamp     float64  `json:"climax_timestamp"`
	ResolutionTimestamp *float64 `json:"resolution_timestamp,omitempty"`
}

type KeyMoment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Description string  `json:"description,omitempty"`
	Importance  string  `json:"importance,omitempty"`
	StoryRole   string  `json:"story_role,omitempty"`
}

type Transition struct {
	FromTimestamp float64 `json:"from_timestamp"`
	ToTimestamp   float64 `json:"to_timestamp"`
	Type          string  `json:"type"`
	Duration      float64 `json:"duration"`
}

// EditPlan is the agent's full output, persisted with its telemetry.
type EditPlan struct {
	EDL             []Segment     `json:"edl"`
	StoryAnalysis   StoryAnalysis `json:"story_analysis"`
	KeyMoments      []KeyMoment   `json:"key_moments,omitempty"`
	Transitions     []Transition  `json:"transitions,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

// CompressionMetadata reports how much of the corpus survived compression.
type CompressionMetadata struct {
	TotalFrames                int     `json:"total_frames"`
	TotalScenes                int     `json:"total_scenes"`
	TotalSegments              int     `json:"total_segments"`
	CompressedFrames           int     `json:"compressed_frames"`
	CompressedScenes           int     `json:"compressed_scenes"`
	CompressedSegments         int     `json:"compressed_segments"`
	FrameCompressionRatio      float64 `json:"frame_compression_ratio"`
	SceneCompressionRatio      float64 `json:"scene_compression_ratio"`
	TranscriptCompressionRatio float64 `json:"transcript_compression_ratio"`
}

// RenderSegment is the renderer-facing EDL form: keep windows only.
type RenderSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	VideoID string  `json:"video_id,omitempty"`
}
