package agent

import (
	"strings"
	"testing"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/stretchr/testify/require"
)

func TestLengthPercentage(t *testing.T) {
	tests := []struct {
		name   string
		intent StoryIntent
		want   float64
	}{
		{"explicit", StoryIntent{DesiredLengthPercentage: 45}, 45},
		{"clamped low", StoryIntent{DesiredLengthPercentage: 10}, 25},
		{"clamped high", StoryIntent{DesiredLengthPercentage: 150}, 100},
		{"legacy short", StoryIntent{DesiredLength: "short"}, 30},
		{"legacy medium", StoryIntent{DesiredLength: "medium"}, 50},
		{"legacy long", StoryIntent{DesiredLength: "long"}, 85},
		{"unset", StoryIntent{}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.intent.LengthPercentage())
		})
	}
}

func TestTargetDuration(t *testing.T) {
	// 100s at 30% -> 30s, above the 20s floor
	require.InDelta(t, 30.0, TargetDuration(100, 30), 1e-9)
	// 50s at 30% -> 15s, lifted to the 20s floor
	require.InDelta(t, 20.0, TargetDuration(50, 30), 1e-9)
	// 10s source: floor is 0.6*10 = 6s, 30% -> 3s, lifted to 6s
	require.InDelta(t, 6.0, TargetDuration(10, 30), 1e-9)
	// 10s at 85% -> 8.5s, above the 6s floor
	require.InDelta(t, 8.5, TargetDuration(10, 85), 1e-9)
}

func singleVideo() VideoData {
	return VideoData{
		VideoID:  "v1",
		Duration: 120,
		Summary:  "a cooking demo",
		Frames: []Frame{
			{Timestamp: 0.5, Caption: "chef holds up a knife"},
			{Timestamp: 10, Caption: "chopping onions"},
		},
		Scenes: []Scene{
			{Start: 0, End: 15, Caption: "intro at the counter"},
		},
		Transcript: []clients.TranscriptSegment{
			{Start: 0, End: 2, Text: "welcome back everyone"},
		},
	}
}

func TestBuildPromptSingleVideo(t *testing.T) {
	var pb PromptBuilder
	prompt := pb.Build([]VideoData{singleVideo()}, StoryIntent{Tone: "energetic"})

	require.Contains(t, prompt, "Duration: 120.00 seconds")
	require.Contains(t, prompt, "- 0.50s: chef holds up a knife")
	require.Contains(t, prompt, "- 0.00s - 15.00s (15.00s): intro at the counter")
	require.Contains(t, prompt, `- 0.00s - 2.00s: "welcome back everyone"`)
	require.Contains(t, prompt, "Tone: energetic")
	// 120s at the default 30% -> 36s target
	require.Contains(t, prompt, "approximately 36.0 seconds")
	require.Contains(t, prompt, "within 5% of 36.0 seconds")
	require.NotContains(t, prompt, "video_id")
}

func TestBuildPromptCapsTargetAtHardLimit(t *testing.T) {
	var pb PromptBuilder
	v := singleVideo()
	v.Duration = 600
	prompt := pb.Build([]VideoData{v}, StoryIntent{DesiredLengthPercentage: 50})
	// 600s at 50% is 300s, capped to the 40s platform limit
	require.Contains(t, prompt, "approximately 40.0 seconds")
}

func TestBuildPromptTruncatesFrameList(t *testing.T) {
	v := singleVideo()
	v.Frames = makeFrames(60)
	var pb PromptBuilder
	prompt := pb.Build([]VideoData{v}, StoryIntent{})
	require.Contains(t, prompt, "... and 10 more frames")
	require.Equal(t, maxPromptFrames, strings.Count(prompt, ": caption "))
}

func TestBuildPromptMultiVideo(t *testing.T) {
	v1 := singleVideo()
	v2 := singleVideo()
	v2.VideoID = "v2"
	v2.Duration = 60

	var pb PromptBuilder
	prompt := pb.Build([]VideoData{v1, v2}, StoryIntent{})
	require.Contains(t, prompt, "You are editing 2 source videos")
	require.Contains(t, prompt, "Total source duration: 180.00 seconds")
	require.Contains(t, prompt, `=== VIDEO "v1" ===`)
	require.Contains(t, prompt, `=== VIDEO "v2" ===`)
	require.Contains(t, prompt, "MUST include the video_id")
}

func TestMessagesShape(t *testing.T) {
	var pb PromptBuilder
	msgs := pb.Messages([]VideoData{singleVideo()}, StoryIntent{})
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].Role)
	require.Contains(t, msgs[0].Content, "40 seconds or less")
	require.Equal(t, "user", msgs[1].Role)
}
