package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reelforge/reelforge-api/agent"
	"github.com/reelforge/reelforge-api/clients"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/video"
	"github.com/stretchr/testify/require"
)

func testSources() map[string]Source {
	return map[string]Source{
		"": {Path: "/tmp/v.mp4", Info: video.MediaInfo{Duration: 100, Width: 1920, Height: 1080}},
	}
}

func TestValidateRenderEDLEmpty(t *testing.T) {
	_, err := validateRenderEDL("req1", Request{Sources: testSources()})
	require.Error(t, err)
	require.Equal(t, xerrors.KindValidationFailure, xerrors.KindOf(err))
}

func TestValidateRenderEDLRejectsOutOfRange(t *testing.T) {
	_, err := validateRenderEDL("req1", Request{
		EDL:     []agent.RenderSegment{{Start: 90, End: 110}},
		Sources: testSources(),
	})
	require.ErrorContains(t, err, "outside [0, 100.00]")
}

func TestValidateRenderEDLRejectsUnknownSource(t *testing.T) {
	_, err := validateRenderEDL("req1", Request{
		EDL:     []agent.RenderSegment{{Start: 0, End: 5, VideoID: "ghost"}},
		Sources: testSources(),
	})
	require.ErrorContains(t, err, `unknown source "ghost"`)
}

func TestValidateRenderEDLDropsTinySegments(t *testing.T) {
	edl, err := validateRenderEDL("req1", Request{
		EDL: []agent.RenderSegment{
			{Start: 0, End: 0.05},
			{Start: 10, End: 15},
		},
		Sources: testSources(),
	})
	require.NoError(t, err)
	require.Equal(t, []agent.RenderSegment{{Start: 10, End: 15}}, edl)
}

func TestValidateRenderEDLAllDroppedFails(t *testing.T) {
	_, err := validateRenderEDL("req1", Request{
		EDL:     []agent.RenderSegment{{Start: 0, End: 0.05}},
		Sources: testSources(),
	})
	require.ErrorContains(t, err, "no usable segments")
}

func TestBuildCaptionCuesRemapsToOutputTimeline(t *testing.T) {
	edl := []agent.RenderSegment{
		{Start: 10, End: 15},
		{Start: 40, End: 44},
	}
	transcripts := map[string][]clients.TranscriptSegment{
		"": {
			{Start: 0, End: 5, Text: "before any window"},
			{Start: 9, End: 12, Text: "clipped at window start"},
			{Start: 13, End: 14, Text: "fully inside"},
			{Start: 41, End: 50, Text: "clipped at window end"},
		},
	}
	cues := BuildCaptionCues(edl, transcripts)
	require.Equal(t, []video.SubtitleCue{
		{Start: 0, End: 2, Text: "clipped at window start"},
		{Start: 3, End: 4, Text: "fully inside"},
		{Start: 6, End: 9, Text: "clipped at window end"},
	}, cues)
}

func TestRemappedCuesWriteAsSRT(t *testing.T) {
	edl := []agent.RenderSegment{{Start: 10, End: 15}}
	transcripts := map[string][]clients.TranscriptSegment{
		"": {{Start: 11, End: 13, Text: "hello there"}},
	}
	cues := BuildCaptionCues(edl, transcripts)
	require.Len(t, cues, 1)

	srtPath := filepath.Join(t.TempDir(), "captions.srt")
	require.NoError(t, video.WriteSRT(cues, srtPath))

	contents, err := os.ReadFile(srtPath)
	require.NoError(t, err)
	require.Contains(t, string(contents), "00:00:01,000 --> 00:00:03,000")
	require.Contains(t, string(contents), "hello there")
}

func TestBuildCaptionCuesMultiVideo(t *testing.T) {
	edl := []agent.RenderSegment{
		{Start: 0, End: 5, VideoID: "a"},
		{Start: 0, End: 5, VideoID: "b"},
	}
	transcripts := map[string][]clients.TranscriptSegment{
		"a": {{Start: 1, End: 2, Text: "from a"}},
		"b": {{Start: 1, End: 2, Text: "from b"}},
	}
	cues := BuildCaptionCues(edl, transcripts)
	require.Equal(t, []video.SubtitleCue{
		{Start: 1, End: 2, Text: "from a"},
		{Start: 6, End: 7, Text: "from b"},
	}, cues)
}
