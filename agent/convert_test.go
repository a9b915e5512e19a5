package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertToRenderEDLKeepsMergesAndSorts(t *testing.T) {
	edl := []Segment{
		{Start: 20, End: 25, Type: SegmentKeep},
		{Start: 0, End: 5, Type: SegmentKeep},
		{Start: 5, End: 8, Type: SegmentKeep}, // touches previous, merges
		{Start: 10, End: 18, Type: SegmentSkip},
		{Start: 18, End: 19, Type: SegmentTransition},
	}
	out := ConvertToRenderEDL(edl)
	require.Equal(t, []RenderSegment{
		{Start: 0, End: 8},
		{Start: 20, End: 25},
	}, out)
	require.InDelta(t, 13.0, KeepDuration(out), 1e-9)
}

func TestConvertToRenderEDLOverlapMergesToMaxEnd(t *testing.T) {
	edl := []Segment{
		{Start: 0, End: 10, Type: SegmentKeep},
		{Start: 4, End: 6, Type: SegmentKeep},
	}
	out := ConvertToRenderEDL(edl)
	require.Equal(t, []RenderSegment{{Start: 0, End: 10}}, out)
}

func TestConvertToRenderEDLMultiVideoDoesNotMergeAcrossSources(t *testing.T) {
	edl := []Segment{
		{Start: 0, End: 5, Type: SegmentKeep, VideoID: "b"},
		{Start: 5, End: 9, Type: SegmentKeep, VideoID: "a"},
		{Start: 0, End: 5, Type: SegmentKeep, VideoID: "a"},
	}
	out := ConvertToRenderEDL(edl)
	require.Equal(t, []RenderSegment{
		{Start: 0, End: 9, VideoID: "a"},
		{Start: 0, End: 5, VideoID: "b"},
	}, out)
}

func TestExtractTransitionsDefaults(t *testing.T) {
	edl := []Segment{
		{Start: 5, End: 5.5, Type: SegmentTransition},
		{Start: 12, End: 13, Type: SegmentTransition, TransitionType: "cut", TransitionDuration: 0.2},
		{Start: 0, End: 5, Type: SegmentKeep},
	}
	out := ExtractTransitions(edl)
	require.Len(t, out, 2)
	require.Equal(t, Transition{FromTimestamp: 5, ToTimestamp: 5.5, Type: "fade", Duration: 0.5}, out[0])
	require.Equal(t, Transition{FromTimestamp: 12, ToTimestamp: 13, Type: "cut", Duration: 0.2}, out[1])
}
