package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newSingleValidator(duration float64) *Validator {
	return NewValidator([]VideoData{{VideoID: "v1", Duration: duration}})
}

func TestValidateClampsOutOfRangeSegments(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL: []Segment{
			{Start: -2, End: 5, Type: SegmentKeep},
			{Start: 95, End: 130, Type: SegmentKeep},
		},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.True(t, ok)
	require.False(t, HasHardErrors(msgs))
	require.Equal(t, 0.0, plan.EDL[0].Start)
	require.Equal(t, 100.0, plan.EDL[1].End)
}

func TestValidateDropsInvalidSegments(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL: []Segment{
			{Start: 10, End: 5, Type: SegmentKeep},   // inverted
			{Start: 20, End: 20.05, Type: SegmentKeep}, // too short
			{Start: 30, End: 35, Type: SegmentKeep},
		},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.False(t, ok)
	require.True(t, HasHardErrors(msgs))
	require.Len(t, plan.EDL, 1)
	require.Equal(t, 30.0, plan.EDL[0].Start)
}

func TestValidateOverlapIsWarningOnly(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL: []Segment{
			{Start: 0, End: 10, Type: SegmentKeep},
			{Start: 9, End: 20, Type: SegmentKeep},
			{Start: 20, End: 80, Type: SegmentKeep},
		},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.True(t, ok)
	require.Contains(t, msgs[0], "Warning: segments overlap")
}

func TestValidateOverlapNotFlaggedAcrossVideos(t *testing.T) {
	v := NewValidator([]VideoData{
		{VideoID: "a", Duration: 100},
		{VideoID: "b", Duration: 100},
	})
	plan := &EditPlan{
		EDL: []Segment{
			{Start: 0, End: 60, Type: SegmentKeep, VideoID: "a"},
			{Start: 0, End: 60, Type: SegmentKeep, VideoID: "b"},
		},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.True(t, ok)
	for _, m := range msgs {
		require.NotContains(t, m, "overlap")
	}
}

func TestValidateUnknownVideoIDIsHardError(t *testing.T) {
	v := NewValidator([]VideoData{
		{VideoID: "a", Duration: 100},
		{VideoID: "b", Duration: 100},
	})
	plan := &EditPlan{
		EDL: []Segment{
			{Start: 0, End: 10, Type: SegmentKeep, VideoID: "nope"},
		},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.False(t, ok)
	require.True(t, HasHardErrors(msgs))
	require.Empty(t, plan.EDL)
}

func TestValidateSingleVideoEmptyIDAccepted(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL:           []Segment{{Start: 0, End: 60, Type: SegmentKeep}},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, _ := v.ValidatePlan(plan)
	require.True(t, ok)
}

func TestValidateLowCoverageWarning(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL:           []Segment{{Start: 0, End: 20, Type: SegmentKeep}},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.True(t, ok)
	require.Contains(t, msgs[0], "Warning: EDL only covers 20% of video")
}

func TestValidateStoryAnalysisOutOfRange(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL:           []Segment{{Start: 0, End: 60, Type: SegmentKeep}},
		StoryAnalysis: StoryAnalysis{HookTimestamp: -1, ClimaxTimestamp: 150},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.False(t, ok)
	require.True(t, HasHardErrors(msgs))
	require.Len(t, msgs, 2)
}

func TestValidateKeyMoments(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL:           []Segment{{Start: 0, End: 60, Type: SegmentKeep}},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
		KeyMoments: []KeyMoment{
			{Start: 10, End: 15, Description: "ok"},
			{Start: 20, End: 10, Description: "inverted"},
		},
	}
	ok, msgs := v.ValidatePlan(plan)
	require.False(t, ok)
	require.Contains(t, msgs[len(msgs)-1], "key moment 1")
}

func TestValidateRoundsAndDefaultsType(t *testing.T) {
	v := newSingleValidator(100)
	plan := &EditPlan{
		EDL:           []Segment{{Start: 1.23456, End: 60.98765}},
		StoryAnalysis: StoryAnalysis{HookTimestamp: 0, ClimaxTimestamp: 50},
	}
	ok, _ := v.ValidatePlan(plan)
	require.True(t, ok)
	require.Equal(t, 1.23, plan.EDL[0].Start)
	require.Equal(t, 60.99, plan.EDL[0].End)
	require.Equal(t, SegmentKeep, plan.EDL[0].Type)
}
