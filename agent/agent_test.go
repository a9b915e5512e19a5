package agent

import (
	"encoding/json"
	"testing"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/errors"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	usage    clients.TokenUsage
	messages []clients.ChatMessage
}

func (f *fakeLLM) GenerateStructured(requestID string, messages []clients.ChatMessage, schemaName string, schema json.RawMessage) (json.RawMessage, clients.TokenUsage, error) {
	f.messages = messages
	return json.RawMessage(f.response), f.usage, nil
}

func TestGeneratePlanHappyPath(t *testing.T) {
	llm := &fakeLLM{
		response: `{
			"edl": [
				{"start": 0, "end": 4, "type": "keep", "reason": "hook"},
				{"start": 4, "end": 50, "type": "skip"},
				{"start": 50, "end": 55, "type": "keep", "reason": "climax"},
				{"start": 55, "end": 55.5, "type": "transition"},
				{"start": 55.5, "end": 60, "type": "keep"}
			],
			"story_analysis": {"hook_timestamp": 0, "climax_timestamp": 52}
		}`,
		usage: clients.TokenUsage{PromptTokens: 1000, CompletionTokens: 300},
	}
	a := NewStorytellingAgent(llm, NewCompressor(50, 20, 100))

	result, err := a.GeneratePlan("req1", []VideoData{{VideoID: "v1", Duration: 120}}, StoryIntent{})
	require.NoError(t, err)
	require.Len(t, result.Plan.EDL, 5)
	require.Equal(t, []RenderSegment{
		{Start: 0, End: 4},
		{Start: 50, End: 55},
		{Start: 55.5, End: 60},
	}, result.RenderEDL)
	require.Len(t, result.Plan.Transitions, 1)
	require.Equal(t, "fade", result.Plan.Transitions[0].Type)
	require.Equal(t, 1000, result.TokenUsage.PromptTokens)
	require.Len(t, result.Compression, 1)
	require.Len(t, llm.messages, 2)
}

func TestGeneratePlanEmptyEDLFailsValidation(t *testing.T) {
	llm := &fakeLLM{response: `{
		"edl": [{"start": 0, "end": 120, "type": "skip"}],
		"story_analysis": {"hook_timestamp": 0, "climax_timestamp": 50}
	}`}
	a := NewStorytellingAgent(llm, NewCompressor(50, 20, 100))

	_, err := a.GeneratePlan("req1", []VideoData{{VideoID: "v1", Duration: 120}}, StoryIntent{})
	require.Error(t, err)
	require.Equal(t, errors.KindValidationFailure, errors.KindOf(err))
}

func TestGeneratePlanAllSegmentsDroppedFails(t *testing.T) {
	llm := &fakeLLM{response: `{
		"edl": [{"start": 10, "end": 5, "type": "keep"}],
		"story_analysis": {"hook_timestamp": 0, "climax_timestamp": 50}
	}`}
	a := NewStorytellingAgent(llm, NewCompressor(50, 20, 100))

	_, err := a.GeneratePlan("req1", []VideoData{{VideoID: "v1", Duration: 120}}, StoryIntent{})
	require.Error(t, err)
	require.Equal(t, errors.KindValidationFailure, errors.KindOf(err))
}

func TestGeneratePlanContinuesAfterDroppingBadSegments(t *testing.T) {
	llm := &fakeLLM{response: `{
		"edl": [
			{"start": 0, "end": 4, "type": "keep"},
			{"start": 10, "end": 10.05, "type": "keep"},
			{"start": 20, "end": 25, "type": "keep"},
			{"start": 34, "end": 30, "type": "keep"}
		],
		"story_analysis": {"hook_timestamp": 0, "climax_timestamp": 22}
	}`}
	a := NewStorytellingAgent(llm, NewCompressor(50, 20, 100))

	result, err := a.GeneratePlan("req1", []VideoData{{VideoID: "v1", Duration: 120}}, StoryIntent{})
	require.NoError(t, err)
	require.Equal(t, []RenderSegment{
		{Start: 0, End: 4},
		{Start: 20, End: 25},
	}, result.RenderEDL)
	require.NotEmpty(t, result.Warnings)
}

func TestGeneratePlanNoVideos(t *testing.T) {
	a := NewStorytellingAgent(&fakeLLM{}, NewCompressor(50, 20, 100))
	_, err := a.GeneratePlan("req1", nil, StoryIntent{})
	require.Error(t, err)
	require.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestParsePlanRepairsFencedAndTruncatedJSON(t *testing.T) {
	fenced := "```json\n{\"edl\": [{\"start\": 0, \"end\": 5, \"type\": \"keep\"}], \"story_analysis\": {\"hook_timestamp\": 0, \"climax_timestamp\": 3}}\n```"
	plan, err := ParsePlan(json.RawMessage(fenced))
	require.NoError(t, err)
	require.Len(t, plan.EDL, 1)

	truncated := `{"edl": [{"start": 0, "end": 5, "type": "keep"}], "story_analysis": {"hook_timestamp": 0, "climax_timestamp": 3`
	plan, err = ParsePlan(json.RawMessage(truncated))
	require.NoError(t, err)
	require.Equal(t, 3.0, plan.StoryAnalysis.ClimaxTimestamp)
}

func TestParsePlanSchemaMismatch(t *testing.T) {
	// missing story_analysis entirely
	_, err := ParsePlan(json.RawMessage(`{"edl": []}`))
	require.Error(t, err)
	require.Equal(t, errors.KindValidationFailure, errors.KindOf(err))
}

func TestParsePlanGarbage(t *testing.T) {
	_, err := ParsePlan(json.RawMessage(`here is your edit plan!`))
	require.Error(t, err)
	require.Equal(t, errors.KindValidationFailure, errors.KindOf(err))
}
