package agent

import (
	"encoding/json"
	"fmt"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/xeipuuv/gojsonschema"
)

// LLM is the slice of the chat client the agent needs.
type LLM interface {
	GenerateStructured(requestID string, messages []clients.ChatMessage, schemaName string, schema json.RawMessage) (json.RawMessage, clients.TokenUsage, error)
}

// StorytellingAgent turns per-video description corpora plus a story intent
// into a validated edit plan.
type StorytellingAgent struct {
	llm        LLM
	compressor *Compressor
	prompts    PromptBuilder
}

// PlanResult is the agent's output plus its telemetry.
type PlanResult struct {
	Plan        EditPlan              `json:"plan"`
	RenderEDL   []RenderSegment       `json:"render_edl"`
	Warnings    []string              `json:"warnings,omitempty"`
	Compression []CompressionMetadata `json:"compression"`
	TokenUsage  clients.TokenUsage    `json:"token_usage"`
}

func NewStorytellingAgent(llm LLM, compressor *Compressor) *StorytellingAgent {
	return &StorytellingAgent{llm: llm, compressor: compressor}
}

// GeneratePlan runs the full plan pass: compress, prompt, generate, parse,
// validate. Validation sanitizes the EDL in place, dropping unusable
// segments and recording every issue as a plan warning; the plan only fails
// when no usable keep segments remain after sanitization.
func (a *StorytellingAgent) GeneratePlan(requestID string, videos []VideoData, intent StoryIntent) (*PlanResult, error) {
	if len(videos) == 0 {
		return nil, errors.Wrap(errors.KindInvalidInput, fmt.Errorf("no videos to edit"))
	}

	compressed := make([]VideoData, 0, len(videos))
	compression := make([]CompressionMetadata, 0, len(videos))
	for _, v := range videos {
		cv, meta := a.compressor.Compress(requestID, v, "temporal_sampling", "all", "temporal")
		compressed = append(compressed, cv)
		compression = append(compression, meta)
	}

	messages := a.prompts.Messages(compressed, intent)
	raw, usage, err := a.llm.GenerateStructured(requestID, messages, EditPlanSchemaName, EditPlanSchema)
	if err != nil {
		return nil, fmt.Errorf("generating edit plan: %w", err)
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		return nil, err
	}

	validator := NewValidator(videos)
	_, msgs := validator.ValidatePlan(plan)
	if HasHardErrors(msgs) {
		log.Log(requestID, "edit plan required sanitization", "issues", len(msgs))
	}

	renderEDL := ConvertToRenderEDL(plan.EDL)
	if len(renderEDL) == 0 {
		return nil, errors.Wrap(errors.KindValidationFailure,
			fmt.Errorf("edit plan contains no usable keep segments: %v", msgs))
	}
	if plan.Transitions == nil {
		plan.Transitions = ExtractTransitions(plan.EDL)
	}

	for _, m := range msgs {
		log.Log(requestID, "edit plan validation note", "message", m)
	}
	log.Log(requestID, "edit plan generated",
		"segments", len(plan.EDL),
		"render_segments", len(renderEDL),
		"keep_duration", fmt.Sprintf("%.2f", KeepDuration(renderEDL)),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens)

	return &PlanResult{
		Plan:        *plan,
		RenderEDL:   renderEDL,
		Warnings:    msgs,
		Compression: compression,
		TokenUsage:  usage,
	}, nil
}

// ParsePlan decodes and schema-checks a raw model response, repairing the
// common JSON defects (markdown fences, trailing commas, truncated output)
// before giving up.
func ParsePlan(raw json.RawMessage) (*EditPlan, error) {
	text := clients.StripMarkdownFences(string(raw))

	var plan EditPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		repaired := clients.RepairJSON(text)
		if err2 := json.Unmarshal([]byte(repaired), &plan); err2 != nil {
			return nil, errors.Wrap(errors.KindValidationFailure,
				fmt.Errorf("model response is not valid JSON: %w", err))
		}
		text = repaired
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(EditPlanSchema),
		gojsonschema.NewStringLoader(text),
	)
	if err != nil {
		return nil, fmt.Errorf("checking edit plan schema: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, errors.Wrap(errors.KindValidationFailure,
			fmt.Errorf("edit plan does not match schema: %v", details))
	}
	return &plan, nil
}
