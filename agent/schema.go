package agent

import "encoding/json"

// EditPlanSchemaName is the schema name sent in the response_format block.
const EditPlanSchemaName = "edit_plan"

// EditPlanSchema is the JSON schema the model's structured output must match.
// The same schema validates the plan again after parsing, so a model that
// ignores strict mode still gets caught.
var EditPlanSchema = json.RawMessage(`{
	"type": "object",
	"required": ["edl", "story_analysis"],
	"additionalProperties": false,
	"properties": {
		"edl": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["start", "end", "type"],
				"additionalProperties": false,
				"properties": {
					"start": {"type": "number"},
					"end": {"type": "number"},
					"type": {"type": "string", "enum": ["keep", "skip", "transition"]},
					"reason": {"type": "string"},
					"transition_type": {"type": "string"},
					"transition_duration": {"type": "number"},
					"video_id": {"type": "string"}
				}
			}
		},
		"story_analysis": {
			"type": "object",
			"required": ["hook_timestamp", "climax_timestamp"],
			"additionalProperties": false,
			"properties": {
				"hook_timestamp": {"type": "number"},
				"climax_timestamp": {"type": "number"},
				"resolution_timestamp": {"type": "number"}
			}
		},
		"key_moments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["start", "end"],
				"additionalProperties": false,
				"properties": {
					"start": {"type": "number"},
					"end": {"type": "number"},
					"description": {"type": "string"},
					"importance": {"type": "string"},
					"story_role": {"type": "string"}
				}
			}
		},
		"transitions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"from_timestamp": {"type": "number"},
					"to_timestamp": {"type": "number"},
					"type": {"type": "string"},
					"duration": {"type": "number"}
				}
			}
		},
		"recommendations": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`)
