package handlers

import "github.com/xeipuuv/gojsonschema"

var GenerateEditRequestSchemaDefinition = `{
	"type": "object",
	"required": ["videos_data"],
	"properties": {
		"videos_data": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["url"],
				"properties": {
					"video_id": {"type": "string"},
					"url": {"type": "string", "minLength": 1},
					"summary": {"type": "string"},
					"frames": {"type": "array"},
					"scenes": {"type": "array"},
					"transcript": {"type": "array"}
				}
			}
		},
		"summary": {"type": "string"},
		"story_intent": {"type": "object"},
		"story_prompt": {"type": "string"},
		"auto_apply": {"type": "boolean"},
		"aspect_ratios": {
			"type": "array",
			"items": {"type": "string", "enum": ["16:9", "9:16", "1:1"]}
		},
		"burn_captions": {"type": "boolean"},
		"callback_url": {"type": "string", "format": "uri"},
		"callback_data": {"type": "object"}
	}
}`

var ApplyEditRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"aspect_ratios": {
			"type": "array",
			"items": {"type": "string", "enum": ["16:9", "9:16", "1:1"]}
		},
		"burn_captions": {"type": "boolean"},
		"callback_url": {"type": "string", "format": "uri"},
		"callback_data": {"type": "object"}
	}
}`

var AssembleMediaRequestSchemaDefinition = `{
	"type": "object",
	"required": ["total_chunks", "filename"],
	"properties": {
		"total_chunks": {"type": "integer", "minimum": 1},
		"filename": {"type": "string", "minLength": 1}
	}
}`

var AnalyzeMediaRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"granularity": {"type": "number", "exclusiveMinimum": 0},
		"caption_prompt": {"type": "string"},
		"scene_mode": {"type": "string", "enum": ["shot_based", "time_based"]},
		"transcribe": {"type": "boolean"}
	}
}`

var inputSchemas map[string]string = map[string]string{
	"GenerateEdit":  GenerateEditRequestSchemaDefinition,
	"ApplyEdit":     ApplyEditRequestSchemaDefinition,
	"AssembleMedia": AssembleMediaRequestSchemaDefinition,
	"AnalyzeMedia":  AnalyzeMediaRequestSchemaDefinition,
}

func compileJsonSchemas() map[string]*gojsonschema.Schema {
	compiled := make(map[string]*gojsonschema.Schema, 0)
	for name, text := range inputSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(text))
		if err != nil {
			panic(err) // fix schema text
		}
		compiled[name] = schema
	}
	return compiled
}

// Run compile step on program start:
var inputSchemasCompiled map[string]*gojsonschema.Schema = compileJsonSchemas()
