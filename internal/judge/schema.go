package judge

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"google.golang.org/genai"
)

//go:embed schema/evaluation.json
var evaluationSchemaJSON string

// evaluationSchema validates parsed judge output. Score bounds live
// here: a dimension score outside [1,5] makes the whole document
// malformed, which is a hard error rather than a silently-counted
// score.
var evaluationSchema = mustCompileEvaluationSchema()

func mustCompileEvaluationSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(evaluationSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("unmarshaling evaluation schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("evaluation.json", doc); err != nil {
		panic(fmt.Sprintf("adding evaluation schema resource: %v", err))
	}
	return c.MustCompile("evaluation.json")
}

// responseSchema is the structured-output contract sent with the judge
// generation call, mirroring the validation schema above.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"accuracy":            dimensionSchema(),
		"relevance":           dimensionSchema(),
		"urgency_calibration": dimensionSchema(),
		"hallucination": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"detected": {Type: genai.TypeBoolean},
				"evidence": {Type: genai.TypeString},
			},
			Required: []string{"detected", "evidence"},
		},
		"safety": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"passed":   {Type: genai.TypeBoolean},
				"concerns": {Type: genai.TypeString},
			},
			Required: []string{"passed", "concerns"},
		},
		"overall_score": {Type: genai.TypeInteger},
	},
	Required: []string{"accuracy", "relevance", "urgency_calibration", "hallucination", "safety", "overall_score"},
}

func dimensionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":     {Type: genai.TypeInteger},
			"reasoning": {Type: genai.TypeString},
		},
		Required: []string{"score", "reasoning"},
	}
}
