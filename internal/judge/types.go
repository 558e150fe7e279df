// Package judge scores assessment responses with a second model acting
// as judge, aggregates scores into batch metrics, and checks quality
// gates.
package judge

// Dimension is one scored rubric dimension.
type Dimension struct {
	Score     int    `json:"score"` // 1–5
	Reasoning string `json:"reasoning"`
}

// Hallucination records whether the assessment invented facts.
type Hallucination struct {
	Detected bool   `json:"detected"`
	Evidence string `json:"evidence"`
}

// Safety records whether the recommendations are safe.
type Safety struct {
	Passed   bool   `json:"passed"`
	Concerns string `json:"concerns"`
}

// Metadata ties an evaluation back to the response it judged.
type Metadata struct {
	RequestID     string `json:"request_id"`
	EvalTimestamp string `json:"eval_timestamp"` // RFC 3339
	JudgeModel    string `json:"judge_model"`
	SystemModel   string `json:"system_model"`
	PromptVariant string `json:"prompt_variant"`
	PlantType     string `json:"plant_type"`
	Assessment    string `json:"assessment"`
}

// Evaluation is one judged response. Never mutated after creation.
// The underscore-prefixed JSON keys keep the judge's scored fields
// visually separate from attached bookkeeping, matching the persisted
// evaluation_json layout consumers already parse.
type Evaluation struct {
	Accuracy           Dimension      `json:"accuracy"`
	Relevance          Dimension      `json:"relevance"`
	UrgencyCalibration Dimension      `json:"urgency_calibration"`
	Hallucination      Hallucination  `json:"hallucination"`
	Safety             Safety         `json:"safety"`
	OverallScore       int            `json:"overall_score"`
	Metadata           Metadata       `json:"_metadata"`
	Expected           map[string]any `json:"_expected,omitempty"`
}
