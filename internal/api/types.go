package api

import "github.com/verdant-ai/leafguard/internal/assess"

// AssessRequest is the JSON body for POST /v1/assess. Question is the
// free-text user input; it passes through the guardrail pipeline before
// it reaches the model.
type AssessRequest struct {
	PlantType         string               `json:"plant_type"`
	Metrics           assess.SensorMetrics `json:"metrics"`
	AdditionalContext string               `json:"additional_context,omitempty"`
	Question          string               `json:"question,omitempty"`
}

// GuardrailResp reports the guardrail outcome for the question. The
// original input is never echoed back; ProcessedInput is the redacted
// form that was classified.
type GuardrailResp struct {
	Allowed        bool     `json:"allowed"`
	Classification string   `json:"classification"`
	Reason         string   `json:"reason,omitempty"`
	PIIDetected    bool     `json:"pii_detected"`
	PIITypes       []string `json:"pii_types,omitempty"`
	ProcessedInput string   `json:"processed_input,omitempty"`
}

// AssessResponse is the JSON body returned by POST /v1/assess. Blocked
// requests still get HTTP 200: the block is a verdict, not a transport
// failure. Assessment is nil when blocked.
type AssessResponse struct {
	RequestID  string                     `json:"request_id"`
	Blocked    bool                       `json:"blocked"`
	Guardrail  *GuardrailResp             `json:"guardrail,omitempty"`
	Assessment *assess.AssessmentResponse `json:"assessment,omitempty"`
	LatencyMs  float64                    `json:"latency_ms"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
