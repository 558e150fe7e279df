// Package llm wraps the generative-model capability behind a small
// interface so the guardrail classifier, the assessment service, and the
// judge evaluator can share one client and tests can substitute a stub.
package llm

import (
	"context"

	"google.golang.org/genai"
)

// GenerateRequest describes a single generation call.
type GenerateRequest struct {
	SystemPrompt    string
	UserPrompt      string
	Temperature     float32
	MaxOutputTokens int32

	// JSONOnly asks the model for an application/json response.
	JSONOnly bool

	// ResponseSchema constrains JSON output when set. Implies JSONOnly.
	ResponseSchema *genai.Schema
}

// Generator is the generative-model capability consumed by the pipeline.
type Generator interface {
	// Generate returns the model's text output for the request.
	// An empty model response is an error, never an empty string.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Model returns the model identifier recorded on responses.
	Model() string
}
