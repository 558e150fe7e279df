// Package guardrail runs pre-generation safety checks on user input:
// PII redaction followed by LLM-based topic and injection classification.
package guardrail

import (
	"context"

	"github.com/verdant-ai/leafguard/internal/guardrail/redact"
)

// Result is the outcome of one guardrail check. Immutable once built.
type Result struct {
	OriginalInput  string   `json:"original_input"`
	ProcessedInput string   `json:"processed_input"` // after PII redaction
	Allowed        bool     `json:"allowed"`
	Classification string   `json:"classification"`
	Reason         string   `json:"reason"`
	PIIDetected    bool     `json:"pii_detected"`
	PIITypes       []string `json:"pii_types"`
}

// Blocked is the inverse of Allowed.
func (r *Result) Blocked() bool {
	return !r.Allowed
}

// Guardrails composes the redactor and classifier into one checked
// decision. Pure composition: no state beyond the two collaborators,
// no retries at this layer.
type Guardrails struct {
	redactor   redact.Redactor
	classifier *Classifier
}

func New(redactor redact.Redactor, classifier *Classifier) *Guardrails {
	return &Guardrails{redactor: redactor, classifier: classifier}
}

// Check redacts PII unconditionally, then classifies the redacted text.
// The classifier must never see raw PII, so the order is fixed.
func (g *Guardrails) Check(ctx context.Context, input string) *Result {
	processed, piiTypes := g.redactor.Redact(ctx, input)

	verdict := g.classifier.Classify(ctx, processed)

	return &Result{
		OriginalInput:  input,
		ProcessedInput: processed,
		Allowed:        verdict.Allow,
		Classification: verdict.Classification,
		Reason:         verdict.Reason,
		PIIDetected:    len(piiTypes) > 0,
		PIITypes:       piiTypes,
	}
}
