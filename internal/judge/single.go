package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verdant-ai/leafguard/internal/assess"
	"go.uber.org/zap"
)

// EvaluateSingle judges one serialized assessment response, the entry
// point for queue-triggered evaluation. Errors propagate so the worker
// can nack the message for redelivery instead of losing the sample.
func (e *Evaluator) EvaluateSingle(ctx context.Context, payload []byte) (*Evaluation, error) {
	var resp assess.AssessmentResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding eval payload: %w", err)
	}
	if resp.RequestID == "" {
		return nil, fmt.Errorf("eval payload missing request_id")
	}
	if resp.PromptVariant == "" {
		resp.PromptVariant = assess.VariantNormal
	}

	e.logger.Info("evaluating queued response",
		zap.String("request_id", resp.RequestID),
		zap.String("prompt_variant", resp.PromptVariant),
	)

	eval, err := e.Evaluate(ctx, &resp, nil)
	if err != nil {
		return nil, err
	}
	e.WriteEvaluation(eval)
	return eval, nil
}
