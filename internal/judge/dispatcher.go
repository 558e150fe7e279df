package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verdant-ai/leafguard/internal/assess"
	"go.uber.org/zap"
)

// InlineDispatcher evaluates sampled responses in-process, the
// local-development alternative to queue dispatch. It runs on the
// request goroutine; the assessment service already isolates its
// errors.
type InlineDispatcher struct {
	evaluator  *Evaluator
	resultsDir string // empty disables per-request result files
	logger     *zap.Logger
}

// NewInlineDispatcher builds an InlineDispatcher. When resultsDir is
// non-empty each evaluation is also written there as
// eval_<request_id>.json.
func NewInlineDispatcher(evaluator *Evaluator, resultsDir string, logger *zap.Logger) *InlineDispatcher {
	return &InlineDispatcher{evaluator: evaluator, resultsDir: resultsDir, logger: logger}
}

// Dispatch implements assess.Dispatcher.
func (d *InlineDispatcher) Dispatch(ctx context.Context, resp *assess.AssessmentResponse) error {
	eval, err := d.evaluator.Evaluate(ctx, resp, nil)
	if err != nil {
		return fmt.Errorf("inline evaluation: %w", err)
	}
	d.evaluator.WriteEvaluation(eval)

	if d.resultsDir != "" {
		if err := d.writeResultFile(eval); err != nil {
			d.logger.Warn("writing evaluation result file",
				zap.String("request_id", eval.Metadata.RequestID),
				zap.Error(err),
			)
		}
	}

	d.logger.Info("inline evaluation complete",
		zap.String("request_id", eval.Metadata.RequestID),
		zap.Int("overall_score", eval.OverallScore),
		zap.Bool("hallucination", eval.Hallucination.Detected),
	)
	return nil
}

func (d *InlineDispatcher) writeResultFile(eval *Evaluation) error {
	data, err := json.MarshalIndent(eval, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.resultsDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("eval_%s.json", eval.Metadata.RequestID)
	return os.WriteFile(filepath.Join(d.resultsDir, name), data, 0o644)
}
