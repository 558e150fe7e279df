package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verdant-ai/leafguard/internal/assess"
	"go.uber.org/zap"
)

// MetricReading is one sensor metric in a golden example: the observed
// value and the plant's target.
type MetricReading struct {
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
}

// GoldenInput is the input half of a golden example.
type GoldenInput struct {
	PlantType         string                   `json:"plant_type"`
	Metrics           map[string]MetricReading `json:"metrics"`
	AdditionalContext string                   `json:"additional_context,omitempty"`
}

// GoldenExample is one curated evaluation case. Expected holds
// reference values the judge output is compared against offline; it is
// attached to the evaluation verbatim, never interpreted here.
type GoldenExample struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Input       GoldenInput    `json:"input"`
	Expected    map[string]any `json:"expected"`
}

type goldenDataset struct {
	Examples []GoldenExample `json:"examples"`
}

// LoadGoldenDataset reads golden examples from path.
func LoadGoldenDataset(path string) ([]GoldenExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading golden dataset: %w", err)
	}
	var ds goldenDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing golden dataset: %w", err)
	}
	if len(ds.Examples) == 0 {
		return nil, fmt.Errorf("golden dataset %s has no examples", path)
	}
	return ds.Examples, nil
}

// ExampleToRequest converts a golden example into an assessment
// request, using the example ID as the request ID so batch results can
// be traced back to the dataset.
func ExampleToRequest(ex GoldenExample) *assess.AssessmentRequest {
	m := ex.Input.Metrics
	return &assess.AssessmentRequest{
		RequestID: ex.ID,
		PlantType: ex.Input.PlantType,
		Metrics: assess.SensorMetrics{
			SoilMoisture:       m["soil_moisture"].Value,
			SoilMoistureTarget: m["soil_moisture"].Target,
			Light:              m["light"].Value,
			LightTarget:        m["light"].Target,
			Temperature:        m["temperature"].Value,
			TemperatureTarget:  m["temperature"].Target,
			Humidity:           m["humidity"].Value,
			HumidityTarget:     m["humidity"].Target,
		},
		AdditionalContext: ex.Input.AdditionalContext,
	}
}

// ExampleResult is one example's outcome in a batch run. Exactly one of
// Evaluation or Error is set.
type ExampleResult struct {
	ExampleID  string         `json:"example_id"`
	Category   string         `json:"category"`
	Response   string         `json:"response,omitempty"`
	Evaluation *Evaluation    `json:"evaluation,omitempty"`
	Expected   map[string]any `json:"expected,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// BatchMetadata describes one batch run.
type BatchMetadata struct {
	Timestamp   string `json:"timestamp"` // RFC 3339
	JudgeModel  string `json:"model_judge"`
	NExamples   int    `json:"n_examples"`
	NSuccessful int    `json:"n_successful"`
}

// BatchReport is the full output of a batch run.
type BatchReport struct {
	Metadata     BatchMetadata   `json:"metadata"`
	Metrics      Metrics         `json:"metrics"`
	QualityGates GateReport      `json:"quality_gates"`
	Results      []ExampleResult `json:"results"`
}

// BatchRunner drives golden-dataset evaluation: generate an assessment
// for each example, judge it, then aggregate and gate the scores.
type BatchRunner struct {
	service   *assess.Service
	evaluator *Evaluator
	logger    *zap.Logger
}

// NewBatchRunner builds a BatchRunner. The caller constructs the
// assessment service with sampling disabled so batch runs never
// re-enqueue their own responses.
func NewBatchRunner(service *assess.Service, evaluator *Evaluator, logger *zap.Logger) *BatchRunner {
	return &BatchRunner{service: service, evaluator: evaluator, logger: logger}
}

// Run evaluates up to limit examples (limit <= 0 means all). A failing
// example is recorded with its error and the run continues; only the
// per-example work is isolated, dataset load failure aborts the run.
func (r *BatchRunner) Run(ctx context.Context, examples []GoldenExample, limit int) *BatchReport {
	if limit > 0 && limit < len(examples) {
		examples = examples[:limit]
	}

	results := make([]ExampleResult, 0, len(examples))
	evaluations := make([]*Evaluation, 0, len(examples))

	for i, ex := range examples {
		r.logger.Info("evaluating example",
			zap.Int("index", i+1),
			zap.Int("total", len(examples)),
			zap.String("example_id", ex.ID),
			zap.String("category", ex.Category),
		)

		result := r.runExample(ctx, ex)
		if result.Error != "" {
			r.logger.Warn("example failed",
				zap.String("example_id", ex.ID),
				zap.String("error", result.Error),
			)
		} else {
			evaluations = append(evaluations, result.Evaluation)
			r.logger.Info("example evaluated",
				zap.String("example_id", ex.ID),
				zap.Int("overall_score", result.Evaluation.OverallScore),
				zap.Bool("hallucination", result.Evaluation.Hallucination.Detected),
				zap.String("prompt_variant", result.Evaluation.Metadata.PromptVariant),
			)
		}
		results = append(results, result)
	}

	metrics := Aggregate(evaluations)
	report := &BatchReport{
		Metadata: BatchMetadata{
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			JudgeModel:  r.evaluator.gen.Model(),
			NExamples:   len(examples),
			NSuccessful: len(evaluations),
		},
		Metrics:      metrics,
		QualityGates: CheckGates(metrics),
		Results:      results,
	}

	r.logger.Info("batch evaluation complete",
		zap.Int("n_examples", report.Metadata.NExamples),
		zap.Int("n_successful", report.Metadata.NSuccessful),
		zap.Float64("avg_overall", metrics.AvgOverall),
		zap.Bool("all_gates_passed", report.QualityGates.AllPassed),
	)

	return report
}

func (r *BatchRunner) runExample(ctx context.Context, ex GoldenExample) ExampleResult {
	result := ExampleResult{
		ExampleID: ex.ID,
		Category:  ex.Category,
		Expected:  ex.Expected,
	}

	resp, err := r.service.Assess(ctx, ExampleToRequest(ex))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Response = resp.Assessment

	eval, err := r.evaluator.Evaluate(ctx, resp, ex.Expected)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Evaluation = eval
	return result
}

// WriteReport saves a batch report as indented JSON, creating parent
// directories as needed.
func WriteReport(report *BatchReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing batch report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing batch report: %w", err)
	}
	return nil
}
