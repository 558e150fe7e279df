package judge

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verdant-ai/leafguard/internal/assess"
	"github.com/verdant-ai/leafguard/internal/llm"
	"github.com/verdant-ai/leafguard/internal/sink"
	"go.uber.org/zap"
)

//go:embed prompts/llm_judge_system.txt
var judgeSystemPrompt string

//go:embed prompts/llm_judge_template.txt
var judgeTemplate string

const (
	judgeTemperature = 0.1
	judgeMaxTokens   = 2000
)

// Evaluator scores assessment responses against the judge rubric.
//
// Unlike the input classifier, the judge does not fail open: an
// unparseable or out-of-range judgment is a hard error, because a
// corrupted evaluation must not silently count as a score.
type Evaluator struct {
	gen    llm.Generator
	sink   sink.Sink
	logger *zap.Logger
}

// NewEvaluator builds an Evaluator. The sink decides persistence
// behavior: a ClickHouse sink persists rows, a LogSink logs what would
// have been written.
func NewEvaluator(gen llm.Generator, snk sink.Sink, logger *zap.Logger) *Evaluator {
	return &Evaluator{gen: gen, sink: snk, logger: logger}
}

// Evaluate judges one response. expected carries golden-dataset
// reference values in batch mode and is nil in production.
func (e *Evaluator) Evaluate(ctx context.Context, resp *assess.AssessmentResponse, expected map[string]any) (*Evaluation, error) {
	text, err := e.gen.Generate(ctx, llm.GenerateRequest{
		SystemPrompt:    strings.TrimSpace(judgeSystemPrompt),
		UserPrompt:      buildJudgePrompt(resp),
		Temperature:     judgeTemperature,
		MaxOutputTokens: judgeMaxTokens,
		ResponseSchema:  responseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("judge generation for %s: %w", resp.RequestID, err)
	}

	eval, err := parseEvaluation(text)
	if err != nil {
		return nil, fmt.Errorf("judge output for %s: %w", resp.RequestID, err)
	}

	variant := resp.PromptVariant
	if variant == "" {
		variant = assess.VariantNormal
	}
	eval.Metadata = Metadata{
		RequestID:     resp.RequestID,
		EvalTimestamp: time.Now().UTC().Format(time.RFC3339),
		JudgeModel:    e.gen.Model(),
		SystemModel:   resp.Model,
		PromptVariant: variant,
		PlantType:     resp.PlantType,
		Assessment:    resp.Assessment,
	}
	if expected != nil {
		eval.Expected = expected
	}

	return eval, nil
}

// parseEvaluation parses and schema-validates judge output. The parsed
// document is validated as a raw JSON tree so type and range violations
// are caught before the lossy struct conversion.
func parseEvaluation(text string) (*Evaluation, error) {
	var doc any
	if err := llm.ParseJSONObject(text, &doc); err != nil {
		return nil, err
	}

	if err := evaluationSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("malformed evaluation: %w", err)
	}

	// Round-trip through JSON to convert the validated tree into the
	// typed struct.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var eval Evaluation
	if err := json.Unmarshal(data, &eval); err != nil {
		return nil, fmt.Errorf("decoding validated evaluation: %w", err)
	}
	return &eval, nil
}

// WriteEvaluation maps the evaluation onto the flat row layout and
// hands it to the sink. Sink failures are the sink's to log; results
// already returned to the caller are never invalidated by persistence.
func (e *Evaluator) WriteEvaluation(eval *Evaluation) {
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		e.logger.Error("serializing evaluation for sink",
			zap.String("request_id", eval.Metadata.RequestID),
			zap.Error(err),
		)
		return
	}

	ts, err := time.Parse(time.RFC3339, eval.Metadata.EvalTimestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	e.sink.Write(&sink.Row{
		RequestID:             eval.Metadata.RequestID,
		Timestamp:             ts,
		PlantType:             eval.Metadata.PlantType,
		AccuracyScore:         eval.Accuracy.Score,
		RelevanceScore:        eval.Relevance.Score,
		UrgencyScore:          eval.UrgencyCalibration.Score,
		OverallScore:          eval.OverallScore,
		HallucinationDetected: eval.Hallucination.Detected,
		SafetyPassed:          eval.Safety.Passed,
		Model:                 eval.Metadata.SystemModel,
		Assessment:            eval.Metadata.Assessment,
		PromptVariant:         eval.Metadata.PromptVariant,
		EvaluationJSON:        string(evalJSON),
	})
}

// buildJudgePrompt substitutes response data into the judge template.
// The additional-context conditional block is stripped entirely —
// markers and content — when no context is present, so no raw template
// syntax leaks into the prompt.
func buildJudgePrompt(resp *assess.AssessmentResponse) string {
	m := resp.Metrics

	prompt := strings.TrimSpace(judgeTemplate)
	prompt = strings.ReplaceAll(prompt, "{{plant_type}}", resp.PlantType)
	prompt = strings.ReplaceAll(prompt, "{{moisture_value}}", formatMetric(m.SoilMoisture))
	prompt = strings.ReplaceAll(prompt, "{{moisture_target}}", formatMetric(m.SoilMoistureTarget))
	prompt = strings.ReplaceAll(prompt, "{{light_value}}", formatMetric(m.Light))
	prompt = strings.ReplaceAll(prompt, "{{light_target}}", formatMetric(m.LightTarget))
	prompt = strings.ReplaceAll(prompt, "{{temp_value}}", formatMetric(m.Temperature))
	prompt = strings.ReplaceAll(prompt, "{{temp_target}}", formatMetric(m.TemperatureTarget))
	prompt = strings.ReplaceAll(prompt, "{{humidity_value}}", formatMetric(m.Humidity))
	prompt = strings.ReplaceAll(prompt, "{{humidity_target}}", formatMetric(m.HumidityTarget))
	prompt = strings.ReplaceAll(prompt, "{{response}}", resp.Assessment)

	const openMarker = "{{#if additional_context}}"
	const closeMarker = "{{/if}}"

	if resp.AdditionalContext != "" {
		prompt = strings.ReplaceAll(prompt, openMarker, "")
		prompt = strings.ReplaceAll(prompt, closeMarker, "")
		prompt = strings.ReplaceAll(prompt, "{{additional_context}}", resp.AdditionalContext)
	} else {
		start := strings.Index(prompt, openMarker)
		end := strings.Index(prompt, closeMarker)
		if start != -1 && end != -1 {
			prompt = prompt[:start] + prompt[end+len(closeMarker):]
		}
	}

	return prompt
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
