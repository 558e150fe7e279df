package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/verdant-ai/leafguard/internal/assess"
	"github.com/verdant-ai/leafguard/internal/llm"
	"github.com/verdant-ai/leafguard/internal/sink"
	"go.uber.org/zap"
)

// stubGenerator returns queued outputs in order, recording requests.
// When outputs run out the last one repeats.
type stubGenerator struct {
	outputs []string
	errs    []error
	calls   int
	reqs    []llm.GenerateRequest
}

func (s *stubGenerator) Generate(_ context.Context, req llm.GenerateRequest) (string, error) {
	s.reqs = append(s.reqs, req)
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.outputs) == 0 {
		return "", errors.New("stub has no outputs")
	}
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return s.outputs[i], nil
}

func (s *stubGenerator) Model() string { return "stub-judge" }

// captureSink records written rows.
type captureSink struct {
	rows []*sink.Row
}

func (c *captureSink) Write(row *sink.Row) { c.rows = append(c.rows, row) }
func (c *captureSink) Close()              {}

const validEvalJSON = `{
	"accuracy": {"score": 4, "reasoning": "targets compared correctly"},
	"relevance": {"score": 5, "reasoning": "plant-specific advice"},
	"urgency_calibration": {"score": 4, "reasoning": "matched severity"},
	"hallucination": {"detected": false, "evidence": ""},
	"safety": {"passed": true, "concerns": ""},
	"overall_score": 4
}`

func sampleResponse() *assess.AssessmentResponse {
	return &assess.AssessmentResponse{
		RequestID: "req-123",
		PlantType: "Monstera Deliciosa",
		Metrics: assess.SensorMetrics{
			SoilMoisture: 25, SoilMoistureTarget: 55,
			Light: 800, LightTarget: 1000,
			Temperature: 72, TemperatureTarget: 75,
			Humidity: 40, HumidityTarget: 60,
		},
		Assessment:    "The soil is too dry. Water thoroughly.",
		Model:         "stub-system",
		Timestamp:     "2026-08-23T10:00:00Z",
		PromptVariant: assess.VariantNormal,
	}
}

func TestEvaluateAttachesMetadata(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	ev := NewEvaluator(gen, sink.NewLogSink(zap.NewNop()), zap.NewNop())

	eval, err := ev.Evaluate(context.Background(), sampleResponse(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	md := eval.Metadata
	if md.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", md.RequestID)
	}
	if md.JudgeModel != "stub-judge" {
		t.Errorf("judge_model = %q, want stub-judge", md.JudgeModel)
	}
	if md.SystemModel != "stub-system" {
		t.Errorf("system_model = %q, want stub-system", md.SystemModel)
	}
	if md.PromptVariant != assess.VariantNormal {
		t.Errorf("prompt_variant = %q, want %q", md.PromptVariant, assess.VariantNormal)
	}
	if md.EvalTimestamp == "" {
		t.Error("eval_timestamp is empty")
	}
	if eval.Expected != nil {
		t.Errorf("expected = %v, want nil when not provided", eval.Expected)
	}
	if eval.OverallScore != 4 {
		t.Errorf("overall_score = %d, want 4", eval.OverallScore)
	}
}

func TestEvaluateDefaultsVariant(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	ev := NewEvaluator(gen, sink.NewLogSink(zap.NewNop()), zap.NewNop())

	resp := sampleResponse()
	resp.PromptVariant = ""
	eval, err := ev.Evaluate(context.Background(), resp, nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if eval.Metadata.PromptVariant != assess.VariantNormal {
		t.Errorf("prompt_variant = %q, want %q", eval.Metadata.PromptVariant, assess.VariantNormal)
	}
}

func TestEvaluateAttachesExpected(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	ev := NewEvaluator(gen, sink.NewLogSink(zap.NewNop()), zap.NewNop())

	expected := map[string]any{"min_accuracy": 4.0}
	eval, err := ev.Evaluate(context.Background(), sampleResponse(), expected)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if eval.Expected == nil {
		t.Fatal("expected not attached")
	}
	if eval.Expected["min_accuracy"] != 4.0 {
		t.Errorf("expected[min_accuracy] = %v, want 4.0", eval.Expected["min_accuracy"])
	}
}

func TestEvaluateJudgeSettings(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	ev := NewEvaluator(gen, sink.NewLogSink(zap.NewNop()), zap.NewNop())

	if _, err := ev.Evaluate(context.Background(), sampleResponse(), nil); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	req := gen.reqs[0]
	if req.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", req.Temperature)
	}
	if req.MaxOutputTokens != 2000 {
		t.Errorf("max tokens = %d, want 2000", req.MaxOutputTokens)
	}
	if req.ResponseSchema == nil {
		t.Error("response schema not set")
	}
}

func TestEvaluateHardErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
	}{
		{name: "generation failure", err: errors.New("model unavailable")},
		{name: "not json", output: "the plant looks fine"},
		{name: "missing required keys", output: `{"accuracy": {"score": 4, "reasoning": "ok"}}`},
		{
			name: "score out of range",
			output: strings.Replace(validEvalJSON,
				`"accuracy": {"score": 4`, `"accuracy": {"score": 7`, 1),
		},
		{
			name:   "overall score out of range",
			output: strings.Replace(validEvalJSON, `"overall_score": 4`, `"overall_score": 0`, 1),
		},
		{
			name: "wrong type for score",
			output: strings.Replace(validEvalJSON,
				`"accuracy": {"score": 4`, `"accuracy": {"score": "four"`, 1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{outputs: []string{tt.output}, errs: []error{tt.err}}
			ev := NewEvaluator(gen, sink.NewLogSink(zap.NewNop()), zap.NewNop())
			if _, err := ev.Evaluate(context.Background(), sampleResponse(), nil); err == nil {
				t.Error("Evaluate() succeeded, want hard error")
			}
		})
	}
}

func TestBuildJudgePromptSubstitution(t *testing.T) {
	resp := sampleResponse()
	prompt := buildJudgePrompt(resp)

	for _, want := range []string{"Monstera Deliciosa", "25", "55", "800", "1000", resp.Assessment} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Errorf("prompt contains unsubstituted placeholder:\n%s", prompt)
	}
}

func TestBuildJudgePromptConditionalContext(t *testing.T) {
	withContext := sampleResponse()
	withContext.AdditionalContext = "repotted last week"
	prompt := buildJudgePrompt(withContext)
	if !strings.Contains(prompt, "repotted last week") {
		t.Error("additional context not substituted")
	}
	if strings.Contains(prompt, "{{#if") || strings.Contains(prompt, "{{/if}}") {
		t.Error("conditional markers leaked into prompt")
	}

	without := sampleResponse()
	prompt = buildJudgePrompt(without)
	if strings.Contains(prompt, "{{") {
		t.Error("conditional block not stripped when context absent")
	}
	if strings.Contains(prompt, "additional_context") {
		t.Error("conditional block content leaked when context absent")
	}
}

func TestWriteEvaluationRowMapping(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())

	eval, err := ev.Evaluate(context.Background(), sampleResponse(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	ev.WriteEvaluation(eval)

	if len(cs.rows) != 1 {
		t.Fatalf("sink rows = %d, want 1", len(cs.rows))
	}
	row := cs.rows[0]
	if row.RequestID != "req-123" {
		t.Errorf("row request_id = %q, want req-123", row.RequestID)
	}
	if row.AccuracyScore != 4 || row.RelevanceScore != 5 || row.UrgencyScore != 4 {
		t.Errorf("row scores = %d/%d/%d, want 4/5/4",
			row.AccuracyScore, row.RelevanceScore, row.UrgencyScore)
	}
	if row.HallucinationDetected {
		t.Error("hallucination_detected = true, want false")
	}
	if !row.SafetyPassed {
		t.Error("safety_passed = false, want true")
	}
	if row.Model != "stub-system" {
		t.Errorf("row model = %q, want stub-system", row.Model)
	}
	if !strings.Contains(row.EvaluationJSON, `"_metadata"`) {
		t.Error("evaluation_json missing _metadata")
	}
}

func TestWriteEvaluationRepeatable(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())

	eval, err := ev.Evaluate(context.Background(), sampleResponse(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	ev.WriteEvaluation(eval)
	ev.WriteEvaluation(eval)

	if len(cs.rows) != 2 {
		t.Fatalf("sink rows = %d, want 2", len(cs.rows))
	}
	if fmt.Sprint(cs.rows[0]) != fmt.Sprint(cs.rows[1]) {
		t.Error("repeated writes produced different rows")
	}
}
