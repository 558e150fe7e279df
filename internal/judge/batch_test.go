package judge

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/verdant-ai/leafguard/internal/assess"
	"github.com/verdant-ai/leafguard/internal/sink"
	"go.uber.org/zap"
)

func goldenExamples() []GoldenExample {
	metrics := map[string]MetricReading{
		"soil_moisture": {Value: 25, Target: 55},
		"light":         {Value: 800, Target: 1000},
		"temperature":   {Value: 72, Target: 75},
		"humidity":      {Value: 40, Target: 60},
	}
	return []GoldenExample{
		{
			ID:          "golden-001",
			Category:    "underwatering",
			Description: "dry monstera",
			Input:       GoldenInput{PlantType: "Monstera", Metrics: metrics},
			Expected:    map[string]any{"min_accuracy": 4.0},
		},
		{
			ID:          "golden-002",
			Category:    "healthy",
			Description: "thriving pothos",
			Input:       GoldenInput{PlantType: "Pothos", Metrics: metrics},
			Expected:    map[string]any{"min_accuracy": 4.0},
		},
		{
			ID:          "golden-003",
			Category:    "overwatering",
			Description: "soggy fern",
			Input: GoldenInput{
				PlantType:         "Boston Fern",
				Metrics:           metrics,
				AdditionalContext: "leaves turning yellow",
			},
			Expected: map[string]any{"min_accuracy": 3.0},
		},
	}
}

func newBatchRunner(assessGen, judgeGen *stubGenerator) *BatchRunner {
	service := assess.NewService(assessGen, nil, assess.Config{},
		rand.New(rand.NewSource(1)), zap.NewNop())
	evaluator := NewEvaluator(judgeGen, sink.NewLogSink(zap.NewNop()), zap.NewNop())
	return NewBatchRunner(service, evaluator, zap.NewNop())
}

func TestBatchRunAllSucceed(t *testing.T) {
	assessGen := &stubGenerator{outputs: []string{"Water the plant."}}
	judgeGen := &stubGenerator{outputs: []string{validEvalJSON}}
	runner := newBatchRunner(assessGen, judgeGen)

	report := runner.Run(context.Background(), goldenExamples(), 0)

	if report.Metadata.NExamples != 3 || report.Metadata.NSuccessful != 3 {
		t.Fatalf("examples/successful = %d/%d, want 3/3",
			report.Metadata.NExamples, report.Metadata.NSuccessful)
	}
	if report.Metrics.N != 3 {
		t.Errorf("metrics n = %d, want 3", report.Metrics.N)
	}
	if len(report.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(report.Results))
	}
	for _, r := range report.Results {
		if r.Error != "" {
			t.Errorf("example %s error = %q, want none", r.ExampleID, r.Error)
		}
		if r.Evaluation == nil {
			t.Errorf("example %s has no evaluation", r.ExampleID)
			continue
		}
		if r.Evaluation.Expected == nil {
			t.Errorf("example %s evaluation missing expected values", r.ExampleID)
		}
	}
	if !report.QualityGates.AllPassed {
		t.Errorf("all_gates_passed = false with uniform 4/5 scores: %+v", report.QualityGates.Gates)
	}
}

// One failing example must not abort the run: it is recorded with its
// error and excluded from the aggregates.
func TestBatchRunIsolatesFailures(t *testing.T) {
	assessGen := &stubGenerator{
		outputs: []string{"Water the plant.", "", "Reduce watering."},
		errs:    []error{nil, errors.New("model unavailable"), nil},
	}
	judgeGen := &stubGenerator{outputs: []string{validEvalJSON}}
	runner := newBatchRunner(assessGen, judgeGen)

	report := runner.Run(context.Background(), goldenExamples(), 0)

	if report.Metadata.NSuccessful != 2 {
		t.Fatalf("n_successful = %d, want 2", report.Metadata.NSuccessful)
	}
	if report.Metrics.N != 2 {
		t.Errorf("metrics n = %d, want 2", report.Metrics.N)
	}

	failed := report.Results[1]
	if failed.ExampleID != "golden-002" {
		t.Fatalf("failed example = %s, want golden-002", failed.ExampleID)
	}
	if failed.Error == "" {
		t.Error("failed example has no recorded error")
	}
	if failed.Evaluation != nil {
		t.Error("failed example has an evaluation")
	}
}

func TestBatchRunLimit(t *testing.T) {
	assessGen := &stubGenerator{outputs: []string{"Water the plant."}}
	judgeGen := &stubGenerator{outputs: []string{validEvalJSON}}
	runner := newBatchRunner(assessGen, judgeGen)

	report := runner.Run(context.Background(), goldenExamples(), 2)

	if report.Metadata.NExamples != 2 {
		t.Errorf("n_examples = %d, want 2", report.Metadata.NExamples)
	}
	if len(report.Results) != 2 {
		t.Errorf("results = %d, want 2", len(report.Results))
	}
}

func TestExampleToRequest(t *testing.T) {
	ex := goldenExamples()[2]
	req := ExampleToRequest(ex)

	if req.RequestID != "golden-003" {
		t.Errorf("request_id = %q, want golden-003", req.RequestID)
	}
	if req.PlantType != "Boston Fern" {
		t.Errorf("plant_type = %q, want Boston Fern", req.PlantType)
	}
	if req.Metrics.SoilMoisture != 25 || req.Metrics.SoilMoistureTarget != 55 {
		t.Errorf("soil moisture = %v/%v, want 25/55",
			req.Metrics.SoilMoisture, req.Metrics.SoilMoistureTarget)
	}
	if req.Metrics.HumidityTarget != 60 {
		t.Errorf("humidity target = %v, want 60", req.Metrics.HumidityTarget)
	}
	if req.AdditionalContext != "leaves turning yellow" {
		t.Errorf("additional_context = %q", req.AdditionalContext)
	}
}

func TestLoadGoldenDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "golden.json")
	content := `{"examples": [{"id": "g1", "category": "healthy", "description": "d",
		"input": {"plant_type": "Pothos", "metrics": {
			"soil_moisture": {"value": 50, "target": 55},
			"light": {"value": 900, "target": 1000},
			"temperature": {"value": 72, "target": 75},
			"humidity": {"value": 55, "target": 60}}},
		"expected": {"min_accuracy": 4}}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	examples, err := LoadGoldenDataset(path)
	if err != nil {
		t.Fatalf("LoadGoldenDataset() error = %v", err)
	}
	if len(examples) != 1 || examples[0].ID != "g1" {
		t.Fatalf("examples = %+v", examples)
	}

	if _, err := LoadGoldenDataset(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file did not error")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"examples": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGoldenDataset(empty); err == nil {
		t.Error("empty dataset did not error")
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results", "run.json")

	report := &BatchReport{
		Metadata: BatchMetadata{Timestamp: "2026-08-23T10:00:00Z", JudgeModel: "stub-judge"},
	}
	if err := WriteReport(report, path); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if len(data) == 0 {
		t.Error("report file is empty")
	}
}
