package judge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/verdant-ai/leafguard/internal/assess"
	"go.uber.org/zap"
)

func TestEvaluateSingle(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())

	payload, err := json.Marshal(sampleResponse())
	if err != nil {
		t.Fatal(err)
	}

	eval, err := ev.EvaluateSingle(context.Background(), payload)
	if err != nil {
		t.Fatalf("EvaluateSingle() error = %v", err)
	}
	if eval.Metadata.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", eval.Metadata.RequestID)
	}
	if len(cs.rows) != 1 {
		t.Fatalf("sink rows = %d, want 1", len(cs.rows))
	}
	if cs.rows[0].RequestID != "req-123" {
		t.Errorf("row request_id = %q, want req-123", cs.rows[0].RequestID)
	}
}

func TestEvaluateSingleDefaultsVariant(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	ev := NewEvaluator(gen, &captureSink{}, zap.NewNop())

	resp := sampleResponse()
	resp.PromptVariant = ""
	payload, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}

	eval, err := ev.EvaluateSingle(context.Background(), payload)
	if err != nil {
		t.Fatalf("EvaluateSingle() error = %v", err)
	}
	if eval.Metadata.PromptVariant != assess.VariantNormal {
		t.Errorf("prompt_variant = %q, want %q", eval.Metadata.PromptVariant, assess.VariantNormal)
	}
}

// With a deterministic judge, repeating the same payload yields
// identical scores and the sink tolerates the repeated write.
func TestEvaluateSingleIdempotent(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())

	payload, err := json.Marshal(sampleResponse())
	if err != nil {
		t.Fatal(err)
	}

	first, err := ev.EvaluateSingle(context.Background(), payload)
	if err != nil {
		t.Fatalf("first EvaluateSingle() error = %v", err)
	}
	second, err := ev.EvaluateSingle(context.Background(), payload)
	if err != nil {
		t.Fatalf("second EvaluateSingle() error = %v", err)
	}

	if first.OverallScore != second.OverallScore ||
		first.Accuracy.Score != second.Accuracy.Score ||
		first.Hallucination.Detected != second.Hallucination.Detected {
		t.Errorf("scores differ across identical payloads: %+v vs %+v", first, second)
	}
	if len(cs.rows) != 2 {
		t.Errorf("sink rows = %d, want 2", len(cs.rows))
	}
}

func TestEvaluateSingleBadPayload(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "not a payload"},
		{name: "missing request_id", payload: `{"plant_type": "Pothos", "assessment": "fine"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ev.EvaluateSingle(context.Background(), []byte(tt.payload)); err == nil {
				t.Error("EvaluateSingle() succeeded, want error")
			}
		})
	}
	if len(cs.rows) != 0 {
		t.Errorf("sink rows = %d after failed evaluations, want 0", len(cs.rows))
	}
}

func TestInlineDispatcherWritesResult(t *testing.T) {
	gen := &stubGenerator{outputs: []string{validEvalJSON}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())

	dir := t.TempDir()
	d := NewInlineDispatcher(ev, dir, zap.NewNop())

	if err := d.Dispatch(context.Background(), sampleResponse()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(cs.rows) != 1 {
		t.Fatalf("sink rows = %d, want 1", len(cs.rows))
	}
	if _, err := os.Stat(filepath.Join(dir, "eval_req-123.json")); err != nil {
		t.Errorf("result file not written: %v", err)
	}
}

func TestInlineDispatcherPropagatesEvalError(t *testing.T) {
	gen := &stubGenerator{outputs: []string{"garbage"}}
	cs := &captureSink{}
	ev := NewEvaluator(gen, cs, zap.NewNop())
	d := NewInlineDispatcher(ev, "", zap.NewNop())

	if err := d.Dispatch(context.Background(), sampleResponse()); err == nil {
		t.Error("Dispatch() succeeded with unparseable judge output")
	}
	if len(cs.rows) != 0 {
		t.Errorf("sink rows = %d after failed dispatch, want 0", len(cs.rows))
	}
}
