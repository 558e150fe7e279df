package assess

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/verdant-ai/leafguard/internal/llm"
	"go.uber.org/zap"
)

const (
	assessTemperature = 0.3
	assessMaxTokens   = 2000
)

// Dispatcher routes a sampled response to evaluation. Implementations
// must not block the assessment path: a queued dispatcher publishes
// fire-and-forget, an inline dispatcher may run synchronously but its
// errors are still isolated by the service.
type Dispatcher interface {
	Dispatch(ctx context.Context, resp *AssessmentResponse) error
}

// Config holds the service's sampling knobs.
type Config struct {
	// SampleRate is the fraction of responses routed to evaluation.
	SampleRate float64
	// ViolationRate is the fraction of calls that use a violation
	// prompt variant instead of the normal one.
	ViolationRate float64
}

// Service generates plant health assessments. One instance serves all
// requests; the only mutable state is the seeded random source, guarded
// by a mutex.
type Service struct {
	gen        llm.Generator
	dispatcher Dispatcher // nil means sampled responses are dropped
	cfg        Config
	logger     *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService builds a Service. rng may be nil, in which case a
// time-seeded source is used; tests pass a fixed-seed source to make
// variant selection and sampling deterministic.
func NewService(gen llm.Generator, dispatcher Dispatcher, cfg Config, rng *rand.Rand, logger *zap.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		gen:        gen,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		rng:        rng,
	}
}

// Assess generates a health assessment for the request. Generation
// failures propagate: an unreviewed placeholder health claim is worse
// than a visible failure, so nothing is synthesized on error.
func (s *Service) Assess(ctx context.Context, req *AssessmentRequest) (*AssessmentResponse, error) {
	variant := s.selectVariant()
	if variant != VariantNormal {
		s.logger.Info("using violation prompt",
			zap.String("request_id", req.RequestID),
			zap.String("prompt_variant", variant),
		)
	}

	assessment, err := s.gen.Generate(ctx, llm.GenerateRequest{
		SystemPrompt:    systemPrompt(variant),
		UserPrompt:      buildUserPrompt(req),
		Temperature:     assessTemperature,
		MaxOutputTokens: assessMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("assessment generation for %s: %w", req.RequestID, err)
	}

	resp := &AssessmentResponse{
		RequestID:         req.RequestID,
		PlantType:         req.PlantType,
		Metrics:           req.Metrics,
		Assessment:        assessment,
		Model:             s.gen.Model(),
		Timestamp:         nowTimestamp(),
		AdditionalContext: req.AdditionalContext,
		PromptVariant:     variant,
	}

	s.maybeDispatchForEval(ctx, resp)

	return resp, nil
}

// selectVariant draws one Bernoulli trial: below the violation rate,
// pick uniformly among the violation variants, otherwise normal.
func (s *Service) selectVariant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < s.cfg.ViolationRate {
		return ViolationVariants[s.rng.Intn(len(ViolationVariants))]
	}
	return VariantNormal
}

// maybeDispatchForEval draws an independent sample and, on a hit, hands
// the response to the dispatcher. Evaluation is best-effort: every error
// on this branch is logged and swallowed so it can never fail or delay
// the user-facing assessment.
func (s *Service) maybeDispatchForEval(ctx context.Context, resp *AssessmentResponse) {
	s.mu.Lock()
	sampled := s.rng.Float64() < s.cfg.SampleRate
	s.mu.Unlock()
	if !sampled {
		return
	}

	s.logger.Info("response sampled for evaluation",
		zap.String("request_id", resp.RequestID),
		zap.String("prompt_variant", resp.PromptVariant),
	)

	if s.dispatcher == nil {
		s.logger.Info("no eval destination configured, dropping sample",
			zap.String("request_id", resp.RequestID),
		)
		return
	}

	if err := s.dispatcher.Dispatch(ctx, resp); err != nil {
		s.logger.Warn("eval dispatch failed",
			zap.String("request_id", resp.RequestID),
			zap.Error(err),
		)
	}
}

// buildUserPrompt renders the deterministic metrics table, the optional
// context line, and the fixed instruction suffix.
func buildUserPrompt(req *AssessmentRequest) string {
	m := req.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the health of this %s based on the sensor data:\n\n", req.PlantType)
	b.WriteString("| Metric | Current | Target | Unit |\n")
	b.WriteString("|--------|---------|--------|------|\n")
	fmt.Fprintf(&b, "| Soil Moisture | %v | %v | %% |\n", m.SoilMoisture, m.SoilMoistureTarget)
	fmt.Fprintf(&b, "| Light | %v | %v | lux |\n", m.Light, m.LightTarget)
	fmt.Fprintf(&b, "| Temperature | %v | %v | F |\n", m.Temperature, m.TemperatureTarget)
	fmt.Fprintf(&b, "| Humidity | %v | %v | %% |\n", m.Humidity, m.HumidityTarget)

	if req.AdditionalContext != "" {
		fmt.Fprintf(&b, "\nAdditional Context: %s", req.AdditionalContext)
	}

	b.WriteString("\n\nProvide a health assessment and care recommendations.")
	return b.String()
}
