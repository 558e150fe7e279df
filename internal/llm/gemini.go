package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig selects the backend and model for the Gemini generator.
type GeminiConfig struct {
	ModelName string

	// UseVertexAI switches from API-key auth to Vertex AI with ADC.
	UseVertexAI bool
	GCPProject  string
	GCPLocation string
	APIKey      string
}

// GeminiGenerator implements Generator on google.golang.org/genai.
// Construct once at startup and share; the underlying client is
// safe for concurrent use.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	retry  RetryConfig
	logger *zap.Logger
}

// NewGeminiGenerator builds the genai client for the configured backend.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	var cc *genai.ClientConfig
	if cfg.UseVertexAI {
		if cfg.GCPProject == "" {
			return nil, errors.New("vertex backend requires a GCP project")
		}
		cc = &genai.ClientConfig{
			Project:  cfg.GCPProject,
			Location: cfg.GCPLocation,
			Backend:  genai.BackendVertexAI,
		}
	} else {
		if cfg.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY not set and vertex backend disabled")
		}
		cc = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  cfg.ModelName,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}, nil
}

func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate performs one Models.GenerateContent call, retrying transient
// quota and server errors with backoff.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.JSONOnly || req.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
	}
	if req.ResponseSchema != nil {
		config.ResponseSchema = req.ResponseSchema
	}

	resp, err := withBackoff(ctx, g.retry, isRetryableGenAIError, func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.UserPrompt), config)
	})
	if err != nil {
		return "", fmt.Errorf("generate with model %q: %w", g.model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("model %q returned empty output", g.model)
	}
	return text, nil
}

// isRetryableGenAIError classifies quota and transient server errors.
// Matches on the status codes genai surfaces in error strings since the
// SDK does not expose a typed error for all transports.
func isRetryableGenAIError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "504", "RESOURCE_EXHAUSTED", "UNAVAILABLE"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
