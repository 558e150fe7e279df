// Package config loads service configuration from the environment.
package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds every runtime knob. One instance is loaded at startup
// and passed down; nothing reads the environment after that.
type Config struct {
	// Model backend.
	ModelName    string `env:"MODEL_NAME,default=gemini-2.5-flash"`
	UseVertexAI  bool   `env:"USE_VERTEX_AI,default=false"`
	GCPProject   string `env:"GOOGLE_CLOUD_PROJECT"`
	GCPLocation  string `env:"GCP_LOCATION,default=us-central1"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// Evaluation sampling.
	EvalSampleRate float64 `env:"EVAL_SAMPLE_RATE,default=0.05"`
	ViolationRate  float64 `env:"VIOLATION_RATE,default=0.2"`

	// Eval dispatch. Local evaluation judges sampled responses
	// in-process; otherwise they are published to the queue.
	UseLocalEval       bool   `env:"USE_LOCAL_EVAL,default=true"`
	PubSubTopic        string `env:"PUBSUB_TOPIC,default=eval-requests"`
	PubSubSubscription string `env:"PUBSUB_SUBSCRIPTION,default=eval-requests-sub"`
	EvalResultsDir     string `env:"EVAL_RESULTS_DIR"`

	// Input guardrails.
	UsePIIRedaction bool `env:"USE_PII_REDACTION,default=true"`
	UseCloudDLP     bool `env:"USE_CLOUD_DLP,default=false"`

	// Analytics sink. Empty DSN falls back to the log sink.
	ClickHouseDSN string `env:"CLICKHOUSE_DSN"`

	// HTTP server.
	Port int `env:"PORT,default=8080"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads configuration from the environment and validates it.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would misbehave silently at
// runtime. Credential presence is not checked here: the Gemini client
// constructor owns that, so batch tooling can validate config without
// credentials.
func (c *Config) Validate() error {
	if c.EvalSampleRate < 0 || c.EvalSampleRate > 1 {
		return fmt.Errorf("EVAL_SAMPLE_RATE %v out of range [0,1]", c.EvalSampleRate)
	}
	if c.ViolationRate < 0 || c.ViolationRate > 1 {
		return fmt.Errorf("VIOLATION_RATE %v out of range [0,1]", c.ViolationRate)
	}
	if c.UseVertexAI && c.GCPProject == "" {
		return fmt.Errorf("USE_VERTEX_AI requires GOOGLE_CLOUD_PROJECT")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	return nil
}
