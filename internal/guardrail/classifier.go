package guardrail

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/verdant-ai/leafguard/internal/llm"
	"go.uber.org/zap"
)

//go:embed prompts/guardrails_system.txt
var classifierSystemPrompt string

//go:embed prompts/guardrails_template.txt
var classifierTemplate string

// Classification labels returned by the classifier.
const (
	ClassOnTopic         = "on_topic"
	ClassOffTopic        = "off_topic"
	ClassPromptInjection = "prompt_injection"
	ClassHarmful         = "harmful"
	ClassError           = "error"
	ClassUnknown         = "unknown"
)

// Verdict is the classifier's decision for one input.
type Verdict struct {
	Allow          bool   `json:"allow"`
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

// Classifier sends input to a fast judge-like model for topic and
// injection screening. Every failure mode — transport, empty output,
// unparseable JSON — fails open with a diagnostic reason: a broken
// safety classifier must not make the product unusable.
type Classifier struct {
	gen    llm.Generator
	logger *zap.Logger
}

func NewClassifier(gen llm.Generator, logger *zap.Logger) *Classifier {
	return &Classifier{gen: gen, logger: logger}
}

// Classify runs the classification prompt at temperature 0 and parses
// the JSON verdict.
func (c *Classifier) Classify(ctx context.Context, input string) Verdict {
	prompt := strings.ReplaceAll(classifierTemplate, "{{user_input}}", input)

	text, err := c.gen.Generate(ctx, llm.GenerateRequest{
		SystemPrompt:    strings.TrimSpace(classifierSystemPrompt),
		UserPrompt:      prompt,
		Temperature:     0,
		MaxOutputTokens: 200,
		JSONOnly:        true,
	})
	if err != nil {
		c.logger.Warn("classifier error, allowing input", zap.Error(err))
		return failOpen(fmt.Sprintf("classifier error: %v", err))
	}

	// Unmarshal into a raw map first so missing keys get explicit
	// defaults rather than zero values (a missing "allow" must not block).
	var raw map[string]any
	if err := llm.ParseJSONObject(text, &raw); err != nil {
		c.logger.Warn("classifier returned non-JSON, allowing input",
			zap.String("output_head", head(text, 100)),
			zap.Error(err),
		)
		return failOpen("could not parse classifier response")
	}

	verdict := Verdict{
		Allow:          true,
		Classification: ClassUnknown,
	}
	if allow, ok := raw["allow"].(bool); ok {
		verdict.Allow = allow
	}
	if class, ok := raw["classification"].(string); ok && class != "" {
		verdict.Classification = class
	}
	if reason, ok := raw["reason"].(string); ok {
		verdict.Reason = reason
	}
	return verdict
}

func failOpen(reason string) Verdict {
	return Verdict{
		Allow:          true,
		Classification: ClassError,
		Reason:         reason,
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
