package assess

import (
	"embed"
	"fmt"
)

//go:embed prompts/*.md
var promptFS embed.FS

// VariantNormal is the default system prompt. The violation variants are
// deliberately engineered to induce specific judge failures; they exist
// to validate the judge's detection power and are always recorded on the
// response, never hidden.
const (
	VariantNormal       = "normal"
	VariantAccuracy     = "accuracy_violation"
	VariantHallucinated = "hallucination_violation"
	VariantRelevance    = "relevance_violation"
	VariantUrgency      = "urgency_violation"
	VariantSafety       = "safety_violation"
)

var variantFiles = map[string]string{
	VariantNormal:       "prompts/plant_health_system.md",
	VariantAccuracy:     "prompts/plant_health_system_accuracy_violation.md",
	VariantHallucinated: "prompts/plant_health_system_hallucination_violation.md",
	VariantRelevance:    "prompts/plant_health_system_relevance_violation.md",
	VariantUrgency:      "prompts/plant_health_system_urgency_calibration_violation.md",
	VariantSafety:       "prompts/plant_health_system_safety_violation.md",
}

// ViolationVariants lists the non-default variants in a fixed order so
// seeded random selection is reproducible.
var ViolationVariants = []string{
	VariantAccuracy,
	VariantHallucinated,
	VariantRelevance,
	VariantUrgency,
	VariantSafety,
}

var variantPrompts = loadVariantPrompts()

func loadVariantPrompts() map[string]string {
	prompts := make(map[string]string, len(variantFiles))
	for variant, path := range variantFiles {
		data, err := promptFS.ReadFile(path)
		if err != nil {
			// Embedded files; a miss is a build defect.
			panic(fmt.Sprintf("missing embedded prompt %s: %v", path, err))
		}
		prompts[variant] = string(data)
	}
	return prompts
}

// IsKnownVariant reports whether the tag names an embedded prompt.
func IsKnownVariant(variant string) bool {
	_, ok := variantPrompts[variant]
	return ok
}

// systemPrompt returns the prompt for the variant, falling back to the
// normal prompt for unknown tags.
func systemPrompt(variant string) string {
	if prompt, ok := variantPrompts[variant]; ok {
		return prompt
	}
	return variantPrompts[VariantNormal]
}
