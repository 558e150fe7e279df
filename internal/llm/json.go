package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding ```json / ``` markdown fence.
// Models sometimes wrap JSON output in a fence even when asked not to.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		return strings.TrimSpace(text)
	}
	// These do nothing if the markers aren't there.
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseJSONObject unmarshals a model response into v. It tries a direct
// parse first (after fence stripping), then falls back to the substring
// between the first '{' and the last '}'.
//
// The brace scan is a known-fragile heuristic: it misparses output with
// multiple top-level objects or unbalanced braces inside string values.
// Kept because it recovers the common "here is your JSON: {...}" wrapper.
func ParseJSONObject(text string, v any) error {
	cleaned := StripCodeFence(text)

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (%d bytes)", len(text))
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), v); err != nil {
		return fmt.Errorf("parsing extracted JSON object: %w", err)
	}
	return nil
}
