package wayfarer

import (
	"encoding/json"
	"fmt"
	"strings"

	models "github.com/Desarso/wayfarer/models"
)

// Final_Text joins the text parts of a model response into one string.
func Final_Text(parts []models.Model_Part) string {
	var builder strings.Builder
	for _, part := range parts {
		if part.Text != nil {
			builder.WriteString(*part.Text)
		}
	}
	return builder.String()
}

// Parse_Structured parses a model's text output into the expected typed
// record. Models frequently wrap JSON in markdown fences or chat around it;
// the outermost JSON object is isolated before unmarshalling. A non-nil
// error means the text did not parse and the caller should fall back to
// displaying the raw output.
func Parse_Structured(raw string, v interface{}) error {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return fmt.Errorf("no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("failed to parse model output as structured record: %w", err)
	}
	return nil
}

// extractJSONObject strips markdown code fences and returns the outermost
// {...} span, or "" when none exists.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
