package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidJSONObject is returned when a response holds no usable JSON object.
var ErrInvalidJSONObject = errors.New("model returned invalid JSON object")

var (
	reFenceOpen  = regexp.MustCompile("(?i)```json")
	reFenceClose = regexp.MustCompile("```")
)

// ExtractJSONObject pulls a single JSON object out of model output.
// Fences are stripped; when the whole text is not an object, the span from the first '{' to the last '}' is tried.
func ExtractJSONObject(raw string) (map[string]any, error) {
	cleaned := reFenceOpen.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(reFenceClose.ReplaceAllString(cleaned, ""))

	if obj, ok := parseObject(cleaned); ok {
		return obj, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if obj, ok := parseObject(cleaned[start : end+1]); ok {
			return obj, nil
		}
	}
	return nil, ErrInvalidJSONObject
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
