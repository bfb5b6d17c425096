package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// streamMarkers are diagnostic strings the generation CLI emits when its
// streaming output leaks into the artifact instead of a summary. Their
// presence anywhere in the file means the generation failed mid-write.
var streamMarkers = []string{"stream-json", "MessageStream"}

func validate(kind Kind, key Key, data []byte) error {
	switch kind {
	case KindSummary:
		return ValidateSummary(key, data)
	case KindCache:
		return validateCache(data)
	case KindPrompt, KindLog:
		if len(strings.TrimSpace(string(data))) == 0 {
			return fmt.Errorf("store: empty %s artifact", kind)
		}
		return nil
	default:
		return fmt.Errorf("store: cannot validate %s", kind)
	}
}

// ValidateSummary checks a generated summary for structural soundness:
// no leaked diagnostic stream markers, parseable JSON, and the identifying
// fields that tie the artifact to its week and entity.
func ValidateSummary(key Key, data []byte) error {
	text := string(data)
	for _, marker := range streamMarkers {
		if strings.Contains(text, marker) {
			return fmt.Errorf("store: summary contains diagnostic marker %q", marker)
		}
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("store: summary is not valid JSON: %w", err)
	}

	if _, ok := doc["week"]; !ok {
		return fmt.Errorf("store: summary missing week field")
	}
	if _, ok := doc["year"]; !ok {
		return fmt.Errorf("store: summary missing year field")
	}
	switch {
	case key.IsRepo():
		if _, ok := doc["repo"]; !ok {
			return fmt.Errorf("store: summary missing repo field")
		}
	case key.IsGroup():
		if _, ok := doc["group"]; !ok {
			return fmt.Errorf("store: summary missing group field")
		}
	}
	return nil
}

func validateCache(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("store: cache is not valid JSON: %w", err)
	}
	if _, ok := doc["metadata"]; !ok {
		return fmt.Errorf("store: cache missing metadata")
	}
	return nil
}
