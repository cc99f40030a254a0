// Package modeljson decodes JSON out of raw model output. Vision models
// routinely wrap their answer in markdown fences or emit trailing commas;
// both are repaired before decoding.
package modeljson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"quintos/internal/domain"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Decode extracts a JSON object of type T from raw model output.
// Returns *domain.ParseError carrying the raw output when no decodable
// JSON is found.
func Decode[T any](raw string) (*T, error) {
	cleaned := Clean(raw)

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, &domain.ParseError{
			Err:       fmt.Errorf("unmarshal model output: %w", err),
			RawOutput: raw,
		}
	}
	return &out, nil
}

// Clean strips markdown fences and trailing commas, returning the best
// candidate JSON substring.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	// tolerate prose around a single object
	if !strings.HasPrefix(s, "{") {
		if start := strings.Index(s, "{"); start >= 0 {
			if end := strings.LastIndex(s, "}"); end > start {
				s = s[start : end+1]
			}
		}
	}

	return trailingCommaRe.ReplaceAllString(s, "$1")
}
