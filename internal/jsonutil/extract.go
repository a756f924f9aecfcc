// Package jsonutil provides JSON extraction utilities for parsing LLM responses.
//
// Models often return JSON embedded in prose or wrapped in markdown fences.
// This package extracts the first complete JSON object from such output.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject finds and returns the first complete JSON object in a
// response string. It handles common model output patterns:
// 1. Pure JSON response - returned as-is
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON object embedded in text - located by brace matching
//
// Only objects are handled, not top-level arrays.
func ExtractObject(response string) (string, error) {
	response = stripCodeFences(response)

	var probe any
	if err := json.Unmarshal([]byte(response), &probe); err == nil && strings.HasPrefix(strings.TrimSpace(response), "{") {
		return response, nil
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response: %q", preview(response))
	}

	// Match the closing brace for the first opening brace. Brace characters
	// inside string literals are skipped.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := response[start : i+1]
				if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
					return "", fmt.Errorf("extracted JSON is invalid: %w", err)
				}
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("incomplete JSON object in response: %q", preview(response))
}

// Unmarshal extracts the first JSON object from a response and decodes it
// into the provided value.
func Unmarshal(response string, v any) error {
	jsonStr, err := ExtractObject(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// stripCodeFences removes markdown code block markers from a response.
// Handles ```json\n...\n``` and ```\n...\n```.
func stripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
