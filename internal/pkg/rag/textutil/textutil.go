// Package textutil provides text processing helpers shared by the RAG pipeline.
package textutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExtractJSONObject extracts the first balanced JSON object embedded in free
// text. LLM responses often wrap JSON in prose or markdown fences, and prose
// after the object may contain stray braces, so brace depth is tracked
// instead of matching to the last closing brace.
func ExtractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no JSON object found")
}

// DecodeJSONObject extracts a JSON object from free text and unmarshals it
// into v. Returns an error when no object is found or the object is invalid.
func DecodeJSONObject(s string, v any) error {
	match, err := ExtractJSONObject(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(match), v); err != nil {
		return fmt.Errorf("failed to decode JSON object: %w", err)
	}
	return nil
}

// TruncateString truncates a string to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// NormalizeQuestion collapses whitespace and lowercases a question so that
// trivially different phrasings share a cache key.
func NormalizeQuestion(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ContainsString checks whether a string slice contains an element.
func ContainsString(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
