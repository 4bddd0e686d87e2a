// Package llmjson pulls a best-effort JSON object out of untrusted,
// semi-structured LLM output. The fallback chain is: direct parse of the
// whole text, then code-fence stripping, then extraction of the first
// balanced {...} region, then failure.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObject means no parseable JSON object was found in the text.
var ErrNoObject = errors.New("no JSON object found in text")

// FirstObject returns the first parseable JSON object in text.
func FirstObject(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, ErrNoObject
	}

	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return json.RawMessage(s), nil
	}

	s = stripFences(s)
	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return json.RawMessage(s), nil
	}

	if region, ok := firstBalanced(s); ok && json.Valid([]byte(region)) {
		return json.RawMessage(region), nil
	}

	return nil, ErrNoObject
}

// stripFences removes a leading ```json / ``` wrapper if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	idx := strings.Index(s, "\n")
	if idx == -1 {
		return s
	}
	s = s[idx+1:]
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// firstBalanced scans for the first balanced brace region, tracking string
// literals and escapes so braces inside strings don't count.
func firstBalanced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
