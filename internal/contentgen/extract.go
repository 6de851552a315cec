package contentgen

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errNoJSON = errors.New("no JSON object in response")

// extractJSON returns the first balanced JSON object in content. Providers
// return either the object itself or, without structured output, the raw
// completion text as a JSON string that may wrap the object in prose or code
// fences.
func extractJSON(content json.RawMessage) ([]byte, error) {
	text := bytes.TrimSpace(content)
	if len(text) > 0 && text[0] == '"' {
		var s string
		if err := json.Unmarshal(text, &s); err != nil {
			return nil, err
		}
		text = []byte(s)
	}

	start := bytes.IndexByte(text, '{')
	if start < 0 {
		return nil, errNoJSON
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], nil
			}
		}
	}
	return nil, errors.New("unterminated JSON object in response")
}
