package recovery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError means no JSON object could be recovered. Text is the full
// extracted model output, kept for operator debugging.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model output is not valid JSON: %v. Raw output: %s", e.Err, e.Text)
	}
	return "model did not return JSON. Raw output: " + e.Text
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseObject parses the span from the first '{' to the last '}' of text.
// Surrounding prose is ignored; malformed JSON inside the span is not repaired.
func ParseObject(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Text: text}
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	return out, nil
}
