package envelope

import (
	"bytes"
	"encoding/json"
)

// Kind tags which envelope variant a provider response matched.
type Kind int

const (
	KindUnknown Kind = iota
	KindCandidates
	KindString
	KindOutputText
	KindResult
)

func (k Kind) String() string {
	switch k {
	case KindCandidates:
		return "candidates"
	case KindString:
		return "string"
	case KindOutputText:
		return "output_text"
	case KindResult:
		return "result"
	default:
		return "unknown"
	}
}

type Envelope struct {
	Kind Kind
	Text string
}

type candidatesShape struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify matches raw against the known envelope variants in precedence order.
// It never fails; unknown shapes fall back to the serialized body.
func Classify(raw []byte) Envelope {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return Envelope{Kind: KindString, Text: string(raw)}
	}

	if text, ok := candidateText(trimmed); ok {
		return Envelope{Kind: KindCandidates, Text: text}
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return Envelope{Kind: KindString, Text: s}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		if v, ok := obj["output_text"]; ok && truthy(v) {
			return Envelope{Kind: KindOutputText, Text: stringOrJSON(v)}
		}
		if v, ok := obj["result"]; ok && truthy(v) {
			return Envelope{Kind: KindResult, Text: stringOrJSON(v)}
		}
	}

	return Envelope{Kind: KindUnknown, Text: Compact(trimmed)}
}

func Extract(raw []byte) string {
	return Classify(raw).Text
}

// Compact returns raw as single-line JSON, or unchanged if it is not JSON.
func Compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(raw)); err != nil {
		return string(raw)
	}
	return buf.String()
}

func candidateText(raw []byte) (string, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return "", false
	}
	var shape candidatesShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return "", false
	}
	if len(shape.Candidates) == 0 {
		return "", false
	}
	first := shape.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0].Text == nil {
		return "", false
	}
	return *first.Content.Parts[0].Text, true
}

// truthy treats null, false, 0 and "" as absent.
func truthy(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func stringOrJSON(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return Compact(v)
}
