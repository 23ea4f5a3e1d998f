package assess

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"speakgate/internal/envelope"
)

const (
	maxBand           = 9.0
	maxCorrections    = 6
	followUpQuestions = 3
)

var ErrMissingInput = errors.New("missing input text")

// ShapeError means the model returned parseable JSON that is not a usable
// assessment.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "model returned unexpected output: " + e.Reason
}

type Criteria struct {
	FluencyCoherence         float64 `json:"fluency_coherence"`
	LexicalResource          float64 `json:"lexical_resource"`
	GrammaticalRangeAccuracy float64 `json:"grammatical_range_accuracy"`
	Pronunciation            float64 `json:"pronunciation"`
}

type Correction struct {
	Original    string `json:"original"`
	Suggestion  string `json:"suggestion"`
	Explanation string `json:"explanation"`
}

type Result struct {
	BandScore              float64      `json:"bandScore"`
	Criteria               Criteria     `json:"criteria"`
	Strengths              []string     `json:"strengths"`
	Weaknesses             []string     `json:"weaknesses"`
	Corrections            []Correction `json:"corrections"`
	ConversationalResponse string       `json:"conversationalResponse,omitempty"`
	Feedback               string       `json:"feedback"`
	FollowUpQuestions      []string     `json:"followUpQuestions"`
	PracticePlan           string       `json:"practicePlan"`
	RawModelOutput         string       `json:"rawModelOutput"`

	// Adjustments lists the normalizations applied to the model's values.
	Adjustments []string `json:"-"`
}

type ChatReply struct {
	Reply          string `json:"reply"`
	RawModelOutput string `json:"rawModelOutput"`
}

// AssembleAssessment turns the recovered object into a Result. rawModelOutput
// is always the extracted text, whatever the model put in that field.
func AssembleAssessment(fields map[string]any, text string) (Result, error) {
	if v, ok := fields["bandScore"]; !ok || v == nil {
		return Result{}, &ShapeError{Reason: "missing bandScore"}
	}
	if err := validateFields(fields); err != nil {
		return Result{}, &ShapeError{Reason: err.Error()}
	}

	merged := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "rawModelOutput" {
			continue
		}
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return Result{}, &ShapeError{Reason: err.Error()}
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, &ShapeError{Reason: err.Error()}
	}
	res.RawModelOutput = text
	res.normalize()
	return res, nil
}

func AssembleChat(text string, raw []byte) ChatReply {
	return ChatReply{
		Reply:          strings.TrimSpace(text),
		RawModelOutput: envelope.Compact(raw),
	}
}

func (r *Result) normalize() {
	if band := roundHalf(clampBand(r.BandScore)); band != r.BandScore {
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("bandScore %g -> %g", r.BandScore, band))
		r.BandScore = band
	}
	for _, c := range []struct {
		name string
		v    *float64
	}{
		{"fluency_coherence", &r.Criteria.FluencyCoherence},
		{"lexical_resource", &r.Criteria.LexicalResource},
		{"grammatical_range_accuracy", &r.Criteria.GrammaticalRangeAccuracy},
		{"pronunciation", &r.Criteria.Pronunciation},
	} {
		if clamped := clampBand(*c.v); clamped != *c.v {
			r.Adjustments = append(r.Adjustments, fmt.Sprintf("%s %g -> %g", c.name, *c.v, clamped))
			*c.v = clamped
		}
	}
	if len(r.Corrections) > maxCorrections {
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("corrections truncated %d -> %d", len(r.Corrections), maxCorrections))
		r.Corrections = r.Corrections[:maxCorrections]
	}
	switch n := len(r.FollowUpQuestions); {
	case n > followUpQuestions:
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("followUpQuestions truncated %d -> %d", n, followUpQuestions))
		r.FollowUpQuestions = r.FollowUpQuestions[:followUpQuestions]
	case n < followUpQuestions:
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("followUpQuestions short %d of %d", n, followUpQuestions))
	}
}

func clampBand(v float64) float64 {
	return math.Max(0, math.Min(maxBand, v))
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}
