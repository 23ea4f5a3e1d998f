package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is optional caller context serialized verbatim into prompts.
type Metadata struct {
	AudioURL     string   `json:"audioUrl,omitempty"`
	DurationSec  *float64 `json:"durationSec,omitempty"`
	UserLocale   string   `json:"userLocale,omitempty"`
	TopicContext string   `json:"topicContext,omitempty"`
	QuestionText string   `json:"questionText,omitempty"`
}

// Topic returns the question or topic the speaker was answering, if any.
func (m Metadata) Topic() string {
	if v := strings.TrimSpace(m.TopicContext); v != "" {
		return v
	}
	return strings.TrimSpace(m.QuestionText)
}

const rubric = `Band descriptors (short):
- 9.0: Expert user (fully operational command, rare inaccuracies)
- 8.0: Very good user (occasional inaccuracies)
- 7.0: Good user (overall effective command)
- 6.0: Competent user (some errors, breakdowns in complex language)
- 5.0: Modest user (partial command, frequent issues)
- 4.0: Limited user (conveys only basic meaning)
- 3.0: Extremely limited
- 2.0: Intermittent
- 1.0: Non-user
- 0.0: No attempt

Round band scores to the nearest 0.5.
`

const tutorPersona = "You are an empathetic English learning assistant and daily tutor. " +
	"Greet the user conversationally, correct small errors when asked, provide short practice tasks (1-3 bullets), " +
	"and keep replies concise. When asked for a daily plan, produce a 7-day micro plan. " +
	"Reply in the user's locale if provided in metadata.userLocale."

// schemaTemplate mirrors the assessment result field order so the model copies it.
type schemaTemplate struct {
	BandScore float64 `json:"bandScore"`
	Criteria  struct {
		FluencyCoherence         float64 `json:"fluency_coherence"`
		LexicalResource          float64 `json:"lexical_resource"`
		GrammaticalRangeAccuracy float64 `json:"grammatical_range_accuracy"`
		Pronunciation            float64 `json:"pronunciation"`
	} `json:"criteria"`
	Strengths              []string             `json:"strengths"`
	Weaknesses             []string             `json:"weaknesses"`
	Corrections            []correctionTemplate `json:"corrections"`
	ConversationalResponse string               `json:"conversationalResponse"`
	Feedback               string               `json:"feedback"`
	FollowUpQuestions      []string             `json:"followUpQuestions"`
	PracticePlan           string               `json:"practicePlan"`
	RawModelOutput         string               `json:"rawModelOutput"`
}

type correctionTemplate struct {
	Original    string `json:"original"`
	Suggestion  string `json:"suggestion"`
	Explanation string `json:"explanation"`
}

// Schema returns the pretty-printed JSON template embedded in assessment prompts.
func Schema() string {
	tmpl := schemaTemplate{
		Strengths:         []string{""},
		Weaknesses:        []string{""},
		Corrections:       []correctionTemplate{{}},
		FollowUpQuestions: []string{"", "", ""},
	}
	data, _ := json.MarshalIndent(tmpl, "", "  ")
	return string(data)
}

func Assessment(transcript string, promptID string, md Metadata) string {
	if promptID == "" {
		promptID = "unknown"
	}
	topicInstruction := "- No specific question context provided. Assess general speaking ability."
	if topic := md.Topic(); topic != "" {
		topicInstruction = fmt.Sprintf("- IMPORTANT: The user is answering the question/topic: %q. Assess if the response is relevant to this topic.", topic)
	}

	var b strings.Builder
	b.WriteString("SYSTEM: You are an experienced IELTS speaking examiner. Use the official IELTS band descriptors. ")
	b.WriteString("Return ONLY a JSON object EXACTLY matching the schema provided.\n\n")
	b.WriteString("SCHEMA:\n")
	b.WriteString(Schema())
	b.WriteString("\n\nINSTRUCTIONS:\n")
	fmt.Fprintf(&b, "- Evaluate the transcript below for the given promptId: %s\n", promptID)
	b.WriteString(topicInstruction + "\n")
	b.WriteString("- Use the rubric and mapping. Provide numerical floats for criteria and bandScore and round the bandScore to nearest 0.5.\n")
	b.WriteString("- corrections: include up to 6 short corrections (each original <=25 words), with suggestion and brief explanation.\n")
	b.WriteString("- conversationalResponse: A short, natural, encouraging spoken-style reply to the user's content (as if you are the examiner chatting back), 1-2 sentences. Do NOT mention the score here.\n")
	b.WriteString("- feedback: 30-80 words, 3 actionable next steps.\n")
	b.WriteString("- followUpQuestions: provide exactly 3 follow-up questions.\n")
	b.WriteString("- practicePlan: provide a short 7-day micro plan as a single string with bullets separated by semicolons.\n")
	b.WriteString("- rawModelOutput: echo any extra commentary in one string for debugging.\n")
	b.WriteString("- DO NOT return any additional text outside the JSON.\n\n")
	b.WriteString("RUBRIC:\n")
	b.WriteString(rubric)
	b.WriteString("\nTRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nMETADATA: ")
	b.WriteString(encodeMetadata(md))
	b.WriteString("\n\nRespond now with the JSON only.")
	return b.String()
}

func Chat(message string, md Metadata) string {
	var b strings.Builder
	b.WriteString(tutorPersona)
	if md.UserLocale != "" {
		fmt.Fprintf(&b, " The user's locale is %s.", md.UserLocale)
	}
	b.WriteString("\n\nUSER_MESSAGE:\n")
	b.WriteString(message)
	b.WriteString("\n\nMETADATA:")
	b.WriteString(encodeMetadata(md))
	b.WriteString("\n\nRespond as a natural conversational reply. Return the reply text only.")
	return b.String()
}

func encodeMetadata(md Metadata) string {
	data, err := json.Marshal(md)
	if err != nil {
		return "{}"
	}
	return string(data)
}
