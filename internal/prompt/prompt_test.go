package prompt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAssessmentPromptEmbedsSchemaAndConstraints(t *testing.T) {
	out := Assessment("I usually go travelling with my family in summer.", "part2-travel", Metadata{UserLocale: "vi-VN"})

	for _, want := range []string{
		"SYSTEM: You are an experienced IELTS speaking examiner",
		`"bandScore": 0`,
		`"fluency_coherence": 0`,
		`"grammatical_range_accuracy": 0`,
		"promptId: part2-travel",
		"No specific question context provided",
		"up to 6 short corrections (each original <=25 words)",
		"exactly 3 follow-up questions",
		"feedback: 30-80 words",
		"DO NOT return any additional text outside the JSON",
		"- 9.0: Expert user",
		"- 0.0: No attempt",
		"Round band scores to the nearest 0.5.",
		"TRANSCRIPT:\nI usually go travelling with my family in summer.",
		`METADATA: {"userLocale":"vi-VN"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	if !strings.HasSuffix(out, "Respond now with the JSON only.") {
		t.Fatalf("expected closing instruction")
	}
}

func TestAssessmentPromptTopicRelevance(t *testing.T) {
	out := Assessment("transcript", "", Metadata{QuestionText: "Describe a place you visited"})
	if !strings.Contains(out, `answering the question/topic: "Describe a place you visited"`) {
		t.Fatalf("expected topic instruction, got:\n%s", out)
	}
	if !strings.Contains(out, "promptId: unknown") {
		t.Fatalf("expected default prompt id")
	}

	out = Assessment("transcript", "p", Metadata{TopicContext: "Hometown", QuestionText: "ignored"})
	if !strings.Contains(out, `"Hometown"`) {
		t.Fatalf("expected topic context to take precedence")
	}
}

func TestSchemaTemplateIsValidJSON(t *testing.T) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(Schema()), &decoded); err != nil {
		t.Fatalf("schema template: %v", err)
	}
	questions, ok := decoded["followUpQuestions"].([]any)
	if !ok || len(questions) != 3 {
		t.Fatalf("expected 3 follow-up question slots, got %v", decoded["followUpQuestions"])
	}
	if _, ok := decoded["rawModelOutput"]; !ok {
		t.Fatalf("expected rawModelOutput in template")
	}
}

func TestChatPrompt(t *testing.T) {
	out := Chat("How do I improve my fluency?", Metadata{UserLocale: "es-ES"})
	for _, want := range []string{
		"empathetic English learning assistant",
		"The user's locale is es-ES.",
		"USER_MESSAGE:\nHow do I improve my fluency?",
		`METADATA:{"userLocale":"es-ES"}`,
		"Return the reply text only.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected chat prompt to contain %q", want)
		}
	}
	if strings.Contains(Chat("hi", Metadata{}), "The user's locale is") {
		t.Fatalf("expected no locale sentence without locale")
	}
}
