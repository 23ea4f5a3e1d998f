package envelope

import "testing"

func TestClassifyShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind Kind
		text string
	}{
		{
			name: "candidates",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"first"},{"text":"second"}]}},{"content":{"parts":[{"text":"other"}]}}]}`,
			kind: KindCandidates,
			text: "first",
		},
		{
			name: "json string",
			raw:  `"just a string"`,
			kind: KindString,
			text: "just a string",
		},
		{
			name: "plain text body",
			raw:  "not json at all",
			kind: KindString,
			text: "not json at all",
		},
		{
			name: "output_text",
			raw:  `{"output_text":"legacy output"}`,
			kind: KindOutputText,
			text: "legacy output",
		},
		{
			name: "result string",
			raw:  `{"result":"legacy result"}`,
			kind: KindResult,
			text: "legacy result",
		},
		{
			name: "result object",
			raw:  `{"result": {"a": 1}}`,
			kind: KindResult,
			text: `{"a":1}`,
		},
		{
			name: "candidates take precedence",
			raw:  `{"output_text":"no","candidates":[{"content":{"parts":[{"text":"yes"}]}}]}`,
			kind: KindCandidates,
			text: "yes",
		},
		{
			name: "empty candidates falls through",
			raw:  `{"candidates":[],"output_text":"fallback"}`,
			kind: KindOutputText,
			text: "fallback",
		},
		{
			name: "empty output_text falls through",
			raw:  `{"output_text":"","result":"r"}`,
			kind: KindResult,
			text: "r",
		},
		{
			name: "unknown",
			raw:  `{ "foo": [1, 2] }`,
			kind: KindUnknown,
			text: `{"foo":[1,2]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := Classify([]byte(tc.raw))
			if env.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, env.Kind)
			}
			if env.Text != tc.text {
				t.Fatalf("expected text %q, got %q", tc.text, env.Text)
			}
		})
	}
}

func TestExtractUnknownShapeNeverEmpty(t *testing.T) {
	for _, raw := range []string{`[]`, `{}`, `42`, `null`, `{"candidates":"nope"}`} {
		if got := Extract([]byte(raw)); got == "" {
			t.Fatalf("expected non-empty fallback for %s", raw)
		}
	}
}
