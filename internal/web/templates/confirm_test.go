package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func samplePage() ConfirmPage {
	return ConfirmPage{
		RunID:  "0b6c1f0e-8d3a-4f3e-9a57-1c0f4f0b2a11",
		Source: "survey <2024>.csv",
		Rows:   12,
		Columns: []ConfirmColumn{
			{Name: "lon", Role: "X", Confidence: 0.9, Rationale: "longitude & east", Type: "number", Samples: []string{"2.35", "13.4"}},
			{Name: "name", Role: "LABEL", Confidence: 0.5, Type: "text", Samples: []string{"<b>Paris</b>"}},
		},
		Warnings: []string{"column \"z\" is mostly empty"},
		Roles:    []string{"X", "Y", "LABEL", "IGNORE"},
	}
}

func render(t *testing.T, p ConfirmPage) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Confirm(p).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestConfirm_Form(t *testing.T) {
	out := render(t, samplePage())

	for _, want := range []string{
		`action="/api/runs/0b6c1f0e-8d3a-4f3e-9a57-1c0f4f0b2a11/confirm"`,
		`<select name="role:lon">`,
		`<select name="role:name">`,
		`<option value="X" selected>X</option>`,
		`<option value="LABEL" selected>LABEL</option>`,
		`<td>0.90</td>`,
		`<td>2.35, 13.4</td>`,
		`12 rows.`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
	if got := strings.Count(out, " selected>"); got != 2 {
		t.Errorf("selected options = %d, want 2", got)
	}
	if strings.Contains(out, `class="alert"`) {
		t.Error("alert shown without an inference error")
	}
}

func TestConfirm_EscapesUserText(t *testing.T) {
	out := render(t, samplePage())

	for _, raw := range []string{"<2024>", "<b>Paris</b>", "longitude & east"} {
		if strings.Contains(out, raw) {
			t.Errorf("output contains unescaped %q", raw)
		}
	}
	for _, want := range []string{"survey &lt;2024&gt;.csv", "&lt;b&gt;Paris&lt;/b&gt;", "longitude &amp; east"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing escaped %q", want)
		}
	}
}

func TestConfirm_InferenceError(t *testing.T) {
	p := samplePage()
	p.InferenceError = "model <offline>"

	out := render(t, p)

	if !strings.Contains(out, `<p class="alert">Roles could not be inferred: model &lt;offline&gt;.`) {
		t.Errorf("alert missing or unescaped:\n%s", out)
	}
}

func TestConfirm_ActionEscapesRunID(t *testing.T) {
	p := samplePage()
	p.RunID = `a/"b`

	out := render(t, p)

	if !strings.Contains(out, `action="/api/runs/a%2F%22b/confirm"`) {
		t.Errorf("run id not escaped in action:\n%s", out)
	}
}
