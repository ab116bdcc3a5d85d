package redact

import "testing"

func TestScrubMasksPersonalDetails(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	data := map[string]interface{}{
		"note":   "reach me at jane@example.com or 555-123-4567",
		"nested": map[string]interface{}{"contact": "(555) 123-4567"},
		"scale":  7,
	}

	scrubbed := redactor.Scrub(data)

	note := scrubbed["note"].(string)
	if note != "reach me at ***@*** or (***) ***-****" {
		t.Fatalf("unexpected scrubbed note: %q", note)
	}
	nested := scrubbed["nested"].(map[string]interface{})
	if nested["contact"].(string) != "(***) ***-****" {
		t.Fatalf("unexpected nested scrub: %v", nested)
	}
	if scrubbed["scale"].(int) != 7 {
		t.Fatal("non-string values must pass through")
	}
	if data["note"].(string) == note {
		t.Fatal("expected original payload untouched")
	}
}

func TestScrubWalksStringSlices(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	scrubbed := redactor.Scrub(map[string]interface{}{
		"symptoms": []string{"headache since 01/02/1990", "nausea"},
	})
	symptoms := scrubbed["symptoms"].([]interface{})
	if symptoms[0].(string) != "headache since ##/##/####" {
		t.Fatalf("unexpected slice scrub: %v", symptoms)
	}
	if symptoms[1].(string) != "nausea" {
		t.Fatalf("unexpected slice scrub: %v", symptoms)
	}
}

func TestDisabledRulesAreSkipped(t *testing.T) {
	cfg := RulesConfig{Rules: []Rule{
		{Name: "Email", Type: "email", Pattern: `@`, Mask: "*", Enabled: false},
	}}
	redactor, err := NewRedactor(cfg)
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}
	if got := redactor.ScrubText("a@b"); got != "a@b" {
		t.Fatalf("disabled rule applied: %q", got)
	}
}

func TestInvalidPatternFailsCompile(t *testing.T) {
	cfg := RulesConfig{Rules: []Rule{
		{Name: "Broken", Pattern: `([`, Mask: "*", Enabled: true},
	}}
	if _, err := NewRedactor(cfg); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestNilRedactorPassesThrough(t *testing.T) {
	var redactor *Redactor
	data := map[string]interface{}{"note": "jane@example.com"}
	if got := redactor.Scrub(data); got["note"].(string) != "jane@example.com" {
		t.Fatal("nil redactor must pass data through")
	}
}
