package forms

import (
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestValidateRequiredShortCircuits(t *testing.T) {
	field := Field{Label: "Name", Name: "name", Type: TypeText, Required: true, ValidationRules: Rules{MinLength: intPtr(5)}}

	errs := Validate([]Field{field}, map[string]string{"name": "ab"})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %#v", errs)
	}
	if errs["name"] != "Name must be at least 5 characters" {
		t.Fatalf("unexpected minLength message %q", errs["name"])
	}

	errs = Validate([]Field{field}, map[string]string{"name": ""})
	if errs["name"] != "Name is required" {
		t.Fatalf("expected required message, got %q", errs["name"])
	}

	errs = Validate([]Field{field}, map[string]string{"name": "   "})
	if errs["name"] != "Name is required" {
		t.Fatalf("expected whitespace to count as empty, got %q", errs["name"])
	}
}

func TestValidateOptionalEmptySkipsRules(t *testing.T) {
	field := Field{Label: "Website", Name: "website", Type: TypeURL, ValidationRules: Rules{MinLength: intPtr(10), Pattern: "https://.*"}}
	if errs := Validate([]Field{field}, map[string]string{}); len(errs) != 0 {
		t.Fatalf("expected no errors for empty optional field, got %#v", errs)
	}
}

func TestValidateEmail(t *testing.T) {
	field := Field{Label: "Email", Name: "email", Type: TypeEmail, Required: true}

	tests := []struct {
		value string
		ok    bool
	}{
		{value: "not-an-email", ok: false},
		{value: "x", ok: false},
		{value: "a@b", ok: false},
		{value: "two@@at.com", ok: false},
		{value: "a@b.co", ok: true},
		{value: "a@b.com", ok: true},
	}

	for _, tt := range tests {
		msg := ValidateField(field, tt.value)
		if tt.ok && msg != "" {
			t.Fatalf("expected %q to pass, got %q", tt.value, msg)
		}
		if !tt.ok && !strings.Contains(msg, "valid email") {
			t.Fatalf("expected %q to fail with email message, got %q", tt.value, msg)
		}
	}
}

func TestValidateLastRuleWins(t *testing.T) {
	field := Field{
		Label:           "Code",
		Name:            "code",
		Type:            TypeText,
		ValidationRules: Rules{MaxLength: intPtr(3), Pattern: "[0-9]+"},
	}

	msg := ValidateField(field, "abcdef")
	if msg != "Code format is invalid" {
		t.Fatalf("expected pattern message to overwrite length message, got %q", msg)
	}
}

func TestValidatePatternMustMatchWholeValue(t *testing.T) {
	field := Field{Label: "Zip", Name: "zip", Type: TypeText, ValidationRules: Rules{Pattern: "[0-9]{5}"}}
	if msg := ValidateField(field, "12345-99"); msg == "" {
		t.Fatal("expected partial match to fail")
	}
	if msg := ValidateField(field, "12345"); msg != "" {
		t.Fatalf("expected full match to pass, got %q", msg)
	}
}

func TestValidateLengthColumnsFallback(t *testing.T) {
	field := Field{Label: "Bio", Name: "bio", Type: TypeTextarea, MaxLength: intPtr(4)}
	if msg := ValidateField(field, "héllo"); msg != "Bio must be no more than 4 characters" {
		t.Fatalf("unexpected message %q", msg)
	}
	if msg := ValidateField(field, "héll"); msg != "" {
		t.Fatalf("expected rune count to be used, got %q", msg)
	}
}

func TestValidateTypedFields(t *testing.T) {
	tests := []struct {
		field Field
		value string
		want  string
	}{
		{field: Field{Label: "Site", Type: TypeURL}, value: "example.com", want: "Site must be a valid URL"},
		{field: Field{Label: "Site", Type: TypeURL}, value: "https://example.com", want: ""},
		{field: Field{Label: "Age", Type: TypeNumber}, value: "4x", want: "Age must be a number"},
		{field: Field{Label: "Age", Type: TypeNumber}, value: "42.5", want: ""},
		{field: Field{Label: "Start", Type: TypeDate}, value: "2024-13-01", want: "Start must be a valid date"},
		{field: Field{Label: "Start", Type: TypeDate}, value: "2024-12-01", want: ""},
		{field: Field{Label: "Topic", Type: TypeSelect, Options: []Option{{Value: "a", Label: "A"}}}, value: "b", want: "Topic has an invalid selection"},
		{field: Field{Label: "Topic", Type: TypeRadio, Options: []Option{{Value: "a", Label: "A"}}}, value: "a", want: ""},
	}

	for _, tt := range tests {
		if got := ValidateField(tt.field, tt.value); got != tt.want {
			t.Fatalf("ValidateField(%s, %q) = %q, want %q", tt.field.Type, tt.value, got, tt.want)
		}
	}
}

func TestSortedIsStable(t *testing.T) {
	fields := []Field{
		{Name: "c", FieldOrder: 2},
		{Name: "a", FieldOrder: 1},
		{Name: "b", FieldOrder: 1},
	}
	sorted := Sorted(fields)
	got := sorted[0].Name + sorted[1].Name + sorted[2].Name
	if got != "abc" {
		t.Fatalf("expected stable order abc, got %s", got)
	}
	if fields[0].Name != "c" {
		t.Fatal("Sorted must not modify its input")
	}
}

func TestNormalizeValues(t *testing.T) {
	values := NormalizeValues(map[string]any{
		"consent": true,
		"opt_out": false,
		"count":   float64(3),
		"tags":    []any{"a", "", "b"},
		"missing": nil,
	})

	if values["consent"] != "true" || values["opt_out"] != "" {
		t.Fatalf("unexpected bool conversion: %#v", values)
	}
	if values["count"] != "3" || values["tags"] != "a, b" || values["missing"] != "" {
		t.Fatalf("unexpected conversion: %#v", values)
	}
}
