// Package forms holds the form field schema shared by the API, the client
// runtime and the server, together with the field validation rules.
package forms

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Field types.
const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeTel      = "tel"
	TypeURL      = "url"
	TypeNumber   = "number"
	TypeDate     = "date"
	TypeTextarea = "textarea"
	TypeSelect   = "select"
	TypeRadio    = "radio"
	TypeCheckbox = "checkbox"
	TypeFile     = "file"
)

var fieldTypes = map[string]bool{
	TypeText: true, TypeEmail: true, TypeTel: true, TypeURL: true, TypeNumber: true, TypeDate: true,
	TypeTextarea: true, TypeSelect: true, TypeRadio: true, TypeCheckbox: true, TypeFile: true,
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Option is one choice of a select, radio or checkbox field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Rules is the validation_rules object of a field.
type Rules struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Accept    string `json:"accept,omitempty"`
}

// Field is the wire shape of a form field.
type Field struct {
	ID              uint     `json:"id,omitempty"`
	Label           string   `json:"label"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Required        bool     `json:"required"`
	FieldOrder      int      `json:"field_order"`
	Options         []Option `json:"options"`
	ValidationRules Rules    `json:"validation_rules"`
	DefaultValue    string   `json:"default_value,omitempty"`
	HelpText        string   `json:"help_text,omitempty"`
	MaxLength       *int     `json:"max_length,omitempty"`
	MinLength       *int     `json:"min_length,omitempty"`
}

// KnownType reports whether t is a supported field type.
func KnownType(t string) bool {
	return fieldTypes[t]
}

// HasOptions reports whether the field type renders an option list.
func HasOptions(t string) bool {
	return t == TypeSelect || t == TypeRadio || t == TypeCheckbox
}

// Sorted returns a copy of fields in ascending FieldOrder; equal orders keep
// their original position.
func Sorted(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FieldOrder < out[j].FieldOrder
	})
	return out
}

// Validate checks values against fields and returns one message per failing
// field keyed by field name. An empty map means the submission is valid.
func Validate(fields []Field, values map[string]string) map[string]string {
	errs := map[string]string{}
	for _, field := range Sorted(fields) {
		if msg := ValidateField(field, values[field.Name]); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

// ValidateField applies the rules of one field in a fixed order. Later
// failures overwrite earlier ones, so only the last failing rule is reported.
func ValidateField(field Field, value string) string {
	label := field.Label
	if strings.TrimSpace(label) == "" {
		label = field.Name
	}

	if strings.TrimSpace(value) == "" {
		if field.Required {
			return fmt.Sprintf("%s is required", label)
		}
		return ""
	}

	var msg string

	if field.Type == TypeEmail && !emailPattern.MatchString(strings.TrimSpace(value)) {
		msg = "Please enter a valid email address"
	}
	if typeMsg := checkType(field, label, value); typeMsg != "" {
		msg = typeMsg
	}

	rules := effectiveRules(field)
	length := utf8.RuneCountInString(value)
	if rules.MinLength != nil && length < *rules.MinLength {
		msg = fmt.Sprintf("%s must be at least %d characters", label, *rules.MinLength)
	}
	if rules.MaxLength != nil && length > *rules.MaxLength {
		msg = fmt.Sprintf("%s must be no more than %d characters", label, *rules.MaxLength)
	}
	if rules.Pattern != "" {
		if re, err := CompilePattern(rules.Pattern); err == nil && !re.MatchString(value) {
			msg = fmt.Sprintf("%s format is invalid", label)
		}
	}

	return msg
}

// CompilePattern anchors a user supplied pattern so it must match the whole value.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

func checkType(field Field, label, value string) string {
	trimmed := strings.TrimSpace(value)
	switch field.Type {
	case TypeURL:
		u, err := url.ParseRequestURI(trimmed)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Sprintf("%s must be a valid URL", label)
		}
	case TypeNumber:
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			return fmt.Sprintf("%s must be a number", label)
		}
	case TypeDate:
		if _, err := time.Parse("2006-01-02", trimmed); err != nil {
			return fmt.Sprintf("%s must be a valid date", label)
		}
	case TypeSelect, TypeRadio:
		if len(field.Options) > 0 && !hasOption(field.Options, trimmed) {
			return fmt.Sprintf("%s has an invalid selection", label)
		}
	}
	return ""
}

func hasOption(options []Option, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// effectiveRules merges the min_length/max_length columns into the rule object;
// explicit validation_rules win.
func effectiveRules(field Field) Rules {
	rules := field.ValidationRules
	if rules.MinLength == nil && field.MinLength != nil {
		rules.MinLength = field.MinLength
	}
	if rules.MaxLength == nil && field.MaxLength != nil {
		rules.MaxLength = field.MaxLength
	}
	return rules
}

// NormalizeValues converts a decoded JSON submission into string values.
// Booleans become "true" or "", lists are joined with ", ".
func NormalizeValues(raw map[string]any) map[string]string {
	values := make(map[string]string, len(raw))
	for key, v := range raw {
		values[key] = stringify(v)
	}
	return values
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		if typed {
			return "true"
		}
		return ""
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(typed)
	}
}
