package editor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sitecms/internal/content"
)

// Mode is the editing surface chosen for a content type.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeArray      Mode = "array"
	ModeFreeform   Mode = "freeform"
)

var (
	ErrUnknownField   = errors.New("field is not part of the template")
	ErrWrongMode      = errors.New("operation not available in this editing mode")
	ErrInvalidContent = errors.New("content does not match its type")
)

// FieldEditor stages edits to one content object. Nothing is persisted until
// the owner reads Content and saves it.
type FieldEditor struct {
	contentType content.Type
	template    Template
	mode        Mode
	staged      map[string]any
	array       *ArrayEditor

	text string
	hint string
}

// NewFieldEditor picks the editing mode for contentType from reg and stages
// raw. A nil reg uses DefaultRegistry.
func NewFieldEditor(reg *Registry, contentType string, raw []byte) (*FieldEditor, error) {
	t, err := content.ParseType(contentType)
	if err != nil {
		return nil, err
	}
	normalized, err := content.Normalize(raw)
	if err != nil {
		return nil, err
	}
	staged := map[string]any{}
	if err := json.Unmarshal(normalized, &staged); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = DefaultRegistry()
	}

	e := &FieldEditor{contentType: t, staged: staged}
	tmpl, ok := reg.Lookup(t)
	switch {
	case !ok:
		e.useFreeform("")
	case tmpl.IsArray():
		records, ok := recordsOf(staged[tmpl.ArrayKey])
		if !ok {
			e.template = tmpl
			e.useFreeform(fmt.Sprintf("%q is not a list of records, editing as JSON", tmpl.ArrayKey))
			break
		}
		e.template = tmpl
		e.mode = ModeArray
		e.staged[tmpl.ArrayKey] = toAnySlice(records)
		e.array = NewArrayEditor(tmpl, records, func(recs []map[string]any) {
			e.staged[tmpl.ArrayKey] = toAnySlice(recs)
		})
	default:
		e.template = tmpl
		e.mode = ModeStructured
	}
	return e, nil
}

func (e *FieldEditor) useFreeform(hint string) {
	e.mode = ModeFreeform
	e.hint = hint
	if pretty, err := json.MarshalIndent(e.staged, "", "  "); err == nil {
		e.text = string(pretty)
	}
}

func (e *FieldEditor) ContentType() content.Type { return e.contentType }
func (e *FieldEditor) Mode() Mode                { return e.mode }
func (e *FieldEditor) Template() Template        { return e.template }

// Array returns the record editor in array mode, nil otherwise.
func (e *FieldEditor) Array() *ArrayEditor {
	return e.array
}

// Field returns the staged value of a top-level key.
func (e *FieldEditor) Field(key string) any {
	return cloneValue(e.staged[key])
}

// SetField stages a scalar field of the template.
func (e *FieldEditor) SetField(key string, value any) error {
	if e.mode == ModeFreeform {
		return ErrWrongMode
	}
	for _, f := range e.template.Fields {
		if f.Key == key {
			e.staged[key] = value
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, key)
}

// SetText stages freeform JSON. Text that is not a JSON object leaves the
// staged content unchanged and sets Hint; it reports whether the text was
// accepted.
func (e *FieldEditor) SetText(text string) bool {
	if e.mode != ModeFreeform {
		e.hint = "structured content cannot be edited as text"
		return false
	}
	e.text = text

	normalized, err := content.Normalize([]byte(text))
	if err != nil {
		if errors.Is(err, content.ErrNotObject) {
			e.hint = "Content must be a JSON object"
		} else {
			e.hint = "Invalid JSON, changes are not staged yet"
		}
		return false
	}
	staged := map[string]any{}
	if err := json.Unmarshal(normalized, &staged); err != nil {
		e.hint = "Invalid JSON, changes are not staged yet"
		return false
	}
	e.staged = staged
	e.hint = ""
	return true
}

// Text returns the freeform text as last typed.
func (e *FieldEditor) Text() string { return e.text }

// Hint is a non-blocking message about the last freeform edit.
func (e *FieldEditor) Hint() string { return e.hint }

// Staged returns a copy of the staged object.
func (e *FieldEditor) Staged() map[string]any {
	return cloneMap(e.staged)
}

// Content encodes the staged object. Known content types must decode into
// their typed payload.
func (e *FieldEditor) Content() (json.RawMessage, error) {
	raw, err := json.Marshal(e.staged)
	if err != nil {
		return nil, err
	}
	if e.contentType.Known() {
		if _, err := content.Decode(e.contentType, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
	}
	return raw, nil
}

// clone returns an independent copy whose array editor writes into the copy.
func (e *FieldEditor) clone() *FieldEditor {
	out := &FieldEditor{
		contentType: e.contentType,
		template:    e.template,
		mode:        e.mode,
		staged:      cloneMap(e.staged),
		text:        e.text,
		hint:        e.hint,
	}
	if e.array != nil {
		key := e.template.ArrayKey
		out.array = e.array.clone(func(recs []map[string]any) {
			out.staged[key] = toAnySlice(recs)
		})
	}
	return out
}

// recordsOf accepts a missing value or a list of JSON objects.
func recordsOf(v any) ([]map[string]any, bool) {
	if v == nil {
		return []map[string]any{}, true
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, rec)
	}
	return out, true
}

func toAnySlice(records []map[string]any) []any {
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out
}
