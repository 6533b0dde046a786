package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrIndexOutOfRange is returned for edits addressing a missing record.
var ErrIndexOutOfRange = errors.New("item index out of range")

// Item is one record of an array editor. Key is a local identifier used to
// track the record between renders; it is never persisted.
type Item struct {
	Key    string
	Fields map[string]any
}

// ArrayEditor edits the records stored under a template's ArrayKey. Every
// mutation replaces the item slice with a new one and reports the records
// through onUpdate; nothing is persisted here.
type ArrayEditor struct {
	template Template
	items    []Item
	onUpdate func([]map[string]any)
}

// NewArrayEditor wraps records. onUpdate may be nil.
func NewArrayEditor(t Template, records []map[string]any, onUpdate func([]map[string]any)) *ArrayEditor {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, Item{Key: newLocalKey(), Fields: cloneMap(rec)})
	}
	return &ArrayEditor{template: t, items: items, onUpdate: onUpdate}
}

// Len returns the number of records.
func (a *ArrayEditor) Len() int {
	return len(a.items)
}

// Items returns a copy of the current records with their local keys.
func (a *ArrayEditor) Items() []Item {
	out := make([]Item, len(a.items))
	for i, item := range a.items {
		out[i] = Item{Key: item.Key, Fields: cloneMap(item.Fields)}
	}
	return out
}

// Add appends a record cloned from the template and returns it.
func (a *ArrayEditor) Add() Item {
	item := Item{Key: newLocalKey(), Fields: a.template.NewItem()}
	next := make([]Item, len(a.items), len(a.items)+1)
	copy(next, a.items)
	a.commit(append(next, item))
	return Item{Key: item.Key, Fields: cloneMap(item.Fields)}
}

// Edit sets one field of the record at index.
func (a *ArrayEditor) Edit(index int, field string, value any) error {
	if index < 0 || index >= len(a.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return errors.New("field name is required")
	}

	next := make([]Item, len(a.items))
	copy(next, a.items)
	fields := cloneMap(next[index].Fields)
	fields[field] = value
	next[index] = Item{Key: next[index].Key, Fields: fields}
	a.commit(next)
	return nil
}

// Delete removes the record at index.
func (a *ArrayEditor) Delete(index int) error {
	if index < 0 || index >= len(a.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	next := make([]Item, 0, len(a.items)-1)
	next = append(next, a.items[:index]...)
	next = append(next, a.items[index+1:]...)
	a.commit(next)
	return nil
}

// Records returns the records without local keys, ready to persist.
func (a *ArrayEditor) Records() []map[string]any {
	out := make([]map[string]any, len(a.items))
	for i, item := range a.items {
		out[i] = cloneMap(item.Fields)
	}
	return out
}

// clone copies the items, keys included, and reports to onUpdate.
func (a *ArrayEditor) clone(onUpdate func([]map[string]any)) *ArrayEditor {
	items := make([]Item, len(a.items))
	for i, item := range a.items {
		items[i] = Item{Key: item.Key, Fields: cloneMap(item.Fields)}
	}
	return &ArrayEditor{template: a.template, items: items, onUpdate: onUpdate}
}

func (a *ArrayEditor) commit(next []Item) {
	a.items = next
	if a.onUpdate != nil {
		a.onUpdate(a.Records())
	}
}

func newLocalKey() string {
	return "local-" + uuid.NewString()
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
