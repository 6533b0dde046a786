package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks rejected input; nothing was persisted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing id or slug.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrSectionNotFound = fmt.Errorf("page section %w", ErrNotFound)
	ErrFormNotFound    = fmt.Errorf("form %w", ErrNotFound)
	ErrMediaNotFound   = fmt.Errorf("media asset %w", ErrNotFound)
)

// ValidationError reports one invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FieldErrors maps submission keys to messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e[key])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

func (e FieldErrors) Unwrap() error { return ErrValidation }
