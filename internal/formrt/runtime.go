// Package formrt runs a public form on the client side: it loads the form
// schema, holds field values, validates them with the same rules as the
// server and submits them.
package formrt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sitecms/internal/client"
	"github.com/sitecms/internal/forms"
	"go.uber.org/zap"
)

// State of a form runtime.
type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	// StateFailed is ready for input again, with the errors of the last submit.
	StateFailed State = "failed"
	// StateErrored is terminal: the form could not be loaded.
	StateErrored State = "errored"
)

// DefaultSuccessMessage is shown when the server does not send one.
const DefaultSuccessMessage = "Thank you for your submission."

const genericSubmitError = "Something went wrong. Please try again."

var (
	ErrNotReady     = errors.New("form is not accepting input")
	ErrUnknownField = errors.New("unknown form field")
	// ErrInvalid is returned when client-side validation blocks a submit.
	ErrInvalid = errors.New("form has invalid fields")
	ErrClosed  = errors.New("form runtime is closed")
)

// API is the part of the client a form runtime needs.
type API interface {
	GetForm(ctx context.Context, slug string) (client.Form, error)
	SubmitForm(ctx context.Context, slug string, values map[string]string) (client.SubmitResult, error)
}

// Snapshot is a consistent view for rendering.
type Snapshot struct {
	State       State
	Form        client.Form
	Values      map[string]string
	FieldErrors map[string]string
	// Error is a general message not tied to a field.
	Error   string
	Message string
	LoadErr error
}

type Option func(*Runtime)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runtime is safe for concurrent use.
type Runtime struct {
	slug   string
	api    API
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	form    client.Form
	fields  []forms.Field
	values  map[string]string
	errs    map[string]string
	general string
	message string
	loadErr error
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New returns a runtime in StateLoading. Call Load to fetch the schema.
func New(slug string, api API, opts ...Option) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		slug:   strings.TrimSpace(slug),
		api:    api,
		logger: zap.NewNop(),
		state:  StateLoading,
		values: map[string]string{},
		errs:   map[string]string{},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the form schema. Any failure is terminal.
func (r *Runtime) Load(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateLoading {
		r.mu.Unlock()
		return fmt.Errorf("form already loaded")
	}
	r.mu.Unlock()

	ctx, stop := r.join(ctx)
	defer stop()
	form, err := r.api.GetForm(ctx, r.slug)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err != nil {
		r.state = StateErrored
		r.loadErr = err
		r.logger.Warn("form load failed", zap.String("slug", r.slug), zap.Error(err))
		return err
	}

	r.form = form
	r.fields = forms.Sorted(form.Fields)
	r.values = defaultValues(r.fields)
	r.state = StateReady
	return nil
}

// Fields returns the form fields in display order.
func (r *Runtime) Fields() []forms.Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]forms.Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// SetValue updates one field and clears its error.
func (r *Runtime) SetValue(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady && r.state != StateFailed {
		return ErrNotReady
	}
	if !r.hasField(name) {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	r.values[name] = value
	delete(r.errs, name)
	return nil
}

// Submit validates locally and posts the values. Local failures return
// ErrInvalid without a request; server failures move to StateFailed with the
// server's field errors or general message.
func (r *Runtime) Submit(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateReady && r.state != StateFailed {
		r.mu.Unlock()
		return ErrNotReady
	}
	if errs := forms.Validate(r.fields, r.values); len(errs) > 0 {
		r.errs = errs
		r.general = ""
		r.state = StateFailed
		r.mu.Unlock()
		return ErrInvalid
	}
	values := make(map[string]string, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	r.errs = map[string]string{}
	r.general = ""
	r.state = StateSubmitting
	r.mu.Unlock()

	ctx, stop := r.join(ctx)
	defer stop()
	result, err := r.api.SubmitForm(ctx, r.slug, values)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err != nil {
		r.state = StateFailed
		var apiErr *client.APIError
		switch {
		case errors.As(err, &apiErr) && len(apiErr.FieldErrors) > 0:
			r.errs = apiErr.FieldErrors
		case errors.As(err, &apiErr) && apiErr.Field != "" && r.hasField(apiErr.Field):
			r.errs = map[string]string{apiErr.Field: apiErr.Message}
		case errors.As(err, &apiErr) && apiErr.Message != "" && !errors.Is(err, client.ErrTransient):
			r.general = apiErr.Message
		default:
			r.general = genericSubmitError
		}
		r.logger.Info("form submit rejected", zap.String("slug", r.slug), zap.Error(err))
		return err
	}

	for k := range r.values {
		r.values[k] = ""
	}
	r.message = strings.TrimSpace(result.Message)
	if r.message == "" {
		r.message = DefaultSuccessMessage
	}
	r.state = StateSucceeded
	return nil
}

// Snapshot returns the current state.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		State:       r.state,
		Form:        r.form,
		Values:      make(map[string]string, len(r.values)),
		FieldErrors: make(map[string]string, len(r.errs)),
		Error:       r.general,
		Message:     r.message,
		LoadErr:     r.loadErr,
	}
	for k, v := range r.values {
		snap.Values[k] = v
	}
	for k, v := range r.errs {
		snap.FieldErrors[k] = v
	}
	return snap
}

// Close cancels pending requests; their results are dropped.
func (r *Runtime) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

func (r *Runtime) hasField(name string) bool {
	for _, f := range r.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (r *Runtime) join(ctx context.Context) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.ctx, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}

func defaultValues(fields []forms.Field) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = f.DefaultValue
	}
	return values
}
