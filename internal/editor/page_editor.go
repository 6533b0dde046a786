package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sitecms/internal/client"
	"github.com/sitecms/internal/content"
	"go.uber.org/zap"
)

// State is the page editor state.
type State string

const (
	StateIdle              State = "idle"
	StateEditingHero       State = "editing_hero"
	StateSavingHero        State = "saving_hero"
	StateSectionDialogOpen State = "section_dialog_open"
	StateSavingSection     State = "saving_section"
	StateReauthRequired    State = "reauth_required"
)

// DialogMode tells whether the section dialog creates or edits a row.
type DialogMode string

const (
	DialogNone DialogMode = ""
	DialogNew  DialogMode = "new"
	DialogEdit DialogMode = "edit"
)

var (
	ErrBusy     = errors.New("another edit is in progress")
	ErrNoDialog = errors.New("no edit dialog is open")
	ErrClosed   = errors.New("page editor is closed")
	ErrNotFound = errors.New("section not found on page")
)

// ContentAPI is the part of the API client the page editor uses.
type ContentAPI interface {
	GetAdminPageContent(ctx context.Context, slug string) (client.Bundle, error)
	RefreshAdminPageContent(ctx context.Context, slug string) (client.Bundle, error)
	UpdateHero(ctx context.Context, slug string, update client.HeroUpdate) (client.Content, error)
	AddSection(ctx context.Context, slug string, section client.NewSection) (client.Content, error)
	UpdateSection(ctx context.Context, slug string, id uint, update client.SectionUpdate) (client.Content, error)
	DeleteSection(ctx context.Context, slug string, id uint) error
	ReorderSections(ctx context.Context, slug string, positions []client.Position) error
}

// MediaAPI resolves media picks.
type MediaAPI interface {
	GetMedia(ctx context.Context, id uint) (client.Media, error)
}

// Draft is the in-progress edit of one row. ID is zero for a new section.
// Drafts returned by OpenHero, OpenSection and Snapshot are copies; changes
// to them are not staged. Use EditDraft to change the open draft.
type Draft struct {
	ID                 uint
	ContentType        string
	SectionName        string
	Title              string
	Subtitle           string
	Description        string
	LayoutType         string
	BackgroundImageURL string
	Position           *int
	IsActive           bool
	Fields             *FieldEditor
}

// Snapshot is a consistent view of the editor for rendering.
type Snapshot struct {
	Slug   string
	State  State
	Dialog DialogMode
	Bundle client.Bundle
	Draft  *Draft
	// SaveError is the last failed save, shown inline in the open dialog.
	SaveError error
	// LoadError is the last failed refresh; Bundle still holds the previous data.
	LoadError error
}

type PageEditorOption func(*PageEditor)

func WithRegistry(reg *Registry) PageEditorOption {
	return func(p *PageEditor) {
		if reg != nil {
			p.registry = reg
		}
	}
}

func WithLogger(logger *zap.Logger) PageEditorOption {
	return func(p *PageEditor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PageEditor drives the admin editing workflow of one page. Only one modal
// edit is open at a time, and every save is followed by a full reload of the
// page bundle.
type PageEditor struct {
	slug     string
	api      ContentAPI
	media    MediaAPI
	registry *Registry
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	dialog    DialogMode
	resume    State
	bundle    client.Bundle
	draft     *Draft
	saveErr   error
	loadErr   error
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	listeners []func(Snapshot)
}

// NewPageEditor returns an idle editor for slug. media may be nil when
// background picking is not needed.
func NewPageEditor(slug string, api ContentAPI, media MediaAPI, opts ...PageEditorOption) *PageEditor {
	ctx, cancel := context.WithCancel(context.Background())
	p := &PageEditor{
		slug:     strings.TrimSpace(slug),
		api:      api,
		media:    media,
		registry: DefaultRegistry(),
		logger:   zap.NewNop(),
		state:    StateIdle,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnChange registers fn to receive a snapshot after every state change.
func (p *PageEditor) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Snapshot returns the current state.
func (p *PageEditor) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *PageEditor) snapshotLocked() Snapshot {
	snap := Snapshot{
		Slug:      p.slug,
		State:     p.state,
		Dialog:    p.dialog,
		Bundle:    p.bundle,
		SaveError: p.saveErr,
		LoadError: p.loadErr,
	}
	if p.draft != nil {
		d := p.draft.detached()
		snap.Draft = &d
	}
	return snap
}

// notify must be called without p.mu held.
func (p *PageEditor) notify() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	snap := p.snapshotLocked()
	listeners := append([]func(Snapshot){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Load fetches the page bundle. A failed load keeps the previous bundle and
// records the error so the caller can offer a retry.
func (p *PageEditor) Load(ctx context.Context) error {
	ctx, stop := p.join(ctx)
	defer stop()

	bundle, err := p.api.GetAdminPageContent(ctx, p.slug)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.applyLoadLocked(bundle, err)
	p.mu.Unlock()
	p.notify()
	return err
}

func (p *PageEditor) applyLoadLocked(bundle client.Bundle, err error) {
	if err != nil {
		p.loadErr = err
		if errors.Is(err, client.ErrUnauthorized) && p.state != StateReauthRequired {
			p.resume = p.state
			p.state = StateReauthRequired
		}
		return
	}
	p.loadErr = nil
	p.bundle = bundle
}

// OpenHero opens the hero editor with the current hero, or an empty one.
func (p *PageEditor) OpenHero() (Draft, error) {
	p.mu.Lock()
	if err := p.requireIdleLocked(); err != nil {
		p.mu.Unlock()
		return Draft{}, err
	}

	var row client.Content
	if p.bundle.Hero != nil {
		row = *p.bundle.Hero
	} else {
		row = client.Content{ContentType: string(content.TypeHero), IsActive: true}
	}
	draft, err := p.draftFrom(row)
	if err != nil {
		p.mu.Unlock()
		return Draft{}, err
	}
	p.draft = draft
	p.state = StateEditingHero
	p.dialog = DialogNone
	p.saveErr = nil
	out := draft.detached()
	p.mu.Unlock()
	p.notify()
	return out, nil
}

// OpenNewSection opens the section dialog for a new row of contentType.
func (p *PageEditor) OpenNewSection(contentType string) (Draft, error) {
	t, err := content.ParseType(contentType)
	if err != nil {
		return Draft{}, err
	}
	return p.openSection(DialogNew, client.Content{ContentType: string(t), IsActive: true})
}

// SectionTypes lists the content types offered for a new section. The hero
// has its own dialog and is left out.
func (p *PageEditor) SectionTypes() []content.Type {
	all := p.registry.Types()
	out := make([]content.Type, 0, len(all))
	for _, t := range all {
		if t != content.TypeHero {
			out = append(out, t)
		}
	}
	return out
}

// OpenSection opens the section dialog for an existing row.
func (p *PageEditor) OpenSection(id uint) (Draft, error) {
	p.mu.Lock()
	row, ok := p.bundle.Find(id)
	p.mu.Unlock()
	if !ok || row.ContentType == string(content.TypeHero) {
		return Draft{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p.openSection(DialogEdit, row)
}

func (p *PageEditor) openSection(mode DialogMode, row client.Content) (Draft, error) {
	p.mu.Lock()
	if err := p.requireIdleLocked(); err != nil {
		p.mu.Unlock()
		return Draft{}, err
	}
	draft, err := p.draftFrom(row)
	if err != nil {
		p.mu.Unlock()
		return Draft{}, err
	}
	if mode == DialogEdit {
		pos := row.Position
		draft.Position = &pos
	}
	p.draft = draft
	p.state = StateSectionDialogOpen
	p.dialog = mode
	p.saveErr = nil
	out := draft.detached()
	p.mu.Unlock()
	p.notify()
	return out, nil
}

func (d *Draft) detached() Draft {
	out := *d
	if d.Position != nil {
		pos := *d.Position
		out.Position = &pos
	}
	if d.Fields != nil {
		out.Fields = d.Fields.clone()
	}
	return out
}

func (p *PageEditor) draftFrom(row client.Content) (*Draft, error) {
	fields, err := NewFieldEditor(p.registry, row.ContentType, row.Content)
	if err != nil {
		return nil, err
	}
	return &Draft{
		ID:                 row.ID,
		ContentType:        row.ContentType,
		SectionName:        row.SectionName,
		Title:              row.Title,
		Subtitle:           row.Subtitle,
		Description:        row.Description,
		LayoutType:         row.LayoutType,
		BackgroundImageURL: row.BackgroundImageURL,
		IsActive:           row.IsActive,
		Fields:             fields,
	}, nil
}

// EditDraft applies fn to the open draft.
func (p *PageEditor) EditDraft(fn func(d *Draft)) error {
	p.mu.Lock()
	if p.draft == nil || (p.state != StateEditingHero && p.state != StateSectionDialogOpen) {
		p.mu.Unlock()
		return ErrNoDialog
	}
	fn(p.draft)
	p.mu.Unlock()
	p.notify()
	return nil
}

// PickBackground stores the file path of a media asset as the draft's
// background image. The path is copied, so later changes to the asset do not
// reach saved rows.
func (p *PageEditor) PickBackground(ctx context.Context, mediaID uint) error {
	if p.media == nil {
		return errors.New("media picker is not configured")
	}
	p.mu.Lock()
	if p.draft == nil || (p.state != StateEditingHero && p.state != StateSectionDialogOpen) {
		p.mu.Unlock()
		return ErrNoDialog
	}
	p.mu.Unlock()

	ctx, stop := p.join(ctx)
	defer stop()
	asset, err := p.media.GetMedia(ctx, mediaID)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if p.draft == nil {
		p.mu.Unlock()
		return ErrNoDialog
	}
	p.draft.BackgroundImageURL = asset.FilePath
	p.mu.Unlock()
	p.notify()
	return nil
}

// Cancel closes the open dialog and drops the draft.
func (p *PageEditor) Cancel() error {
	p.mu.Lock()
	switch p.state {
	case StateEditingHero, StateSectionDialogOpen:
	case StateSavingHero, StateSavingSection:
		p.mu.Unlock()
		return ErrBusy
	default:
		p.mu.Unlock()
		return ErrNoDialog
	}
	p.resetLocked()
	p.mu.Unlock()
	p.notify()
	return nil
}

// Save persists the open draft and reloads the page. On failure the dialog
// stays open with the draft and the error; an auth failure moves the editor
// to StateReauthRequired.
func (p *PageEditor) Save(ctx context.Context) error {
	p.mu.Lock()
	var saving, editing State
	switch p.state {
	case StateEditingHero:
		saving, editing = StateSavingHero, StateEditingHero
	case StateSectionDialogOpen:
		saving, editing = StateSavingSection, StateSectionDialogOpen
	case StateSavingHero, StateSavingSection:
		p.mu.Unlock()
		return ErrBusy
	default:
		p.mu.Unlock()
		return ErrNoDialog
	}

	draft := *p.draft
	payload, err := draft.Fields.Content()
	if err != nil {
		p.saveErr = err
		p.mu.Unlock()
		p.notify()
		return err
	}
	mode := p.dialog
	p.state = saving
	p.saveErr = nil
	p.mu.Unlock()
	p.notify()

	ctx, stop := p.join(ctx)
	defer stop()

	switch {
	case editing == StateEditingHero:
		_, err = p.api.UpdateHero(ctx, p.slug, heroUpdate(draft, payload))
	case mode == DialogNew:
		_, err = p.api.AddSection(ctx, p.slug, newSection(draft, payload))
	default:
		_, err = p.api.UpdateSection(ctx, p.slug, draft.ID, sectionUpdate(draft, payload))
	}
	if p.isClosed() {
		return ErrClosed
	}

	bundle, loadErr := p.api.RefreshAdminPageContent(ctx, p.slug)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.applyLoadLocked(bundle, loadErr)
	switch {
	case err == nil:
		p.logger.Info("page content saved", zap.String("slug", p.slug), zap.String("content_type", draft.ContentType))
		state := p.state
		p.resetLocked()
		if state == StateReauthRequired {
			p.state, p.resume = state, StateIdle
		}
	case errors.Is(err, client.ErrUnauthorized):
		p.saveErr = err
		p.resume = editing
		p.state = StateReauthRequired
	default:
		p.saveErr = err
		if p.state != StateReauthRequired {
			p.state = editing
		}
	}
	p.mu.Unlock()
	p.notify()
	return err
}

// DeleteSection removes a section and reloads the page.
func (p *PageEditor) DeleteSection(ctx context.Context, id uint) error {
	return p.idleWrite(ctx, func(ctx context.Context) error {
		return p.api.DeleteSection(ctx, p.slug, id)
	})
}

// Reorder assigns positions 0..n-1 to ids in the given order.
func (p *PageEditor) Reorder(ctx context.Context, ids []uint) error {
	positions := make([]client.Position, len(ids))
	for i, id := range ids {
		positions[i] = client.Position{ID: id, Position: i}
	}
	return p.idleWrite(ctx, func(ctx context.Context) error {
		return p.api.ReorderSections(ctx, p.slug, positions)
	})
}

func (p *PageEditor) idleWrite(ctx context.Context, write func(context.Context) error) error {
	p.mu.Lock()
	if err := p.requireIdleLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	ctx, stop := p.join(ctx)
	defer stop()

	err := write(ctx)
	if p.isClosed() {
		return ErrClosed
	}
	bundle, loadErr := p.api.RefreshAdminPageContent(ctx, p.slug)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.applyLoadLocked(bundle, loadErr)
	if errors.Is(err, client.ErrUnauthorized) && p.state != StateReauthRequired {
		p.resume = StateIdle
		p.state = StateReauthRequired
	}
	p.mu.Unlock()
	p.notify()
	return err
}

// Reauthenticated leaves StateReauthRequired and returns to the edit that
// was interrupted, keeping its draft.
func (p *PageEditor) Reauthenticated() {
	p.mu.Lock()
	if p.state != StateReauthRequired {
		p.mu.Unlock()
		return
	}
	switch {
	case p.draft != nil && (p.resume == StateEditingHero || p.resume == StateSavingHero):
		p.state = StateEditingHero
	case p.draft != nil:
		p.state = StateSectionDialogOpen
	default:
		p.state = StateIdle
	}
	p.resume = ""
	p.mu.Unlock()
	p.notify()
}

// Close cancels pending requests; their results are dropped.
func (p *PageEditor) Close() {
	p.mu.Lock()
	p.closed = true
	p.listeners = nil
	p.mu.Unlock()
	p.cancel()
}

func (p *PageEditor) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *PageEditor) requireIdleLocked() error {
	switch {
	case p.closed:
		return ErrClosed
	case p.state == StateReauthRequired:
		return client.ErrUnauthorized
	case p.state != StateIdle:
		return ErrBusy
	}
	return nil
}

func (p *PageEditor) resetLocked() {
	p.state = StateIdle
	p.dialog = DialogNone
	p.draft = nil
	p.saveErr = nil
}

// join returns a context cancelled by either ctx or Close.
func (p *PageEditor) join(ctx context.Context) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.ctx, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}

func heroUpdate(d Draft, payload []byte) client.HeroUpdate {
	active := d.IsActive
	return client.HeroUpdate{
		Title:              &d.Title,
		Subtitle:           &d.Subtitle,
		Description:        &d.Description,
		Content:            payload,
		LayoutType:         nonEmpty(d.LayoutType),
		BackgroundImageURL: &d.BackgroundImageURL,
		IsActive:           &active,
	}
}

func newSection(d Draft, payload []byte) client.NewSection {
	active := d.IsActive
	return client.NewSection{
		ContentType:        d.ContentType,
		SectionName:        d.SectionName,
		Title:              d.Title,
		Subtitle:           d.Subtitle,
		Description:        d.Description,
		Content:            payload,
		LayoutType:         d.LayoutType,
		BackgroundImageURL: d.BackgroundImageURL,
		Position:           d.Position,
		IsActive:           &active,
	}
}

func sectionUpdate(d Draft, payload []byte) client.SectionUpdate {
	active := d.IsActive
	return client.SectionUpdate{
		SectionName:        nonEmpty(d.SectionName),
		Title:              &d.Title,
		Subtitle:           &d.Subtitle,
		Description:        &d.Description,
		Content:            payload,
		LayoutType:         nonEmpty(d.LayoutType),
		BackgroundImageURL: &d.BackgroundImageURL,
		Position:           d.Position,
		IsActive:           &active,
	}
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
