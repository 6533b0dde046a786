// Package editor holds the admin editing model: declarative field templates
// per content type, a repeated-item editor for array payloads, a freeform
// JSON fallback and the page editor state machine that drives saves through
// the API client.
package editor

import (
	"sort"
	"sync"

	"github.com/sitecms/internal/content"
)

// FieldKind selects the input rendered for a template field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindURL      FieldKind = "url"
	KindImage    FieldKind = "image"
	KindEmail    FieldKind = "email"
)

// FieldTemplate describes one editable key of a content object.
type FieldTemplate struct {
	Key   string
	Label string
	Kind  FieldKind
}

// Template is the editing surface of one content type. A template with an
// ArrayKey edits a list of records stored under that key; otherwise Fields
// are edited as scalars at the top level.
type Template struct {
	Type     content.Type
	Fields   []FieldTemplate
	ArrayKey string
	// ItemFields and ItemDefaults shape the records of an array template.
	ItemFields   []FieldTemplate
	ItemDefaults map[string]any
}

// IsArray reports whether the template edits a list of records.
func (t Template) IsArray() bool {
	return t.ArrayKey != ""
}

// NewItem returns a fresh record cloned from the item defaults.
func (t Template) NewItem() map[string]any {
	item := make(map[string]any, len(t.ItemFields))
	for _, f := range t.ItemFields {
		item[f.Key] = ""
	}
	for k, v := range t.ItemDefaults {
		item[k] = cloneValue(v)
	}
	return item
}

// Registry maps content types to templates. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[content.Type]Template
}

// NewRegistry returns a registry holding templates.
func NewRegistry(templates ...Template) *Registry {
	r := &Registry{templates: make(map[content.Type]Template, len(templates))}
	for _, t := range templates {
		r.Register(t)
	}
	return r
}

// Register adds or replaces the template of t.Type.
func (r *Registry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Type] = t
}

// Lookup returns the template for contentType.
func (r *Registry) Lookup(contentType content.Type) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[contentType]
	return t, ok
}

// Types lists the registered content types in name order.
func (r *Registry) Types() []content.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]content.Type, 0, len(r.templates))
	for t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func text(key, label string) FieldTemplate     { return FieldTemplate{Key: key, Label: label, Kind: KindText} }
func textarea(key, label string) FieldTemplate { return FieldTemplate{Key: key, Label: label, Kind: KindTextarea} }
func link(key, label string) FieldTemplate     { return FieldTemplate{Key: key, Label: label, Kind: KindURL} }
func image(key, label string) FieldTemplate    { return FieldTemplate{Key: key, Label: label, Kind: KindImage} }

// DefaultRegistry covers every typed payload of package content.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Template{
			Type: content.TypeHero,
			Fields: []FieldTemplate{
				text("ctaText", "Button text"),
				link("ctaLink", "Button link"),
				text("secondaryCtaText", "Secondary button text"),
				link("secondaryCtaLink", "Secondary button link"),
			},
		},
		Template{
			Type:   content.TypeTextSection,
			Fields: []FieldTemplate{textarea("body", "Body (Markdown)")},
		},
		Template{
			Type: content.TypeContactInfo,
			Fields: []FieldTemplate{
				{Key: "email", Label: "Email", Kind: KindEmail},
				text("phone", "Phone"),
				textarea("address", "Address"),
				text("hours", "Opening hours"),
			},
		},
		Template{
			Type:   content.TypeCallToAction,
			Fields: []FieldTemplate{text("buttonText", "Button text"), link("buttonLink", "Button link")},
		},
		Template{
			Type:       content.TypeFeatureList,
			ArrayKey:   "items",
			ItemFields: []FieldTemplate{text("title", "Title"), textarea("description", "Description"), text("icon", "Icon")},
			ItemDefaults: map[string]any{
				"title": "New feature",
			},
		},
		Template{
			Type:     content.TypeOfficeLocations,
			ArrayKey: "offices",
			ItemFields: []FieldTemplate{
				text("city", "City"),
				textarea("address", "Address"),
				text("phone", "Phone"),
				{Key: "email", Label: "Email", Kind: KindEmail},
				link("mapUrl", "Map link"),
			},
		},
		Template{
			Type:       content.TypeFormConfig,
			Fields:     []FieldTemplate{text("formSlug", "Form slug")},
			ArrayKey:   "options",
			ItemFields: []FieldTemplate{text("value", "Value"), text("label", "Label")},
		},
		Template{
			Type:       content.TypeInvestmentAreas,
			ArrayKey:   "areas",
			ItemFields: []FieldTemplate{text("title", "Title"), textarea("description", "Description"), text("icon", "Icon")},
		},
		Template{
			Type:     content.TypePortfolioCompanies,
			ArrayKey: "companies",
			ItemFields: []FieldTemplate{
				text("name", "Name"),
				textarea("description", "Description"),
				image("logo", "Logo"),
				link("website", "Website"),
				text("sector", "Sector"),
			},
		},
		Template{
			Type:     content.TypeTeamMembers,
			ArrayKey: "members",
			ItemFields: []FieldTemplate{
				text("name", "Name"),
				text("role", "Role"),
				textarea("bio", "Bio"),
				image("image", "Photo"),
				link("linkedin", "LinkedIn"),
			},
		},
		Template{
			Type:       content.TypeStatistics,
			ArrayKey:   "stats",
			ItemFields: []FieldTemplate{text("value", "Value"), text("label", "Label")},
		},
		Template{
			Type:     content.TypeTestimonials,
			ArrayKey: "items",
			ItemFields: []FieldTemplate{
				textarea("quote", "Quote"),
				text("author", "Author"),
				text("role", "Role"),
				text("company", "Company"),
			},
		},
	)
}
