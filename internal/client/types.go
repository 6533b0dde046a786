package client

import (
	"encoding/json"
	"time"

	"github.com/sitecms/internal/forms"
)

// Content is one page content row as served by the API.
type Content struct {
	ID                 uint            `json:"id"`
	PageSlug           string          `json:"page_slug"`
	ContentType        string          `json:"content_type"`
	SectionName        string          `json:"section_name"`
	Title              string          `json:"title"`
	Subtitle           string          `json:"subtitle"`
	Description        string          `json:"description"`
	Content            json.RawMessage `json:"content"`
	LayoutType         string          `json:"layout_type"`
	BackgroundImageURL string          `json:"background_image_url"`
	Position           int             `json:"position"`
	IsActive           bool            `json:"is_active"`
	HTML               string          `json:"html,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Bundle is the grouped content of one page.
type Bundle struct {
	Page        string    `json:"page"`
	Hero        *Content  `json:"hero"`
	Sections    []Content `json:"sections"`
	Features    []Content `json:"features"`
	ContactInfo []Content `json:"contactInfo"`
	FormConfig  []Content `json:"formConfig"`
}

// All returns every row of the bundle, hero first.
func (b Bundle) All() []Content {
	out := make([]Content, 0, 1+len(b.Sections)+len(b.Features)+len(b.ContactInfo)+len(b.FormConfig))
	if b.Hero != nil {
		out = append(out, *b.Hero)
	}
	out = append(out, b.Sections...)
	out = append(out, b.Features...)
	out = append(out, b.ContactInfo...)
	out = append(out, b.FormConfig...)
	return out
}

// Find returns the row with id.
func (b Bundle) Find(id uint) (Content, bool) {
	for _, row := range b.All() {
		if row.ID == id {
			return row, true
		}
	}
	return Content{}, false
}

type PageSummary struct {
	Slug     string `json:"slug"`
	Sections int64  `json:"sections"`
	HasHero  bool   `json:"has_hero"`
}

// HeroUpdate changes the page hero. Nil fields are left unchanged.
type HeroUpdate struct {
	Title              *string         `json:"title,omitempty"`
	Subtitle           *string         `json:"subtitle,omitempty"`
	Description        *string         `json:"description,omitempty"`
	Content            json.RawMessage `json:"content,omitempty"`
	LayoutType         *string         `json:"layout_type,omitempty"`
	BackgroundImageURL *string         `json:"background_image_url,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"`
}

// NewSection creates a section. Position nil appends it to the page.
type NewSection struct {
	ContentType        string          `json:"content_type"`
	SectionName        string          `json:"section_name,omitempty"`
	Title              string          `json:"title,omitempty"`
	Subtitle           string          `json:"subtitle,omitempty"`
	Description        string          `json:"description,omitempty"`
	Content            json.RawMessage `json:"content,omitempty"`
	LayoutType         string          `json:"layout_type,omitempty"`
	BackgroundImageURL string          `json:"background_image_url,omitempty"`
	Position           *int            `json:"position,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"`
}

// SectionUpdate partially updates a section.
type SectionUpdate struct {
	ContentType        *string         `json:"content_type,omitempty"`
	SectionName        *string         `json:"section_name,omitempty"`
	Title              *string         `json:"title,omitempty"`
	Subtitle           *string         `json:"subtitle,omitempty"`
	Description        *string         `json:"description,omitempty"`
	Content            json.RawMessage `json:"content,omitempty"`
	LayoutType         *string         `json:"layout_type,omitempty"`
	BackgroundImageURL *string         `json:"background_image_url,omitempty"`
	Position           *int            `json:"position,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"`
}

type Position struct {
	ID       uint `json:"id"`
	Position int  `json:"position"`
}

// Form is the public schema of a form.
type Form struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Fields      []forms.Field `json:"fields"`
}

type SubmitResult struct {
	SubmissionID uint   `json:"submission_id"`
	Message      string `json:"message"`
}

type Media struct {
	ID       uint   `json:"id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	Category string `json:"category"`
	AltText  string `json:"alt_text"`
	MimeType string `json:"mime_type"`
}

type MediaQuery struct {
	Category string
	Search   string
	Page     int
	PerPage  int
}

type MediaPage struct {
	Items      []Media `json:"items"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"total_pages"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}
