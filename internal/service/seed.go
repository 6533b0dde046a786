package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/forms"
)

// SeedSection is one default section keyed by its section name.
type SeedSection struct {
	Slug  string
	Input SectionInput
}

// DefaultHomeHero is the hero created for an empty home page.
var DefaultHomeHero = HeroInput{
	Title:    stringRef("Welcome"),
	Subtitle: stringRef("We back founders building what comes next"),
	Content:  json.RawMessage(`{"ctaText":"Get in touch","ctaLink":"/contact"}`),
}

// DefaultSections are created once per section name.
var DefaultSections = []SeedSection{
	{Slug: "home", Input: SectionInput{
		ContentType: "text_section",
		SectionName: "intro",
		Title:       "Who we are",
		Content:     json.RawMessage(`{"body":"An early stage fund for **technical founders**."}`),
		Position:    intRef(1),
	}},
	{Slug: "home", Input: SectionInput{
		ContentType: "statistics",
		SectionName: "numbers",
		Title:       "By the numbers",
		LayoutType:  db.LayoutGrid,
		Content:     json.RawMessage(`{"stats":[{"label":"Companies","value":"40+"},{"label":"Funds","value":"3"}]}`),
		Position:    intRef(2),
	}},
	{Slug: "home", Input: SectionInput{
		ContentType: "call_to_action",
		SectionName: "cta",
		Title:       "Building something?",
		Content:     json.RawMessage(`{"buttonText":"Contact us","buttonLink":"/contact"}`),
		Position:    intRef(3),
	}},
	{Slug: "contact", Input: SectionInput{
		ContentType: "form_config",
		SectionName: "contact_form",
		Title:       "Send us a message",
		Content:     json.RawMessage(`{"formSlug":"contact"}`),
		Position:    intRef(1),
	}},
}

// DefaultContactForm is created when no form with its slug exists.
var DefaultContactForm = FormInput{
	Name:           "Contact",
	Slug:           "contact",
	SuccessMessage: "Thanks for reaching out. We will reply soon.",
	Fields: []forms.Field{
		{Label: "Name", Name: "name", Type: forms.TypeText, Required: true, FieldOrder: 1},
		{Label: "Email", Name: "email", Type: forms.TypeEmail, Required: true, FieldOrder: 2},
		{Label: "Message", Name: "message", Type: forms.TypeTextarea, Required: true, FieldOrder: 3, ValidationRules: forms.Rules{MinLength: intRef(10), MaxLength: intRef(2000)}},
	},
}

// SeedReport counts what SeedDefaults created.
type SeedReport struct {
	Heroes   int
	Sections int
	Forms    int
}

// SeedDefaults creates the default home page and contact form. Running it
// again creates nothing that already exists.
func SeedDefaults(ctx context.Context, pages *PageContentService, formSvc *FormService) (SeedReport, error) {
	var report SeedReport

	bundle, err := pages.GetAdminPageContent(ctx, "home")
	if err != nil {
		return report, err
	}
	if bundle.Hero == nil {
		if _, err := pages.UpdateHero(ctx, "home", DefaultHomeHero); err != nil {
			return report, err
		}
		report.Heroes++
	}

	for _, seed := range DefaultSections {
		var count int64
		if err := pages.db.WithContext(ctx).Model(&db.PageContent{}).
			Where("page_slug = ? AND section_name = ?", seed.Slug, seed.Input.SectionName).
			Count(&count).Error; err != nil {
			return report, err
		}
		if count > 0 {
			continue
		}
		if _, err := pages.AddSection(ctx, seed.Slug, seed.Input); err != nil {
			return report, err
		}
		report.Sections++
	}

	if _, err := formSvc.GetBySlug(ctx, DefaultContactForm.Slug); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return report, err
		}
		if _, err := formSvc.Create(ctx, DefaultContactForm); err != nil {
			return report, err
		}
		report.Forms++
	}

	return report, nil
}

func stringRef(v string) *string { return &v }
func intRef(v int) *int          { return &v }
