package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sitecms/internal/content"
	"github.com/sitecms/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Bucket names of a page bundle.
const (
	BucketHero        = "hero"
	BucketSections    = "sections"
	BucketFeatures    = "features"
	BucketContactInfo = "contactInfo"
	BucketFormConfig  = "formConfig"
)

var contentBuckets = map[content.Type]string{
	content.TypeHero:        BucketHero,
	content.TypeFeatureList: BucketFeatures,
	content.TypeContactInfo: BucketContactInfo,
	content.TypeFormConfig:  BucketFormConfig,
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,99}$`)

var layoutTypes = map[string]bool{
	db.LayoutFullWidth: true,
	db.LayoutTwoColumn: true,
	db.LayoutGrid:      true,
	db.LayoutList:      true,
}

// CacheInvalidator drops cached public reads after a write.
type CacheInvalidator interface {
	InvalidateContent(ctx context.Context, slug string)
	InvalidateForm(ctx context.Context, slug string)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateContent(context.Context, string) {}
func (noopInvalidator) InvalidateForm(context.Context, string)    {}

// BucketFor returns the bundle bucket a content type is grouped into.
func BucketFor(contentType string) string {
	if bucket, ok := contentBuckets[content.Type(contentType)]; ok {
		return bucket
	}
	return BucketSections
}

// ContentView is a page content row as served to readers. HTML is set for
// text sections.
type ContentView struct {
	db.PageContent
	HTML string `json:"html,omitempty"`
}

// PageBundle groups the rows of one page by bucket. Every bucket is sorted by
// position ascending, ties by id.
type PageBundle struct {
	Page        string        `json:"page"`
	Hero        *ContentView  `json:"hero"`
	Sections    []ContentView `json:"sections"`
	Features    []ContentView `json:"features"`
	ContactInfo []ContentView `json:"contactInfo"`
	FormConfig  []ContentView `json:"formConfig"`
}

// PageSummary is one entry of the admin page list.
type PageSummary struct {
	Slug     string `json:"slug"`
	Sections int64  `json:"sections"`
	HasHero  bool   `json:"has_hero"`
}

// HeroInput updates the hero of a page. Nil fields are left unchanged.
type HeroInput struct {
	Title              *string
	Subtitle           *string
	Description        *string
	Content            json.RawMessage
	LayoutType         *string
	BackgroundImageURL *string
	IsActive           *bool
}

// SectionInput creates a page section. Position defaults to the end of the page.
type SectionInput struct {
	ContentType        string
	SectionName        string
	Title              string
	Subtitle           string
	Description        string
	Content            json.RawMessage
	LayoutType         string
	BackgroundImageURL string
	Position           *int
	IsActive           *bool
}

// SectionPatch partially updates a section. Nil fields are left unchanged.
type SectionPatch struct {
	ContentType        *string
	SectionName        *string
	Title              *string
	Subtitle           *string
	Description        *string
	Content            json.RawMessage
	LayoutType         *string
	BackgroundImageURL *string
	Position           *int
	IsActive           *bool
}

// PositionUpdate assigns a new position to one section.
type PositionUpdate struct {
	ID       uint `json:"id"`
	Position int  `json:"position"`
}

// PageContentService owns reads and writes of page content rows.
type PageContentService struct {
	db          *gorm.DB
	invalidator CacheInvalidator
	logger      *zap.Logger
}

// NewPageContentService returns a new PageContentService instance.
func NewPageContentService(gdb *gorm.DB, invalidator CacheInvalidator, logger *zap.Logger) *PageContentService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageContentService{db: gdb, invalidator: invalidator, logger: logger}
}

// GetPageContent returns the active rows of a page grouped by bucket.
// A slug without rows yields an empty bundle.
func (s *PageContentService) GetPageContent(ctx context.Context, slug string) (*PageBundle, error) {
	return s.loadBundle(ctx, slug, false)
}

// GetAdminPageContent is GetPageContent including inactive rows.
func (s *PageContentService) GetAdminPageContent(ctx context.Context, slug string) (*PageBundle, error) {
	return s.loadBundle(ctx, slug, true)
}

// ListPages returns every slug that has content.
func (s *PageContentService) ListPages(ctx context.Context) ([]PageSummary, error) {
	var rows []struct {
		Slug     string
		Sections int64
		Heroes   int64
	}
	if err := s.db.WithContext(ctx).Model(&db.PageContent{}).
		Select("page_slug AS slug, COUNT(*) AS sections, SUM(CASE WHEN content_type = ? THEN 1 ELSE 0 END) AS heroes", db.ContentTypeHero).
		Group("page_slug").
		Order("page_slug asc").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	pages := make([]PageSummary, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, PageSummary{Slug: row.Slug, Sections: row.Sections, HasHero: row.Heroes > 0})
	}
	return pages, nil
}

// UpdateHero creates the hero of a page or updates it in place.
func (s *PageContentService) UpdateHero(ctx context.Context, slug string, input HeroInput) (*db.PageContent, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}

	patch := SectionPatch{
		Title:              input.Title,
		Subtitle:           input.Subtitle,
		Description:        input.Description,
		Content:            input.Content,
		LayoutType:         input.LayoutType,
		BackgroundImageURL: input.BackgroundImageURL,
		IsActive:           input.IsActive,
	}

	var hero db.PageContent
	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("page_slug = ? AND content_type = ?", slug, db.ContentTypeHero).First(&hero).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
				return invalid("title", "hero title is required")
			}
			created = true
			hero = db.PageContent{
				PageSlug:    slug,
				ContentType: db.ContentTypeHero,
				SectionName: db.ContentTypeHero,
				Content:     []byte("{}"),
				LayoutType:  db.LayoutFullWidth,
				IsActive:    true,
			}
		case findErr != nil:
			return findErr
		}

		if err := applyPatch(&hero, patch); err != nil {
			return err
		}
		if strings.TrimSpace(hero.Title) == "" {
			return invalid("title", "hero title must not be empty")
		}
		return tx.Save(&hero).Error
	})
	if err != nil {
		return nil, wrapWriteError("update hero", err)
	}

	s.logger.Info("page hero saved",
		zap.String("slug", slug),
		zap.Uint("id", hero.ID),
		zap.Bool("created", created),
	)
	s.invalidator.InvalidateContent(ctx, slug)
	return &hero, nil
}

// AddSection inserts a new row for the page.
func (s *PageContentService) AddSection(ctx context.Context, slug string, input SectionInput) (*db.PageContent, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.ContentType) == "" {
		return nil, invalid("content_type", "content type is required")
	}
	kind, err := content.ParseType(input.ContentType)
	if err != nil {
		return nil, invalid("content_type", "%s", err.Error())
	}
	body, err := content.Normalize(input.Content)
	if err != nil {
		return nil, invalid("content", "%s", err.Error())
	}
	layout, err := normalizeLayout(input.LayoutType)
	if err != nil {
		return nil, err
	}
	if input.Position != nil && *input.Position < 0 {
		return nil, invalid("position", "position must not be negative")
	}

	row := db.PageContent{
		PageSlug:           slug,
		ContentType:        string(kind),
		Title:              strings.TrimSpace(input.Title),
		Subtitle:           strings.TrimSpace(input.Subtitle),
		Description:        input.Description,
		Content:            body,
		LayoutType:         layout,
		BackgroundImageURL: strings.TrimSpace(input.BackgroundImageURL),
		IsActive:           true,
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if kind == content.TypeHero {
			if err := ensureNoHero(tx, slug, 0); err != nil {
				return err
			}
		}

		if input.Position != nil {
			row.Position = *input.Position
		} else {
			var count int64
			if err := tx.Model(&db.PageContent{}).Where("page_slug = ?", slug).Count(&count).Error; err != nil {
				return err
			}
			row.Position = int(count)
		}

		name, err := resolveSectionName(tx, slug, input.SectionName, kind, 0)
		if err != nil {
			return err
		}
		row.SectionName = name

		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, wrapWriteError("add section", err)
	}

	s.logger.Info("page section added",
		zap.String("slug", slug),
		zap.Uint("id", row.ID),
		zap.String("content_type", row.ContentType),
		zap.Int("position", row.Position),
	)
	s.invalidator.InvalidateContent(ctx, slug)
	return &row, nil
}

// UpdateSection partially updates the row id of the page.
func (s *PageContentService) UpdateSection(ctx context.Context, slug string, id uint, patch SectionPatch) (*db.PageContent, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}

	var row db.PageContent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND page_slug = ?", id, slug).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSectionNotFound
			}
			return err
		}

		if patch.ContentType != nil {
			kind, err := content.ParseType(*patch.ContentType)
			if err != nil {
				return invalid("content_type", "%s", err.Error())
			}
			if kind == content.TypeHero && !row.IsHero() {
				if err := ensureNoHero(tx, slug, row.ID); err != nil {
					return err
				}
			}
			row.ContentType = string(kind)
		}

		if patch.SectionName != nil {
			name, err := resolveSectionName(tx, slug, *patch.SectionName, content.Type(row.ContentType), row.ID)
			if err != nil {
				return err
			}
			row.SectionName = name
		}

		if err := applyPatch(&row, patch); err != nil {
			return err
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, wrapWriteError("update section", err)
	}

	s.logger.Info("page section updated", zap.String("slug", slug), zap.Uint("id", row.ID))
	s.invalidator.InvalidateContent(ctx, slug)
	return &row, nil
}

// DeleteSection hard deletes the row id of the page. Deleting an id that does
// not exist returns ErrSectionNotFound.
func (s *PageContentService) DeleteSection(ctx context.Context, slug string, id uint) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("id = ? AND page_slug = ?", id, slug).Delete(&db.PageContent{})
	if result.Error != nil {
		return fmt.Errorf("delete section: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSectionNotFound
	}

	s.logger.Info("page section deleted", zap.String("slug", slug), zap.Uint("id", id))
	s.invalidator.InvalidateContent(ctx, slug)
	return nil
}

// ReorderSections applies all position updates in one transaction. If any id
// does not belong to the page nothing is changed.
func (s *PageContentService) ReorderSections(ctx context.Context, slug string, updates []PositionUpdate) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	seen := make(map[uint]bool, len(updates))
	for _, update := range updates {
		if update.ID == 0 {
			return invalid("id", "section id is required")
		}
		if update.Position < 0 {
			return invalid("position", "position must not be negative")
		}
		if seen[update.ID] {
			return invalid("id", "section %d listed twice", update.ID)
		}
		seen[update.ID] = true
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			result := tx.Model(&db.PageContent{}).
				Where("id = ? AND page_slug = ?", update.ID, slug).
				Update("position", update.Position)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: id %d", ErrSectionNotFound, update.ID)
			}
		}
		return nil
	})
	if err != nil {
		return wrapWriteError("reorder sections", err)
	}

	s.logger.Info("page sections reordered", zap.String("slug", slug), zap.Int("count", len(updates)))
	s.invalidator.InvalidateContent(ctx, slug)
	return nil
}

func (s *PageContentService) loadBundle(ctx context.Context, slug string, includeInactive bool) (*PageBundle, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("page_slug = ?", slug)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rows []db.PageContent
	if err := query.Order("position asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load page %s: %w", slug, err)
	}

	bundle := &PageBundle{
		Page:        slug,
		Sections:    []ContentView{},
		Features:    []ContentView{},
		ContactInfo: []ContentView{},
		FormConfig:  []ContentView{},
	}
	for _, row := range rows {
		view := s.view(row)
		switch BucketFor(row.ContentType) {
		case BucketHero:
			if bundle.Hero == nil {
				bundle.Hero = &view
			}
		case BucketFeatures:
			bundle.Features = append(bundle.Features, view)
		case BucketContactInfo:
			bundle.ContactInfo = append(bundle.ContactInfo, view)
		case BucketFormConfig:
			bundle.FormConfig = append(bundle.FormConfig, view)
		default:
			bundle.Sections = append(bundle.Sections, view)
		}
	}
	return bundle, nil
}

func (s *PageContentService) view(row db.PageContent) ContentView {
	view := ContentView{PageContent: row}
	if row.ContentType != string(content.TypeTextSection) {
		return view
	}

	source := row.Description
	if payload, err := content.Decode(content.TypeTextSection, row.Content); err == nil {
		if section, ok := payload.(content.TextSection); ok && strings.TrimSpace(section.Body) != "" {
			source = section.Body
		}
	}

	html, err := renderMarkdown(source)
	if err != nil {
		s.logger.Warn("render text section failed", zap.Uint("id", row.ID), zap.Error(err))
		return view
	}
	view.HTML = html
	return view
}

func applyPatch(row *db.PageContent, patch SectionPatch) error {
	if patch.Title != nil {
		row.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Subtitle != nil {
		row.Subtitle = strings.TrimSpace(*patch.Subtitle)
	}
	if patch.Description != nil {
		row.Description = *patch.Description
	}
	if patch.Content != nil {
		body, err := content.Normalize(patch.Content)
		if err != nil {
			return invalid("content", "%s", err.Error())
		}
		row.Content = body
	}
	if patch.LayoutType != nil {
		layout, err := normalizeLayout(*patch.LayoutType)
		if err != nil {
			return err
		}
		row.LayoutType = layout
	}
	if patch.BackgroundImageURL != nil {
		row.BackgroundImageURL = strings.TrimSpace(*patch.BackgroundImageURL)
	}
	if patch.Position != nil {
		if *patch.Position < 0 {
			return invalid("position", "position must not be negative")
		}
		row.Position = *patch.Position
	}
	if patch.IsActive != nil {
		row.IsActive = *patch.IsActive
	}
	return nil
}

func ensureNoHero(tx *gorm.DB, slug string, exceptID uint) error {
	var count int64
	query := tx.Model(&db.PageContent{}).Where("page_slug = ? AND content_type = ?", slug, db.ContentTypeHero)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return invalid("content_type", "page %q already has a hero", slug)
	}
	return nil
}

// resolveSectionName keeps section_name unique within a page. An empty name
// is derived from the content type.
func resolveSectionName(tx *gorm.DB, slug, requested string, kind content.Type, exceptID uint) (string, error) {
	name := strings.TrimSpace(requested)
	if name != "" {
		taken, err := sectionNameTaken(tx, slug, name, exceptID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", invalid("section_name", "section name %q is already used on this page", name)
		}
		return name, nil
	}

	base := string(kind)
	candidate := base
	for i := 2; ; i++ {
		taken, err := sectionNameTaken(tx, slug, candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

func sectionNameTaken(tx *gorm.DB, slug, name string, exceptID uint) (bool, error) {
	var count int64
	query := tx.Model(&db.PageContent{}).Where("page_slug = ? AND section_name = ?", slug, name)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NormalizeSlug lowercases and trims a slug. Invalid slugs return a
// ValidationError.
func NormalizeSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if !slugPattern.MatchString(slug) {
		return "", invalid("page_slug", "invalid page slug %q", raw)
	}
	return slug, nil
}

func normalizeLayout(raw string) (string, error) {
	layout := strings.ToLower(strings.TrimSpace(raw))
	if layout == "" {
		return db.LayoutFullWidth, nil
	}
	if !layoutTypes[layout] {
		return "", invalid("layout_type", "unsupported layout %q", raw)
	}
	return layout, nil
}

// wrapWriteError keeps typed errors intact and maps unique index violations
// to validation errors.
func wrapWriteError(op string, err error) error {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return invalid("", "%s: duplicate value", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
