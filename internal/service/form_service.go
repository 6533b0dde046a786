package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/forms"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultSuccessMessage is returned when a form has no success message.
const DefaultSuccessMessage = "Thank you for your submission."

const defaultSubmissionLimit = 100

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,99}$`)

// FormInput is the full definition of a form as written by admins.
type FormInput struct {
	Name           string
	Slug           string
	Description    string
	SuccessMessage string
	IsActive       *bool
	Fields         []forms.Field
}

// PublicForm is the schema served to site visitors.
type PublicForm struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Fields      []forms.Field `json:"fields"`
}

// SubmissionMeta carries request details stored with a submission.
type SubmissionMeta struct {
	IP        string
	UserAgent string
}

// SubmitResult is the outcome of an accepted submission.
type SubmitResult struct {
	SubmissionID uint   `json:"submission_id"`
	Message      string `json:"message"`
}

// FormService manages form definitions and public submissions.
type FormService struct {
	db          *gorm.DB
	invalidator CacheInvalidator
	logger      *zap.Logger
}

// NewFormService returns a new FormService instance.
func NewFormService(gdb *gorm.DB, invalidator CacheInvalidator, logger *zap.Logger) *FormService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{db: gdb, invalidator: invalidator, logger: logger}
}

// List returns every form with its fields.
func (s *FormService) List(ctx context.Context) ([]db.FormDefinition, error) {
	var defs []db.FormDefinition
	if err := s.db.WithContext(ctx).Preload("Fields", orderFields).Order("name asc").Order("id asc").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return defs, nil
}

// GetByID returns one form including inactive ones.
func (s *FormService) GetByID(ctx context.Context, id uint) (*db.FormDefinition, error) {
	var def db.FormDefinition
	if err := s.db.WithContext(ctx).Preload("Fields", orderFields).First(&def, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("get form %d: %w", id, err)
	}
	return &def, nil
}

// GetBySlug returns the public schema of an active form.
func (s *FormService) GetBySlug(ctx context.Context, slug string) (*PublicForm, error) {
	def, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &PublicForm{
		ID:          def.ID,
		Name:        def.Name,
		Slug:        def.Slug,
		Description: def.Description,
		Fields:      fieldSchemas(def.Fields),
	}, nil
}

// Create stores a new form definition.
func (s *FormService) Create(ctx context.Context, input FormInput) (*db.FormDefinition, error) {
	def, err := buildDefinition(input)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureFormSlugFree(tx, def.Slug, 0); err != nil {
			return err
		}
		return tx.Create(def).Error
	})
	if err != nil {
		return nil, wrapWriteError("create form", err)
	}

	s.logger.Info("form created", zap.Uint("id", def.ID), zap.String("slug", def.Slug), zap.Int("fields", len(def.Fields)))
	s.invalidator.InvalidateForm(ctx, def.Slug)
	return s.GetByID(ctx, def.ID)
}

// Update replaces a form definition and all of its fields.
func (s *FormService) Update(ctx context.Context, id uint, input FormInput) (*db.FormDefinition, error) {
	next, err := buildDefinition(input)
	if err != nil {
		return nil, err
	}

	var previousSlug string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current db.FormDefinition
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFormNotFound
			}
			return err
		}
		previousSlug = current.Slug

		if err := ensureFormSlugFree(tx, next.Slug, id); err != nil {
			return err
		}

		current.Name = next.Name
		current.Slug = next.Slug
		current.Description = next.Description
		current.SuccessMessage = next.SuccessMessage
		current.IsActive = next.IsActive
		if err := tx.Omit("Fields").Save(&current).Error; err != nil {
			return err
		}

		if err := tx.Where("form_id = ?", id).Delete(&db.FormField{}).Error; err != nil {
			return err
		}
		for i := range next.Fields {
			next.Fields[i].FormID = id
		}
		if len(next.Fields) == 0 {
			return nil
		}
		return tx.Create(&next.Fields).Error
	})
	if err != nil {
		return nil, wrapWriteError("update form", err)
	}

	s.logger.Info("form updated", zap.Uint("id", id), zap.String("slug", next.Slug))
	s.invalidator.InvalidateForm(ctx, next.Slug)
	if previousSlug != next.Slug {
		s.invalidator.InvalidateForm(ctx, previousSlug)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a form with its fields and submissions.
func (s *FormService) Delete(ctx context.Context, id uint) error {
	var slug string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var def db.FormDefinition
		if err := tx.First(&def, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFormNotFound
			}
			return err
		}
		slug = def.Slug

		if err := tx.Where("form_id = ?", id).Delete(&db.FormSubmission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", id).Delete(&db.FormField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&def).Error
	})
	if err != nil {
		return wrapWriteError("delete form", err)
	}

	s.logger.Info("form deleted", zap.Uint("id", id), zap.String("slug", slug))
	s.invalidator.InvalidateForm(ctx, slug)
	return nil
}

// Submit validates values against the active form and stores them.
// Validation failures are returned as FieldErrors.
func (s *FormService) Submit(ctx context.Context, slug string, raw map[string]any, meta SubmissionMeta) (*SubmitResult, error) {
	def, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	schema := fieldSchemas(def.Fields)
	values := forms.NormalizeValues(raw)
	if errs := forms.Validate(schema, values); len(errs) > 0 {
		return nil, FieldErrors(errs)
	}

	data := datatypes.JSONMap{}
	for _, field := range schema {
		data[field.Name] = values[field.Name]
	}

	submission := db.FormSubmission{
		FormID:    def.ID,
		Data:      data,
		IP:        truncate(meta.IP, 64),
		UserAgent: truncate(meta.UserAgent, 255),
	}
	if err := s.db.WithContext(ctx).Create(&submission).Error; err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	s.logger.Info("form submitted", zap.String("slug", def.Slug), zap.Uint("submission_id", submission.ID))

	message := strings.TrimSpace(def.SuccessMessage)
	if message == "" {
		message = DefaultSuccessMessage
	}
	return &SubmitResult{SubmissionID: submission.ID, Message: message}, nil
}

// ListSubmissions returns the newest submissions of a form first.
func (s *FormService) ListSubmissions(ctx context.Context, formID uint, limit int) ([]db.FormSubmission, error) {
	if _, err := s.GetByID(ctx, formID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultSubmissionLimit {
		limit = defaultSubmissionLimit
	}

	var submissions []db.FormSubmission
	if err := s.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

func (s *FormService) activeBySlug(ctx context.Context, slug string) (*db.FormDefinition, error) {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if normalized == "" {
		return nil, ErrFormNotFound
	}

	var def db.FormDefinition
	err := s.db.WithContext(ctx).
		Preload("Fields", orderFields).
		Where("slug = ? AND is_active = ?", normalized, true).
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("get form %s: %w", normalized, err)
	}
	return &def, nil
}

func orderFields(tx *gorm.DB) *gorm.DB {
	return tx.Order("field_order asc").Order("id asc")
}

func buildDefinition(input FormInput) (*db.FormDefinition, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name", "form name is required")
	}
	slug, err := NormalizeSlug(input.Slug)
	if err != nil {
		return nil, invalid("slug", "invalid form slug %q", input.Slug)
	}

	fields, err := buildFields(input.Fields)
	if err != nil {
		return nil, err
	}

	def := &db.FormDefinition{
		Name:           name,
		Slug:           slug,
		Description:    input.Description,
		SuccessMessage: strings.TrimSpace(input.SuccessMessage),
		IsActive:       true,
		Fields:         fields,
	}
	if input.IsActive != nil {
		def.IsActive = *input.IsActive
	}
	return def, nil
}

func buildFields(schemas []forms.Field) ([]db.FormField, error) {
	seen := make(map[string]bool, len(schemas))
	fields := make([]db.FormField, 0, len(schemas))
	for i, schema := range schemas {
		key := fmt.Sprintf("fields[%d]", i)

		name := strings.TrimSpace(schema.Name)
		if !fieldNamePattern.MatchString(name) {
			return nil, invalid(key+".name", "invalid field name %q", schema.Name)
		}
		if seen[name] {
			return nil, invalid(key+".name", "field name %q is used twice", name)
		}
		seen[name] = true

		label := strings.TrimSpace(schema.Label)
		if label == "" {
			return nil, invalid(key+".label", "field label is required")
		}

		fieldType := strings.ToLower(strings.TrimSpace(schema.Type))
		if !forms.KnownType(fieldType) {
			return nil, invalid(key+".type", "unsupported field type %q", schema.Type)
		}
		if (fieldType == forms.TypeSelect || fieldType == forms.TypeRadio) && len(schema.Options) == 0 {
			return nil, invalid(key+".options", "%s fields need at least one option", fieldType)
		}
		if !forms.HasOptions(fieldType) {
			// options only apply to choice fields
			schema.Options = nil
		}

		rules := schema.ValidationRules
		if rules.Pattern != "" {
			if _, err := forms.CompilePattern(rules.Pattern); err != nil {
				return nil, invalid(key+".validation_rules", "invalid pattern: %v", err)
			}
		}
		if err := checkLengthBounds(key, rules.MinLength, rules.MaxLength); err != nil {
			return nil, err
		}
		if err := checkLengthBounds(key, schema.MinLength, schema.MaxLength); err != nil {
			return nil, err
		}

		options := make([]db.FieldOption, 0, len(schema.Options))
		for _, opt := range schema.Options {
			options = append(options, db.FieldOption{Value: opt.Value, Label: opt.Label})
		}

		fields = append(fields, db.FormField{
			Label:      label,
			Name:       name,
			Type:       fieldType,
			Required:   schema.Required,
			FieldOrder: schema.FieldOrder,
			Options:    datatypes.JSONSlice[db.FieldOption](options),
			ValidationRules: datatypes.NewJSONType(db.ValidationRules{
				MinLength: rules.MinLength,
				MaxLength: rules.MaxLength,
				Pattern:   rules.Pattern,
				Accept:    rules.Accept,
			}),
			DefaultValue: schema.DefaultValue,
			HelpText:     schema.HelpText,
			MaxLength:    schema.MaxLength,
			MinLength:    schema.MinLength,
		})
	}
	return fields, nil
}

func checkLengthBounds(key string, minLength, maxLength *int) error {
	if minLength != nil && *minLength < 0 {
		return invalid(key+".min_length", "min length must not be negative")
	}
	if maxLength != nil && *maxLength < 0 {
		return invalid(key+".max_length", "max length must not be negative")
	}
	if minLength != nil && maxLength != nil && *minLength > *maxLength {
		return invalid(key+".min_length", "min length exceeds max length")
	}
	return nil
}

func ensureFormSlugFree(tx *gorm.DB, slug string, exceptID uint) error {
	var count int64
	query := tx.Model(&db.FormDefinition{}).Where("slug = ?", slug)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return invalid("slug", "form slug %q is already used", slug)
	}
	return nil
}

// fieldSchemas converts stored fields to the wire schema in render order.
func fieldSchemas(fields []db.FormField) []forms.Field {
	out := make([]forms.Field, 0, len(fields))
	for _, field := range fields {
		out = append(out, FieldSchema(field))
	}
	return forms.Sorted(out)
}

// FieldSchema converts one stored field to its wire shape.
func FieldSchema(field db.FormField) forms.Field {
	rules := field.ValidationRules.Data()
	options := make([]forms.Option, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, forms.Option{Value: opt.Value, Label: opt.Label})
	}
	return forms.Field{
		ID:         field.ID,
		Label:      field.Label,
		Name:       field.Name,
		Type:       field.Type,
		Required:   field.Required,
		FieldOrder: field.FieldOrder,
		Options:    options,
		ValidationRules: forms.Rules{
			MinLength: rules.MinLength,
			MaxLength: rules.MaxLength,
			Pattern:   rules.Pattern,
			Accept:    rules.Accept,
		},
		DefaultValue: field.DefaultValue,
		HelpText:     field.HelpText,
		MaxLength:    field.MaxLength,
		MinLength:    field.MinLength,
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
