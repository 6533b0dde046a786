package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/forms"
)

func contactFormInput() FormInput {
	return FormInput{
		Name:           "Contact",
		Slug:           "contact",
		SuccessMessage: "Thanks, we will be in touch.",
		Fields: []forms.Field{
			{Label: "Message", Name: "message", Type: forms.TypeTextarea, FieldOrder: 2, ValidationRules: forms.Rules{MaxLength: intPtr(20)}},
			{Label: "Email", Name: "email", Type: forms.TypeEmail, Required: true, FieldOrder: 1},
		},
	}
}

func TestFormServiceCreateAndGetBySlug(t *testing.T) {
	gdb := setupServiceTestDB(t)
	inv := &recordingInvalidator{}
	svc := NewFormService(gdb, inv, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, contactFormInput())
	if err != nil {
		t.Fatalf("create form failed: %v", err)
	}
	if !created.IsActive || len(created.Fields) != 2 {
		t.Fatalf("unexpected created form: %#v", created)
	}
	if created.Fields[0].Name != "email" {
		t.Fatalf("expected fields ordered by field_order, got %s first", created.Fields[0].Name)
	}

	public, err := svc.GetBySlug(ctx, "contact")
	if err != nil {
		t.Fatalf("get by slug failed: %v", err)
	}
	if len(public.Fields) != 2 || public.Fields[1].ValidationRules.MaxLength == nil || *public.Fields[1].ValidationRules.MaxLength != 20 {
		t.Fatalf("unexpected public schema: %#v", public.Fields)
	}

	if _, err := svc.Create(ctx, contactFormInput()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected duplicate slug to be rejected, got %v", err)
	}
	if calls := inv.formCalls(); len(calls) != 1 || calls[0] != "contact" {
		t.Fatalf("unexpected form invalidations %v", calls)
	}
}

func TestFormServiceRejectsBadDefinitions(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewFormService(gdb, nil, nil)
	ctx := context.Background()

	cases := []FormInput{
		{Slug: "x"},
		{Name: "X", Slug: "bad slug"},
		{Name: "X", Slug: "x", Fields: []forms.Field{{Label: "A", Name: "1bad", Type: forms.TypeText}}},
		{Name: "X", Slug: "x", Fields: []forms.Field{{Label: "A", Name: "a", Type: "color"}}},
		{Name: "X", Slug: "x", Fields: []forms.Field{{Label: "A", Name: "a", Type: forms.TypeSelect}}},
		{Name: "X", Slug: "x", Fields: []forms.Field{{Label: "A", Name: "a", Type: forms.TypeText, ValidationRules: forms.Rules{Pattern: "("}}}},
		{Name: "X", Slug: "x", Fields: []forms.Field{{Label: "A", Name: "a", Type: forms.TypeText, MinLength: intPtr(5), MaxLength: intPtr(2)}}},
		{Name: "X", Slug: "x", Fields: []forms.Field{{Label: "A", Name: "a", Type: forms.TypeText}, {Label: "B", Name: "a", Type: forms.TypeText}}},
	}
	for i, input := range cases {
		if _, err := svc.Create(ctx, input); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestFormServiceSubmit(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewFormService(gdb, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, contactFormInput())
	if err != nil {
		t.Fatalf("create form failed: %v", err)
	}

	_, err = svc.Submit(ctx, "contact", map[string]any{"email": "x"}, SubmissionMeta{})
	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if fieldErrs["email"] != "Please enter a valid email address" {
		t.Fatalf("unexpected email message %q", fieldErrs["email"])
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("field errors must match ErrValidation")
	}

	result, err := svc.Submit(ctx, "contact", map[string]any{"email": "a@b.co", "message": "hi", "extra": "dropped"}, SubmissionMeta{IP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Message != "Thanks, we will be in touch." || result.SubmissionID == 0 {
		t.Fatalf("unexpected result %#v", result)
	}

	submissions, err := svc.ListSubmissions(ctx, created.ID, 0)
	if err != nil {
		t.Fatalf("list submissions failed: %v", err)
	}
	if len(submissions) != 1 {
		t.Fatalf("expected one stored submission, got %d", len(submissions))
	}
	if _, ok := submissions[0].Data["extra"]; ok {
		t.Fatal("unknown keys must not be stored")
	}
	if submissions[0].Data["email"] != "a@b.co" || submissions[0].IP != "10.0.0.1" {
		t.Fatalf("unexpected stored submission %#v", submissions[0])
	}

	if _, err := svc.Submit(ctx, "missing", map[string]any{}, SubmissionMeta{}); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("expected not found for unknown form, got %v", err)
	}
}

func TestFormServiceDefaultSuccessMessageAndInactive(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewFormService(gdb, nil, nil)
	ctx := context.Background()

	input := FormInput{Name: "Newsletter", Slug: "newsletter", Fields: []forms.Field{{Label: "Email", Name: "email", Type: forms.TypeEmail, Required: true}}}
	created, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create form failed: %v", err)
	}

	result, err := svc.Submit(ctx, "newsletter", map[string]any{"email": "a@b.co"}, SubmissionMeta{})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Message != DefaultSuccessMessage {
		t.Fatalf("expected default message, got %q", result.Message)
	}

	input.IsActive = boolPtr(false)
	if _, err := svc.Update(ctx, created.ID, input); err != nil {
		t.Fatalf("deactivate form failed: %v", err)
	}
	if _, err := svc.GetBySlug(ctx, "newsletter"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected inactive form to be hidden, got %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); err != nil {
		t.Fatalf("admin lookup must still see inactive forms: %v", err)
	}
}

func TestFormServiceUpdateReplacesFields(t *testing.T) {
	gdb := setupServiceTestDB(t)
	inv := &recordingInvalidator{}
	svc := NewFormService(gdb, inv, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, contactFormInput())
	if err != nil {
		t.Fatalf("create form failed: %v", err)
	}

	input := contactFormInput()
	input.Slug = "get-in-touch"
	input.Fields = []forms.Field{{Label: "Topic", Name: "topic", Type: forms.TypeSelect, Options: []forms.Option{{Value: "sales", Label: "Sales"}}}}
	updated, err := svc.Update(ctx, created.ID, input)
	if err != nil {
		t.Fatalf("update form failed: %v", err)
	}
	if len(updated.Fields) != 1 || updated.Fields[0].Name != "topic" || len(updated.Fields[0].Options) != 1 {
		t.Fatalf("expected fields to be replaced, got %#v", updated.Fields)
	}

	var fieldCount int64
	gdb.Model(&db.FormField{}).Where("form_id = ?", created.ID).Count(&fieldCount)
	if fieldCount != 1 {
		t.Fatalf("expected old fields to be removed, got %d rows", fieldCount)
	}

	calls := inv.formCalls()
	if len(calls) != 3 || calls[1] != "get-in-touch" || calls[2] != "contact" {
		t.Fatalf("expected both slugs to be invalidated, got %v", calls)
	}

	if _, err := svc.Update(ctx, 9999, input); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFormServiceDeleteCascades(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewFormService(gdb, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, contactFormInput())
	if err != nil {
		t.Fatalf("create form failed: %v", err)
	}
	if _, err := svc.Submit(ctx, "contact", map[string]any{"email": "a@b.co"}, SubmissionMeta{}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete form failed: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}

	var fields, submissions int64
	gdb.Model(&db.FormField{}).Count(&fields)
	gdb.Model(&db.FormSubmission{}).Count(&submissions)
	if fields != 0 || submissions != 0 {
		t.Fatalf("expected cascade delete, got %d fields and %d submissions", fields, submissions)
	}
}

func TestFormServiceKeepsOptionsOnlyOnChoiceFields(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewFormService(gdb, nil, nil)
	ctx := context.Background()

	options := []forms.Option{{Value: "a", Label: "A"}, {Value: "b", Label: "B"}}
	if _, err := svc.Create(ctx, FormInput{
		Name: "Survey",
		Slug: "survey",
		Fields: []forms.Field{
			{Label: "Name", Name: "name", Type: forms.TypeText, FieldOrder: 1, Options: options},
			{Label: "Pick", Name: "pick", Type: forms.TypeSelect, FieldOrder: 2, Options: options},
			{Label: "Agree", Name: "agree", Type: forms.TypeCheckbox, FieldOrder: 3},
		},
	}); err != nil {
		t.Fatalf("create form failed: %v", err)
	}

	public, err := svc.GetBySlug(ctx, "survey")
	if err != nil {
		t.Fatalf("get by slug failed: %v", err)
	}
	if len(public.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(public.Fields))
	}
	if len(public.Fields[0].Options) != 0 {
		t.Fatalf("expected text field options to be dropped, got %#v", public.Fields[0].Options)
	}
	if len(public.Fields[1].Options) != 2 {
		t.Fatalf("expected select options to be kept, got %#v", public.Fields[1].Options)
	}
	if len(public.Fields[2].Options) != 0 {
		t.Fatalf("expected checkbox without options, got %#v", public.Fields[2].Options)
	}
}
