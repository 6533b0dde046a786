// Package content defines the typed payloads stored in PageContent.Content.
//
// Each known content type has one payload struct. Unknown types decode to
// Opaque so callers can still fall back to raw JSON editing.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Type is the content_type tag of a page content row.
type Type string

const (
	TypeHero               Type = "hero"
	TypeTextSection        Type = "text_section"
	TypeFeatureList        Type = "feature_list"
	TypeContactInfo        Type = "contact_info"
	TypeOfficeLocations    Type = "office_locations"
	TypeFormConfig         Type = "form_config"
	TypeInvestmentAreas    Type = "investment_areas"
	TypePortfolioCompanies Type = "portfolio_companies"
	TypeTeamMembers        Type = "team_members"
	TypeStatistics         Type = "statistics"
	TypeTestimonials       Type = "testimonials"
	TypeCallToAction       Type = "call_to_action"
)

var (
	// ErrNotObject is returned when content is valid JSON but not an object.
	ErrNotObject = errors.New("content must be a JSON object")
	// ErrInvalidType is returned for content_type tags that are not identifiers.
	ErrInvalidType = errors.New("invalid content type")
)

var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

// KnownTypes lists every content type with a typed payload, in editor menu order.
func KnownTypes() []Type {
	return []Type{
		TypeHero,
		TypeTextSection,
		TypeFeatureList,
		TypeContactInfo,
		TypeOfficeLocations,
		TypeFormConfig,
		TypeInvestmentAreas,
		TypePortfolioCompanies,
		TypeTeamMembers,
		TypeStatistics,
		TypeTestimonials,
		TypeCallToAction,
	}
}

// ParseType normalizes a raw tag. Unknown but well-formed tags are accepted.
func ParseType(raw string) (Type, error) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if !typePattern.MatchString(tag) {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
	}
	return Type(tag), nil
}

// Known reports whether t has a typed payload.
func (t Type) Known() bool {
	for _, known := range KnownTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Payload is implemented by every typed content shape.
type Payload interface {
	ContentType() Type
}

// Hero is the top-of-page banner.
type Hero struct {
	CTAText          string `json:"ctaText,omitempty"`
	CTALink          string `json:"ctaLink,omitempty"`
	SecondaryCTAText string `json:"secondaryCtaText,omitempty"`
	SecondaryCTALink string `json:"secondaryCtaLink,omitempty"`
}

// TextSection carries a markdown body.
type TextSection struct {
	Body string `json:"body,omitempty"`
}

type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

type FeatureList struct {
	Items []Feature `json:"items"`
}

type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Hours   string `json:"hours,omitempty"`
}

type Office struct {
	City    string `json:"city"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	MapURL  string `json:"mapUrl,omitempty"`
}

type OfficeLocations struct {
	Offices []Office `json:"offices"`
}

type FormOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormConfig points a page block at a form definition.
type FormConfig struct {
	FormSlug string       `json:"formSlug,omitempty"`
	Options  []FormOption `json:"options"`
}

type InvestmentArea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

type InvestmentAreas struct {
	Areas []InvestmentArea `json:"areas"`
}

type PortfolioCompany struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo,omitempty"`
	Website     string `json:"website,omitempty"`
	Sector      string `json:"sector,omitempty"`
}

type PortfolioCompanies struct {
	Companies []PortfolioCompany `json:"companies"`
}

type TeamMember struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Bio      string `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

type TeamMembers struct {
	Members []TeamMember `json:"members"`
}

type Statistic struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Statistics struct {
	Stats []Statistic `json:"stats"`
}

type Testimonial struct {
	Quote   string `json:"quote"`
	Author  string `json:"author"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
}

type Testimonials struct {
	Items []Testimonial `json:"items"`
}

type CallToAction struct {
	ButtonText string `json:"buttonText"`
	ButtonLink string `json:"buttonLink"`
}

// Opaque keeps content of an unrecognized type as a plain object.
type Opaque struct {
	Kind   Type
	Fields map[string]any
}

func (Hero) ContentType() Type               { return TypeHero }
func (TextSection) ContentType() Type        { return TypeTextSection }
func (FeatureList) ContentType() Type        { return TypeFeatureList }
func (ContactInfo) ContentType() Type        { return TypeContactInfo }
func (OfficeLocations) ContentType() Type    { return TypeOfficeLocations }
func (FormConfig) ContentType() Type         { return TypeFormConfig }
func (InvestmentAreas) ContentType() Type    { return TypeInvestmentAreas }
func (PortfolioCompanies) ContentType() Type { return TypePortfolioCompanies }
func (TeamMembers) ContentType() Type        { return TypeTeamMembers }
func (Statistics) ContentType() Type         { return TypeStatistics }
func (Testimonials) ContentType() Type       { return TypeTestimonials }
func (CallToAction) ContentType() Type       { return TypeCallToAction }
func (o Opaque) ContentType() Type           { return o.Kind }

// MarshalJSON writes the object fields only.
func (o Opaque) MarshalJSON() ([]byte, error) {
	if o.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.Fields)
}

// Normalize checks that raw is a JSON object and returns it compacted.
// Empty input becomes "{}".
func Normalize(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte("{}"), nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("content is not valid JSON")
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses raw into the payload registered for t.
func Decode(t Type, raw []byte) (Payload, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	var payload Payload
	switch t {
	case TypeHero:
		payload, err = decodeInto[Hero](normalized)
	case TypeTextSection:
		payload, err = decodeInto[TextSection](normalized)
	case TypeFeatureList:
		payload, err = decodeInto[FeatureList](normalized)
	case TypeContactInfo:
		payload, err = decodeInto[ContactInfo](normalized)
	case TypeOfficeLocations:
		payload, err = decodeInto[OfficeLocations](normalized)
	case TypeFormConfig:
		payload, err = decodeInto[FormConfig](normalized)
	case TypeInvestmentAreas:
		payload, err = decodeInto[InvestmentAreas](normalized)
	case TypePortfolioCompanies:
		payload, err = decodeInto[PortfolioCompanies](normalized)
	case TypeTeamMembers:
		payload, err = decodeInto[TeamMembers](normalized)
	case TypeStatistics:
		payload, err = decodeInto[Statistics](normalized)
	case TypeTestimonials:
		payload, err = decodeInto[Testimonials](normalized)
	case TypeCallToAction:
		payload, err = decodeInto[CallToAction](normalized)
	default:
		fields := map[string]any{}
		if err := json.Unmarshal(normalized, &fields); err != nil {
			return nil, err
		}
		return Opaque{Kind: t, Fields: fields}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}
	return payload, nil
}

// Encode marshals a payload back to a JSON object.
func Encode(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func decodeInto[T Payload](raw []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
