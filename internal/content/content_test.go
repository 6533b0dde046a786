package content

import (
	"errors"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw     string
		want    Type
		wantErr bool
	}{
		{raw: "hero", want: TypeHero},
		{raw: "  Team_Members ", want: TypeTeamMembers},
		{raw: "custom_block", want: Type("custom_block")},
		{raw: "", wantErr: true},
		{raw: "has space", wantErr: true},
		{raw: "9lives", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidType) {
				t.Fatalf("ParseType(%q): expected ErrInvalidType, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseType(%q) returned error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]byte(" {\n \"items\" : [ 1, 2 ] } "))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if string(got) != `{"items":[1,2]}` {
		t.Fatalf("unexpected normalized content %s", got)
	}

	empty, err := Normalize(nil)
	if err != nil || string(empty) != "{}" {
		t.Fatalf("expected empty content to normalize to {}, got %s (%v)", empty, err)
	}

	if _, err := Normalize([]byte(`[1,2]`)); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject for array, got %v", err)
	}
	if _, err := Normalize([]byte(`{"broken":`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDecodeKnownType(t *testing.T) {
	payload, err := Decode(TypeOfficeLocations, []byte(`{"offices":[{"city":"Berlin","address":"Main 1"}]}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	offices, ok := payload.(OfficeLocations)
	if !ok {
		t.Fatalf("expected OfficeLocations, got %T", payload)
	}
	if len(offices.Offices) != 1 || offices.Offices[0].City != "Berlin" {
		t.Fatalf("unexpected offices: %#v", offices.Offices)
	}
}

func TestDecodeShapeMismatch(t *testing.T) {
	if _, err := Decode(TypeFeatureList, []byte(`{"items":"not-a-list"}`)); err == nil {
		t.Fatal("expected error when items is not an array")
	}
}

func TestDecodeUnknownTypeIsOpaque(t *testing.T) {
	payload, err := Decode(Type("press_mentions"), []byte(`{"links":["a","b"]}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	opaque, ok := payload.(Opaque)
	if !ok {
		t.Fatalf("expected Opaque, got %T", payload)
	}
	if opaque.ContentType() != "press_mentions" {
		t.Fatalf("unexpected kind %q", opaque.ContentType())
	}

	encoded, err := Encode(opaque)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if string(encoded) != `{"links":["a","b"]}` {
		t.Fatalf("unexpected encoding %s", encoded)
	}
}

func TestKnownTypes(t *testing.T) {
	if len(KnownTypes()) != 12 {
		t.Fatalf("expected 12 known types, got %d", len(KnownTypes()))
	}
	if !TypeStatistics.Known() || Type("mystery").Known() {
		t.Fatal("Known reported wrong membership")
	}
}
