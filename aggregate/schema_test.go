package aggregate

import (
	"errors"
	"testing"
)

func TestSchemaForVariants(t *testing.T) {
	tests := []struct {
		mode        Mode
		dim         Dimension
		tokenFields int
		keyFields   int
		baseline    bool
	}{
		{ModeCount, DimensionAll, 2, 1, false},
		{ModeCount, DimensionPerOrg, 3, 2, false},
		{ModeCount, DimensionPerApp, 3, 2, false},
		{ModeActive, DimensionAll, 3, 2, true},
		{ModeActive, DimensionPerOrg, 4, 3, true},
		{ModeActive, DimensionPerApp, 4, 3, true},
	}
	for _, tt := range tests {
		s, err := SchemaFor(tt.mode, tt.dim)
		if err != nil {
			t.Fatalf("SchemaFor(%s, %s): %v", tt.mode, tt.dim, err)
		}
		if s.TokenFields != tt.tokenFields || s.KeyFields != tt.keyFields || s.HasBaseline != tt.baseline {
			t.Fatalf("SchemaFor(%s, %s) = %+v, want fields=%d key=%d baseline=%v",
				tt.mode, tt.dim, s, tt.tokenFields, tt.keyFields, tt.baseline)
		}
	}
}

func TestSchemaForRejectsUnknown(t *testing.T) {
	if _, err := SchemaFor("bogus", DimensionAll); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := SchemaFor(ModeCount, "per-galaxy"); err == nil {
		t.Fatal("expected error for unknown dimension")
	}
}

func TestParseToken(t *testing.T) {
	s, err := SchemaFor(ModeActive, DimensionPerOrg)
	if err != nil {
		t.Fatal(err)
	}
	key, entity, err := s.ParseToken("2023-W1,orgA,5,101")
	if err != nil {
		t.Fatal(err)
	}
	if key != "2023-W1,orgA,5" {
		t.Fatalf("key = %q", key)
	}
	if entity != "101" {
		t.Fatalf("entity = %q", entity)
	}
}

func TestParseTokenMalformed(t *testing.T) {
	s, err := SchemaFor(ModeActive, DimensionPerOrg)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = s.ParseToken("2023-W1,orgA")
	var malformed *MalformedTokenError
	if !errors.As(err, &malformed) {
		t.Fatalf("want MalformedTokenError, got %v", err)
	}
	if malformed.Want != 4 || malformed.Got != 2 {
		t.Fatalf("unexpected field counts: %+v", malformed)
	}
}

func TestParsePeriod(t *testing.T) {
	for _, ok := range []string{"alltime", "weekly", "monthly", "yearly"} {
		if _, err := ParsePeriod(ok); err != nil {
			t.Fatalf("ParsePeriod(%q): %v", ok, err)
		}
	}
	if _, err := ParsePeriod("daily"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}
