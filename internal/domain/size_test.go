package domain

import "testing"

func TestValidateSizes(t *testing.T) {
	if err := ValidateSizes(DefaultSizes()); err != nil {
		t.Fatalf("expected default sizes to validate, got %v", err)
	}

	if err := ValidateSizes(nil); err == nil {
		t.Fatal("expected error for empty size list")
	}

	dup := []SizeSpec{
		{Name: "thumb", MaxWidth: 100, MaxHeight: 100},
		{Name: "thumb", MaxWidth: 200, MaxHeight: 200},
	}
	if err := ValidateSizes(dup); err == nil {
		t.Fatal("expected error for duplicate size names")
	}

	slash := []SizeSpec{{Name: "a/b", MaxWidth: 100, MaxHeight: 100}}
	if err := ValidateSizes(slash); err == nil {
		t.Fatal("expected error for slash in size name")
	}

	zero := []SizeSpec{{Name: "thumb", MaxWidth: 0, MaxHeight: 100}}
	if err := ValidateSizes(zero); err == nil {
		t.Fatal("expected error for non-positive max_width")
	}
}

func TestParseSizes(t *testing.T) {
	specs, err := ParseSizes(`[{"name":"icon","max_width":64,"max_height":64,"crop":true}]`)
	if err != nil {
		t.Fatalf("parse sizes: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if specs[0].Name != "icon" || !specs[0].Crop {
		t.Fatalf("unexpected spec %+v", specs[0])
	}

	if _, err := ParseSizes(`not json`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if _, err := ParseSizes(`[]`); err == nil {
		t.Fatal("expected error for empty list")
	}
}
