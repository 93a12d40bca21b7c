package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SizeSpec describes one rendition target: a bounding box the output must
// fit inside and whether the source is first cropped to a centered square.
// Name doubles as the destination key prefix for that size.
type SizeSpec struct {
	Name      string `json:"name"`
	MaxWidth  int    `json:"max_width"`
	MaxHeight int    `json:"max_height"`
	Crop      bool   `json:"crop,omitempty"`
}

func (s SizeSpec) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return errors.New("size name is required")
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("size name %q must not contain '/'", s.Name)
	}
	if s.MaxWidth <= 0 {
		return fmt.Errorf("size %s: max_width must be positive", name)
	}
	if s.MaxHeight <= 0 {
		return fmt.Errorf("size %s: max_height must be positive", name)
	}
	return nil
}

// ValidateSizes checks every spec and rejects duplicate names, since the
// name is also the destination prefix and a duplicate would overwrite.
func ValidateSizes(specs []SizeSpec) error {
	if len(specs) == 0 {
		return errors.New("at least one size spec is required")
	}

	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("sizes[%d]: %w", i, err)
		}
		if _, dup := seen[spec.Name]; dup {
			return fmt.Errorf("sizes[%d]: duplicate size name %q", i, spec.Name)
		}
		seen[spec.Name] = struct{}{}
	}
	return nil
}

func ParseSizes(raw string) ([]SizeSpec, error) {
	var specs []SizeSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, fmt.Errorf("parse size specs: %w", err)
	}
	if err := ValidateSizes(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func DefaultSizes() []SizeSpec {
	return []SizeSpec{
		{Name: "thumb", MaxWidth: 150, MaxHeight: 150, Crop: true},
		{Name: "small", MaxWidth: 320, MaxHeight: 320},
		{Name: "medium", MaxWidth: 640, MaxHeight: 640},
		{Name: "large", MaxWidth: 1024, MaxHeight: 1024},
	}
}
