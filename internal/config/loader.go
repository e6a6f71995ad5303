package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProfileMix selects which built-in profiles run and overrides their
// weights and think times.
//
// Example YAML:
//
//	profiles:
//	  - name: standard
//	    weight: 2
//	    wait: {min: 500ms, max: 2s}
//	  - name: read-only
//	    weight: 1
type ProfileMix struct {
	Profiles []ProfileEntry `json:"profiles" yaml:"profiles"`
}

// ProfileEntry enables one profile. Omitted fields keep the profile's
// built-in values.
type ProfileEntry struct {
	Name   string     `json:"name" yaml:"name"`
	Weight *int       `json:"weight,omitempty" yaml:"weight,omitempty"`
	Wait   *WaitRange `json:"wait,omitempty" yaml:"wait,omitempty"`
}

// WaitRange bounds a profile's think time.
type WaitRange struct {
	Min Duration `json:"min" yaml:"min"`
	Max Duration `json:"max" yaml:"max"`
}

// LoadProfileMix reads and validates a profile-mix file.
func LoadProfileMix(path string) (*ProfileMix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	mix, err := ParseProfileMix(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile file %s: %w", path, err)
	}
	return mix, nil
}

// ParseProfileMix parses and validates profile-mix YAML. Unknown fields are
// rejected.
func ParseProfileMix(data []byte) (*ProfileMix, error) {
	var mix ProfileMix

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&mix); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := mix.Validate(); err != nil {
		return nil, err
	}
	return &mix, nil
}

// Validate checks the structure of the mix. Whether the names refer to
// existing profiles is decided by the caller that owns them.
func (m *ProfileMix) Validate() error {
	errs := &ValidationErrors{}

	if len(m.Profiles) == 0 {
		errs.Add("profiles", "at least one profile is required")
	}

	seen := make(map[string]bool)
	for i, p := range m.Profiles {
		field := fmt.Sprintf("profiles[%d]", i)
		if p.Name == "" {
			errs.Add(field+".name", "name is required")
		} else if seen[p.Name] {
			errs.Add(field+".name", fmt.Sprintf("duplicate profile %q", p.Name))
		}
		seen[p.Name] = true

		if p.Weight != nil && *p.Weight <= 0 {
			errs.Add(field+".weight", fmt.Sprintf("must be positive, got %d", *p.Weight))
		}
		if p.Wait != nil && p.Wait.Min > p.Wait.Max {
			errs.Add(field+".wait", fmt.Sprintf("min %s exceeds max %s", p.Wait.Min, p.Wait.Max))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
