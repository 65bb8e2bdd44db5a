package reconcile

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Override is one manually maintained link decision, keyed by wiki page
// title in the override file. It takes absolute precedence over the
// ruleset.
type Override struct {
	DipPersonID int64  `yaml:"dip_person_id" json:"dip_person_id"`
	Status      string `yaml:"status,omitempty" json:"status,omitempty"`
	Reason      string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

type overridesFile struct {
	Overrides map[string]Override `yaml:"overrides"`
}

// LoadOverrides reads the link-override file. A missing file is an empty
// map; an unparsable file is a configuration error and fails fast.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Override{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("overrides: read %s: %w", path, err)
	}
	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("overrides: parse %s: %w", path, err)
	}
	if file.Overrides == nil {
		return map[string]Override{}, nil
	}
	return file.Overrides, nil
}
