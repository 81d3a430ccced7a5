// Package rulefile loads mapping rule definitions from a YAML document, for
// environments that bootstrap rules from configuration instead of a
// database.
package rulefile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	normalization "connector-hub/internal/normalization/domain"
)

// File is the top-level shape of a rule file.
type File struct {
	Rules []normalization.MappingRule `yaml:"rules"`
}

// Load reads and validates all rules in a YAML file.
func Load(path string) ([]normalization.MappingRule, error) {
	if path == "" {
		return nil, errors.New("rulefile: empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates rule definitions from YAML bytes.
func Parse(data []byte) ([]normalization.MappingRule, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("rulefile: %w", err)
	}
	for i, rule := range file.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rulefile: rule %d: %w", i, err)
		}
	}
	return file.Rules, nil
}
