package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a scenario list from a YAML or JSON file.
func Load(path string) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	scenarios, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := Validate(scenarios); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, sc := range scenarios {
		sc.Request.Method = strings.ToUpper(sc.Request.Method)
	}

	return scenarios, nil
}

// Parse decodes a scenario list from raw bytes. ext selects the format
// (".json" for JSON, anything else is treated as YAML).
func Parse(data []byte, ext string) ([]*Scenario, error) {
	var scenarios []*Scenario

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &scenarios); err != nil {
			return nil, fmt.Errorf("parsing JSON scenarios: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &scenarios); err != nil {
			return nil, fmt.Errorf("parsing YAML scenarios: %w", err)
		}
	}

	return scenarios, nil
}

// IsScenarioFile reports whether a path looks like a scenario file.
func IsScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
