// File: internal/docs/seed.go
package docs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// stepSeed is one entry of the YAML step file that seeds the process graph.
type stepSeed struct {
	ID          int    `yaml:"id"`
	Description string `yaml:"description"`
	// Next is the successor step ID; nil for the final step.
	Next *int `yaml:"next"`
}

// seedDocument accepts both accepted layouts: a bare step list, or a mapping
// with a top-level "steps" key.
type seedDocument struct {
	Steps []stepSeed `yaml:"steps"`
}

// loadStepSeeds parses the YAML step file describing the process graph.
func loadStepSeeds(path string) ([]stepSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentationLoadError{Path: path, Err: err}
	}

	var asList []stepSeed
	if err := yaml.Unmarshal(raw, &asList); err == nil && len(asList) > 0 {
		return asList, nil
	}

	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &DocumentationLoadError{Path: path, Err: fmt.Errorf("invalid step YAML: %w", err)}
	}
	if len(doc.Steps) == 0 {
		return nil, &DocumentationLoadError{Path: path, Err: fmt.Errorf("step file defines no steps")}
	}
	return doc.Steps, nil
}
