package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a compile conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the model directory. Relative paths are resolved against
	// the scenario file's directory.
	Model string `yaml:"model"`

	// Claims are the request claims of every step. Nil compiles steps
	// unauthenticated.
	Claims map[string]any `yaml:"claims,omitempty"`

	// Steps are compiled in order.
	Steps []Step `yaml:"steps"`
}

// Step compiles one request.
type Step struct {
	Name      string         `yaml:"name"`
	Request   string         `yaml:"request"`
	Operation string         `yaml:"operation,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty"`

	// Anonymous compiles this step without the scenario claims.
	Anonymous bool `yaml:"anonymous,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect lists what a step's compilation must satisfy. Empty fields are
// not checked.
type Expect struct {
	// Error is the expected compile error code. When set the step must fail.
	Error string `yaml:"error,omitempty"`

	Shape       string         `yaml:"shape,omitempty"`
	Contains    []string       `yaml:"contains,omitempty"`
	NotContains []string       `yaml:"not_contains,omitempty"`
	Order       []string       `yaml:"order,omitempty"`
	Params      map[string]any `yaml:"params,omitempty"`
	Warnings    *int           `yaml:"warnings,omitempty"`
	Events      []EventExpect  `yaml:"events,omitempty"`
}

// EventExpect matches one mutation event.
type EventExpect struct {
	Type         string `yaml:"type"`
	Operation    string `yaml:"operation"`
	Relationship string `yaml:"relationship,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}
	if _, err := os.Stat(scenario.Model); err != nil {
		return nil, fmt.Errorf("invalid scenario: model directory: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without resolving the model path.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		seen[step.Name] = true
		if step.Request == "" {
			return fmt.Errorf("steps[%d]: request is required", i)
		}
		if err := validateExpect(i, &step.Expect); err != nil {
			return err
		}
	}
	return nil
}

var shapeNames = map[string]bool{"list": true, "connection": true, "aggregate": true, "mutation": true}

func validateExpect(index int, e *Expect) error {
	if e.Error != "" {
		if e.Shape != "" || len(e.Contains) > 0 || len(e.Order) > 0 || len(e.Params) > 0 || len(e.Events) > 0 {
			return fmt.Errorf("steps[%d].expect: error cannot be combined with statement expectations", index)
		}
		return nil
	}
	if e.Shape != "" && !shapeNames[e.Shape] {
		return fmt.Errorf("steps[%d].expect: unknown shape %q", index, e.Shape)
	}
	if e.Warnings != nil && *e.Warnings < 0 {
		return fmt.Errorf("steps[%d].expect: warnings must be non-negative", index)
	}
	for j, ev := range e.Events {
		if ev.Type == "" || ev.Operation == "" {
			return fmt.Errorf("steps[%d].expect.events[%d]: type and operation are required", index, j)
		}
	}
	return nil
}
