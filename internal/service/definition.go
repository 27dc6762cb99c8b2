package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OperationSpec declares one protocol operation: its CamelCase name, its
// positional argument names, and the result shape(s) the protocol
// advertises for it.
//
// A non-nil EventFields list declares a completion-event shape; a non-nil
// ResultFields list declares a synchronous result shape. The classifier
// derives the response mode from which shapes are present.
type OperationSpec struct {
	// Name is the protocol-facing operation name, e.g. "AddPart".
	Name string `yaml:"name"`

	// Args names the positional arguments in call order.
	Args []string `yaml:"args"`

	// EventFields lists the named fields of the completion event.
	EventFields []string `yaml:"event_fields"`

	// ResultFields lists the named fields of the synchronous result.
	ResultFields []string `yaml:"result_fields"`
}

// Definition is the protocol-declared interface of one deployment: the set
// of operations a provider is expected to serve.
type Definition struct {
	Operations []OperationSpec `yaml:"operations"`
}

// LoadDefinition reads and validates an interface definition file.
//
// Returns ErrDefinition (wrapped) if the file cannot be read, parsed, or
// fails validation.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDefinition, path, err)
	}
	return ParseDefinition(data)
}

// ParseDefinition parses and validates an interface definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinition, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks structural rules that hold for any definition:
// at least one operation, non-empty unique names.
//
// Missing capabilities and missing result shapes are deliberately NOT
// validation errors; they are per-operation link failures so one bad
// operation never blocks the rest of the interface.
func (d *Definition) Validate() error {
	if len(d.Operations) == 0 {
		return fmt.Errorf("%w: no operations declared", ErrDefinition)
	}
	seen := make(map[string]struct{}, len(d.Operations))
	for i, op := range d.Operations {
		if op.Name == "" {
			return fmt.Errorf("%w: operation %d has no name", ErrDefinition, i)
		}
		if _, dup := seen[op.Name]; dup {
			return fmt.Errorf("%w: duplicate operation %q", ErrDefinition, op.Name)
		}
		seen[op.Name] = struct{}{}
	}
	return nil
}
