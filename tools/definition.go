package tools

import (
	"fmt"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

// ParamType is the JSON Schema type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// IsValid reports whether t is a supported parameter type.
func (t ParamType) IsValid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Parameter describes a single named argument of a tool.
type Parameter struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
	Required    bool      `json:"required" yaml:"required"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// Definition is the model-facing description of a tool. Parameters are
// ordered; the order is preserved in the advertised schema.
type Definition struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Parameters  []Parameter `json:"parameters" yaml:"parameters"`
}

// Validate checks the definition is registrable: non-empty name, unique
// non-empty parameter names, and supported parameter types.
func (d Definition) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}

	seen := make(map[string]bool, len(d.Parameters))
	for i, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("%w: %s: parameter %d has no name", ErrInvalidDefinition, d.Name, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s: duplicate parameter %q", ErrInvalidDefinition, d.Name, p.Name)
		}
		seen[p.Name] = true

		if !p.Type.IsValid() {
			return fmt.Errorf("%w: %s: parameter %q has unsupported type %q", ErrInvalidDefinition, d.Name, p.Name, p.Type)
		}
		if len(p.Enum) > 0 && p.Type != TypeString {
			return fmt.Errorf("%w: %s: enum on non-string parameter %q", ErrInvalidDefinition, d.Name, p.Name)
		}
	}
	return nil
}

// Required returns the names of required parameters in declaration order.
func (d Definition) Required() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Schema renders the parameter list as a JSON Schema object. Properties
// marshal in declaration order.
func (d Definition) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(d.Parameters)),
		Required:   d.Required(),
	}

	for _, p := range d.Parameters {
		schema.PropertyOrder = append(schema.PropertyOrder, p.Name)
		prop := &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
		}
		for _, v := range p.Enum {
			prop.Enum = append(prop.Enum, v)
		}
		schema.Properties[p.Name] = prop
	}
	return schema
}

func (d Definition) clone() Definition {
	c := d
	c.Parameters = slices.Clone(d.Parameters)
	for i := range c.Parameters {
		c.Parameters[i].Enum = slices.Clone(d.Parameters[i].Enum)
	}
	return c
}
