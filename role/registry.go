package role

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownRole is returned when a requested role id was never registered.
// It signals a configuration bug and is raised before any stage runs.
var ErrUnknownRole = fmt.Errorf("unknown role")

// Spec is the immutable specification of a single role: its identity, the
// instructions handed to the completion engine, and whether invocations of
// this role carry the documentation grounding tool.
type Spec struct {
	ID            Role
	Instructions  string
	UsesGrounding bool
}

// Registry maps roles to their specifications. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	specs map[Role]Spec
}

// NewRegistry returns a registry populated with the built-in default specs
// for all five pipeline roles.
func NewRegistry() *Registry {
	specs := make(map[Role]Spec, len(defaultSpecs))
	for _, s := range defaultSpecs {
		specs[s.ID] = s
	}
	return &Registry{specs: specs}
}

// fileSpec is the YAML shape of a role override. Absent fields keep the
// built-in default.
type fileSpec struct {
	Instructions  string `yaml:"instructions"`
	UsesGrounding *bool  `yaml:"uses_grounding"`
}

// NewRegistryFromFile returns the default registry overlaid with role
// overrides read from a YAML file of the form:
//
//	critic:
//	  instructions: |
//	    You are ...
//	  uses_grounding: true
//
// Keys outside the closed role set are rejected; the file cannot introduce
// new roles.
func NewRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("role: read %s: %w", path, err)
	}

	overrides := map[string]fileSpec{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("role: parse %s: %w", path, err)
	}

	r := NewRegistry()
	for id, o := range overrides {
		parsed, err := Parse(id)
		if err != nil {
			return nil, fmt.Errorf("role: %s: %w", path, err)
		}
		spec := r.specs[parsed]
		if o.Instructions != "" {
			spec.Instructions = o.Instructions
		}
		if o.UsesGrounding != nil {
			spec.UsesGrounding = *o.UsesGrounding
		}
		r.specs[parsed] = spec
	}
	return r, nil
}

// Resolve returns the spec registered for the given role or ErrUnknownRole.
func (r *Registry) Resolve(id Role) (Spec, error) {
	spec, ok := r.specs[id]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownRole, id)
	}
	return spec, nil
}

// Roles returns all registered specs in pipeline execution order.
func (r *Registry) Roles() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, id := range Sequence(true) {
		if spec, ok := r.specs[id]; ok {
			out = append(out, spec)
		}
	}
	return out
}
