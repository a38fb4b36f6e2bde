// Package role defines the closed set of pipeline roles and the registry
// mapping each role to its specification (instructions + grounding policy).
//
// The role set is deliberately closed: every stage of the pipeline is one of
// the five known roles, executed in a fixed order. The registry is loaded once
// at startup (built-in defaults, optionally overlaid from a YAML file) and is
// read-only afterwards, so it can be shared freely across concurrent runs.
package role

import "fmt"

// Role identifies a pipeline stage and selects its fixed instructions and
// tool policy.
type Role string

// The closed set of pipeline roles, in execution order. Interpreter runs only
// for image inputs.
const (
	Interpreter  Role = "diagram_interpreter"
	Critic       Role = "critic"
	Fixer        Role = "fixer"
	Visualizer   Role = "visualizer"
	IaCGenerator Role = "iac_generator"
)

// Sequence returns the fixed stage order for one run. The interpreter stage
// is included iff withInterpreter is true (image input). The returned slice
// is a fresh copy safe for caller mutation.
func Sequence(withInterpreter bool) []Role {
	if withInterpreter {
		return []Role{Interpreter, Critic, Fixer, Visualizer, IaCGenerator}
	}
	return []Role{Critic, Fixer, Visualizer, IaCGenerator}
}

// Valid reports whether r is one of the known pipeline roles.
func (r Role) Valid() bool {
	switch r {
	case Interpreter, Critic, Fixer, Visualizer, IaCGenerator:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// Parse converts a role id string into a Role, failing for ids outside the
// closed set.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}
