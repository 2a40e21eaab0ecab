package interp

import (
	"fmt"
	"sort"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
	"github.com/MatN23/Nexus-Lang/pkg/value"
)

// Env is a scoped environment for variable bindings. It supports
// parent-chained lookup for lexical scoping and write-once constant
// bindings. The parent pointer never changes after construction.
type Env struct {
	vars      map[string]value.Value
	constants map[string]struct{}
	parent    *Env
	name      string
	depth     int
}

// NewEnv creates a new environment. The root scope has depth 0.
func NewEnv(parent *Env, name string) *Env {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &Env{
		vars:      make(map[string]value.Value),
		constants: make(map[string]struct{}),
		parent:    parent,
		name:      name,
		depth:     depth,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child(name string) *Env {
	return NewEnv(e, name)
}

// Parent returns the enclosing scope, or nil at the root.
func (e *Env) Parent() *Env { return e.parent }

// Name returns the scope's human-readable name.
func (e *Env) Name() string { return e.name }

// Depth returns the nesting depth (root = 0).
func (e *Env) Depth() int { return e.depth }

// Define inserts a binding into this scope, shadowing any outer binding
// of the same name. Redefining a name in the same scope is allowed
// unless that scope already declared it constant.
func (e *Env) Define(name string, val value.Value, isConstant bool) error {
	if _, isConst := e.constants[name]; isConst {
		return &RuntimeError{
			Code:    diagnostics.EConst,
			Message: fmt.Sprintf("cannot redefine constant '%s'", name),
		}
	}
	e.vars[name] = val
	if isConstant {
		e.constants[name] = struct{}{}
	}
	return nil
}

// Get looks up a binding, walking outward from this scope to the root.
func (e *Env) Get(name string) (value.Value, error) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, nil
		}
	}
	return nil, &RuntimeError{
		Code:    diagnostics.EName,
		Message: fmt.Sprintf("undefined variable '%s'", name),
	}
}

// Assign updates the nearest enclosing binding of name. It never
// creates a new binding.
func (e *Env) Assign(name string, val value.Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			if _, isConst := env.constants[name]; isConst {
				return &RuntimeError{
					Code:    diagnostics.EConst,
					Message: fmt.Sprintf("cannot assign to constant '%s'", name),
				}
			}
			env.vars[name] = val
			return nil
		}
	}
	return &RuntimeError{
		Code:    diagnostics.EName,
		Message: fmt.Sprintf("undefined variable '%s'", name),
	}
}

// Has reports whether name is bound in this scope or any parent.
func (e *Env) Has(name string) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			return true
		}
	}
	return false
}

// HasInScope reports whether name is bound in this scope only.
func (e *Env) HasInScope(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// IsConstant reports whether name is a constant in this scope or any parent.
func (e *Env) IsConstant(name string) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			_, isConst := env.constants[name]
			return isConst
		}
	}
	return false
}

// Names returns the names bound in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of this scope's bindings, for introspection.
func (e *Env) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(e.vars))
	for name, v := range e.vars {
		out[name] = v
	}
	return out
}

// Clear removes all bindings and constant marks from this scope.
func (e *Env) Clear() {
	e.vars = make(map[string]value.Value)
	e.constants = make(map[string]struct{})
}
