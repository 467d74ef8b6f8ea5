package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// SubstitutionMap is the monotonically growing mapping from variable
// identity to type. Variables are never mutated in place; the map owns
// all bindings.
type SubstitutionMap struct {
	bindings map[VarID]Type
}

// NewSubstitutionMap returns an empty substitution map.
func NewSubstitutionMap() *SubstitutionMap {
	return &SubstitutionMap{bindings: make(map[VarID]Type)}
}

// Len returns the number of assigned variables.
func (m *SubstitutionMap) Len() int { return len(m.bindings) }

// Assign binds v to t. Assignments are monotonic; rebinding an already
// assigned variable is a programming error.
func (m *SubstitutionMap) Assign(v VarID, t Type) {
	if old, ok := m.bindings[v]; ok {
		panic(fmt.Sprintf("variable %%%d already assigned to %s", v, old))
	}
	m.bindings[v] = t
}

// Binding returns the direct binding of v, if any.
func (m *SubstitutionMap) Binding(v VarID) (Type, bool) {
	t, ok := m.bindings[v]
	return t, ok
}

// Clone returns an independent copy of the map. Bindings are immutable
// values, so sharing them is safe.
func (m *SubstitutionMap) Clone() *SubstitutionMap {
	c := make(map[VarID]Type, len(m.bindings))
	for k, v := range m.bindings {
		c[k] = v
	}
	return &SubstitutionMap{bindings: c}
}

// Reify walks t applying the substitutions transitively. When
// keepVariables is true, unresolved variables remain in the output;
// otherwise they are replaced by the error type.
func (m *SubstitutionMap) Reify(t Type, keepVariables bool) Type {
	return m.reify(t, keepVariables, nil)
}

func (m *SubstitutionMap) reify(t Type, keepVariables bool, visiting []VarID) Type {
	return Transform(t, func(u Type) (Type, TransformAction) {
		v, ok := u.(TVar)
		if !ok {
			return u, StepInto
		}
		for _, w := range visiting {
			if w == v.ID {
				// Cycle through the substitution; treat as fixed point.
				return v, StepOver
			}
		}
		bound, ok := m.bindings[v.ID]
		if !ok {
			if keepVariables {
				return v, StepOver
			}
			return TError{}, StepOver
		}
		return m.reify(bound, keepVariables, append(visiting, v.ID)), StepOver
	})
}

// Optimized returns a copy of the map path-compressed on terminal
// rewrites: every binding is fully reified so a later Reify resolves in
// one step. The result is idempotent: reify(reify(t)) == reify(t).
func (m *SubstitutionMap) Optimized() *SubstitutionMap {
	c := make(map[VarID]Type, len(m.bindings))
	for k := range m.bindings {
		c[k] = m.Reify(TVar{ID: k}, true)
	}
	return &SubstitutionMap{bindings: c}
}

// Variables returns the assigned variable identities in ascending order.
func (m *SubstitutionMap) Variables() []VarID {
	vars := make([]VarID, 0, len(m.bindings))
	for v := range m.bindings {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	return vars
}

func (m *SubstitutionMap) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, v := range m.Variables() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", TVar{ID: v}, m.bindings[v])
	}
	sb.WriteString("}")
	return sb.String()
}
