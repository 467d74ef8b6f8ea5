package solver

import (
	"github.com/veldlang/veld/internal/typesystem"
)

// walk resolves top-level variables through the current assumptions.
func (s *Solver) walk(t typesystem.Type) typesystem.Type {
	for {
		v, ok := t.(typesystem.TVar)
		if !ok {
			return t
		}
		bound, ok := s.typeAssumptions.Binding(v.ID)
		if !ok {
			return t
		}
		t = bound
	}
}

// occurs reports whether v appears in t under the current assumptions.
func (s *Solver) occurs(v typesystem.VarID, t typesystem.Type) bool {
	for _, w := range typesystem.FreeVariables(s.typeAssumptions.Reify(t, true)) {
		if w == v {
			return true
		}
	}
	return false
}

// unify attempts to make a and b equal, assuming variables as needed.
// Every assumption awakens the stale goals whose types it changes.
func (s *Solver) unify(a, b typesystem.Type) bool {
	a = s.walk(a)
	b = s.walk(b)

	if av, ok := a.(typesystem.TVar); ok {
		if bv, ok := b.(typesystem.TVar); ok && av.ID == bv.ID {
			return true
		}
		if s.occurs(av.ID, b) {
			return false
		}
		s.assume(av.ID, b)
		return true
	}
	if bv, ok := b.(typesystem.TVar); ok {
		if s.occurs(bv.ID, a) {
			return false
		}
		s.assume(bv.ID, a)
		return true
	}

	// The error type unifies with anything so one failure does not
	// cascade into unrelated diagnostics.
	if _, ok := a.(typesystem.TError); ok {
		return true
	}
	if _, ok := b.(typesystem.TError); ok {
		return true
	}

	switch a := a.(type) {
	case typesystem.TBuiltin:
		b, ok := b.(typesystem.TBuiltin)
		return ok && a.Kind == b.Kind

	case typesystem.TProduct:
		b, ok := b.(typesystem.TProduct)
		if ok && a.Decl == b.Decl {
			return true
		}

	case typesystem.TGeneric:
		b, ok := b.(typesystem.TGeneric)
		return ok && a.Decl == b.Decl

	case typesystem.TTuple:
		b, ok := b.(typesystem.TTuple)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if a.Elements[i].Label != b.Elements[i].Label {
				return false
			}
			if !s.unify(a.Elements[i].Type, b.Elements[i].Type) {
				return false
			}
		}
		return true

	case typesystem.TUnion:
		b, ok := b.(typesystem.TUnion)
		if !ok {
			return false
		}
		ca, okA := s.checker.Canonical(a).(typesystem.TUnion)
		cb, okB := s.checker.Canonical(b).(typesystem.TUnion)
		if !okA || !okB || len(ca.Members) != len(cb.Members) {
			return false
		}
		for i := range ca.Members {
			if !s.unify(ca.Members[i], cb.Members[i]) {
				return false
			}
		}
		return true

	case typesystem.TLambda:
		b, ok := b.(typesystem.TLambda)
		if !ok || a.Subscript != b.Subscript || len(a.Inputs) != len(b.Inputs) {
			return false
		}
		for i := range a.Inputs {
			if a.Inputs[i].Label != b.Inputs[i].Label {
				return false
			}
			if !s.unify(a.Inputs[i].Type, b.Inputs[i].Type) {
				return false
			}
		}
		if a.Environment != nil && b.Environment != nil {
			if !s.unify(a.Environment, b.Environment) {
				return false
			}
		}
		return s.unify(a.Output, b.Output)

	case typesystem.TMethod:
		b, ok := b.(typesystem.TMethod)
		if !ok || a.Capabilities != b.Capabilities || len(a.Inputs) != len(b.Inputs) {
			return false
		}
		if !s.unify(a.Receiver, b.Receiver) {
			return false
		}
		for i := range a.Inputs {
			if a.Inputs[i].Label != b.Inputs[i].Label {
				return false
			}
			if !s.unify(a.Inputs[i].Type, b.Inputs[i].Type) {
				return false
			}
		}
		return s.unify(a.Output, b.Output)

	case typesystem.TParameter:
		b, ok := b.(typesystem.TParameter)
		if !ok || a.Access != b.Access {
			return false
		}
		return s.unify(a.Bare, b.Bare)

	case typesystem.TRemote:
		b, ok := b.(typesystem.TRemote)
		if !ok || a.Access != b.Access {
			return false
		}
		return s.unify(a.Bare, b.Bare)

	case typesystem.TMetatype:
		b, ok := b.(typesystem.TMetatype)
		if !ok {
			return false
		}
		return s.unify(a.Instance, b.Instance)

	case typesystem.TExistential:
		b, ok := b.(typesystem.TExistential)
		if !ok || len(a.Traits) != len(b.Traits) {
			return false
		}
		for i := range a.Traits {
			if a.Traits[i].Decl != b.Traits[i].Decl {
				return false
			}
		}
		if (a.Base == nil) != (b.Base == nil) {
			return false
		}
		if a.Base != nil {
			return s.unify(a.Base, b.Base)
		}
		return true

	case typesystem.TBoundGeneric:
		b, ok := b.(typesystem.TBoundGeneric)
		if !ok || len(a.Args) != len(b.Args) {
			return false
		}
		if !s.unify(a.Base, b.Base) {
			return false
		}
		// Argument maps check element-wise against matching keys.
		for _, arg := range a.Args {
			other, ok := b.Argument(arg.Key)
			if !ok {
				return false
			}
			if !s.unify(arg.Value, other) {
				return false
			}
		}
		return true
	}

	// Structural mismatch; nominal equivalences get a final say.
	return s.checker.AreEquivalent(a, b)
}
