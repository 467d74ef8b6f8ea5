package solver

import (
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// SpecificityOrdering relates two solutions under the specificity
// ranking.
type SpecificityOrdering uint8

const (
	EqualSpecificity SpecificityOrdering = iota
	MoreSpecific
	LessSpecific
	Incomparable
)

// compareSolutions ranks a against b by the name bindings they share. A
// solution is more specific iff every shared-name comparison ascends or
// is equal and at least one strictly ascends; any non-comparable pair
// yields Incomparable.
func compareSolutions(s *Solver, a, b *Solution) SpecificityOrdering {
	overall := EqualSpecificity
	for expr, aRef := range a.Bindings {
		bRef, ok := b.Bindings[expr]
		if !ok || aRef == bRef {
			continue
		}
		c := compareDecls(s, aRef, bRef)
		switch {
		case c == Incomparable:
			return Incomparable
		case c == EqualSpecificity:
			// No contribution.
		case overall == EqualSpecificity:
			overall = c
		case overall != c:
			return Incomparable
		}
	}
	return overall
}

// compareDecls ranks two callable declarations: same labels and arity,
// then mutual strict-subtype tests between their parameter tuples.
func compareDecls(s *Solver, a, b typesystem.DeclRef) SpecificityOrdering {
	aParams, aOK := callableParams(s.checker.DeclType(a))
	bParams, bOK := callableParams(s.checker.DeclType(b))
	if !aOK || !bOK || len(aParams) != len(bParams) {
		return Incomparable
	}
	for i := range aParams {
		if aParams[i].Label != bParams[i].Label {
			return Incomparable
		}
	}

	aBelowB := refines(s, a, b)
	bBelowA := refines(s, b, a)
	switch {
	case aBelowB && bBelowA:
		// Mutual refinement would break antisymmetry; treat as
		// incomparable so all maximal elements survive.
		return Incomparable
	case aBelowB:
		return MoreSpecific
	case bBelowA:
		return LessSpecific
	default:
		return Incomparable
	}
}

// refines reports whether a's parameter tuple is a strict subtype of an
// opened version of b's, decided by a fresh subsolver.
func refines(s *Solver, a, b typesystem.DeclRef) bool {
	aParams, _ := callableParams(s.checker.DeclType(a))
	opened, _ := s.checker.Open(b, source.Site{})
	bParams, ok := callableParams(opened)
	if !ok {
		return false
	}

	origin := Origin{Kind: OriginStructural}
	goal := NewSubtyping(origin, parameterTuple(aParams), parameterTuple(bParams), true)
	sub := New(s.checker, s.scope, []Goal{goal})
	sub.depth = s.depth + 1
	sol := sub.solve(nil)
	return sol != nil && sol.IsSound()
}

func callableParams(t typesystem.Type) ([]typesystem.CallableParam, bool) {
	switch t := t.(type) {
	case typesystem.TLambda:
		return t.Inputs, true
	case typesystem.TMethod:
		return t.Inputs, true
	default:
		return nil, false
	}
}

func parameterTuple(params []typesystem.CallableParam) typesystem.TTuple {
	elems := make([]typesystem.TupleElement, len(params))
	for i, p := range params {
		elems[i] = typesystem.TupleElement{Label: p.Label, Type: typesystem.BareType(p.Type)}
	}
	return typesystem.TTuple{Elements: elems}
}
