package solver

import (
	"strings"

	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/typesystem"
)

func (s *Solver) solveEquality(id GoalID, g GEquality) {
	if s.unify(g.L, g.R) {
		s.setOutcome(id, success())
		return
	}
	l, r := g.L, g.R
	site := g.origin.Site
	s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		sink.Report(diag.NewError(site, "incompatible types '%s' and '%s'", m.Reify(l, true), m.Reify(r, true)))
	}))
}

// subtypeDiagnose picks the refined failure wording from the goal's
// origin.
func subtypeDiagnose(g GSubtyping) DiagnoseFunc {
	l, r := g.L, g.R
	site := g.origin.Site
	kind := g.origin.Kind
	strict := g.Strict
	return func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		lr := m.Reify(l, true)
		rr := m.Reify(r, true)
		switch {
		case kind == OriginInitialization:
			sink.Report(diag.NewError(site, "cannot initialize value of type '%s' with '%s'", rr, lr))
		case kind == OriginPattern:
			sink.Report(diag.NewError(site, "value of type '%s' does not match pattern of type '%s'", lr, rr))
		case strict:
			sink.Report(diag.NewError(site, "'%s' is not strictly subtype of '%s'", lr, rr))
		default:
			sink.Report(diag.NewError(site, "'%s' is not subtype of '%s'", lr, rr))
		}
	}
}

func (s *Solver) solveSubtyping(id GoalID, g GSubtyping) {
	l := s.walk(g.L)
	r := s.walk(g.R)

	if s.checker.AreEquivalent(l, r) {
		if g.Strict {
			s.setOutcome(id, failure(subtypeDiagnose(g)))
		} else {
			s.setOutcome(id, success())
		}
		return
	}

	lUnion, lIsUnion := l.(typesystem.TUnion)
	rUnion, rIsUnion := r.(typesystem.TUnion)
	_, lIsVar := l.(typesystem.TVar)
	_, rIsVar := r.(typesystem.TVar)

	switch {
	case lIsUnion && rIsUnion:
		// Element-wise decomposition: every member of the left union
		// passes to the right union.
		subs := make([]GoalID, 0, len(lUnion.Members))
		for _, member := range lUnion.Members {
			subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), member, r, false)))
		}
		s.setOutcome(id, product(subs, subtypeDiagnose(g)))

	case rIsUnion && !lIsVar:
		s.solveSubtypingIntoUnion(id, g, l, rUnion)

	case rIsVar && !g.Strict:
		// Inference constraint: the supertype is either exactly l or a
		// proper supertype of it.
		choices := []Choice{
			{Constraints: []Goal{NewEquality(g.origin.Subordinate(id), l, r)}, Penalty: 0},
			{Constraints: []Goal{NewSubtyping(g.origin.Subordinate(id), l, r, true)}, Penalty: 1},
		}
		sub := s.subgoal(NewDisjunction(g.origin.Subordinate(id), choices))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))

	case lIsVar && !g.Strict:
		if typesystem.IsLeaf(r) {
			// The only strict subtype of a leaf is the empty union.
			choices := []Choice{
				{Constraints: []Goal{NewEquality(g.origin.Subordinate(id), l, r)}, Penalty: 0},
				{Constraints: []Goal{NewEquality(g.origin.Subordinate(id), l, typesystem.Never())}, Penalty: 1},
			}
			sub := s.subgoal(NewDisjunction(g.origin.Subordinate(id), choices))
			s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
			return
		}
		choices := []Choice{
			{Constraints: []Goal{NewEquality(g.origin.Subordinate(id), l, r)}, Penalty: 0},
			{Constraints: []Goal{NewSubtyping(g.origin.Subordinate(id), l, r, true)}, Penalty: 1},
		}
		sub := s.subgoal(NewDisjunction(g.origin.Subordinate(id), choices))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))

	case lIsVar || rIsVar:
		// Strict subtyping against an open variable waits for more
		// substitution progress.
		s.postpone(id, g)

	default:
		s.solveSubtypingStructural(id, g, l, r)
	}
}

func (s *Solver) solveSubtypingIntoUnion(id GoalID, g GSubtyping, l typesystem.Type, r typesystem.TUnion) {
	n := len(r.Members)
	switch n {
	case 0:
		sub := s.subgoal(NewEquality(g.origin.Subordinate(id), l, typesystem.Never()))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
	case 1:
		sub := s.subgoal(NewSubtyping(g.origin.Subordinate(id), l, r.Members[0], false))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
	default:
		choices := []Choice{}
		if !g.Strict {
			choices = append(choices, Choice{
				Constraints: []Goal{NewEquality(g.origin.Subordinate(id), l, r)},
				Penalty:     0,
			})
		}
		for dropped := 0; dropped < n; dropped++ {
			subset := make([]typesystem.Type, 0, n-1)
			for i, m := range r.Members {
				if i != dropped {
					subset = append(subset, m)
				}
			}
			choices = append(choices, Choice{
				Constraints: []Goal{NewSubtyping(g.origin.Subordinate(id), l, typesystem.TUnion{Members: subset}, false)},
				Penalty:     1,
			})
		}
		sub := s.subgoal(NewDisjunction(g.origin.Subordinate(id), choices))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
	}
}

func (s *Solver) solveSubtypingStructural(id GoalID, g GSubtyping, l, r typesystem.Type) {
	if remote, ok := l.(typesystem.TRemote); ok {
		sub := s.subgoal(NewSubtyping(g.origin.Subordinate(id), remote.Bare, r, g.Strict))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
		return
	}

	if ex, ok := r.(typesystem.TExistential); ok {
		if ex.Base == nil {
			// Coercion into an existential costs one penalty and
			// requires conformance to every trait of the interface.
			s.penalties++
			subs := make([]GoalID, 0, len(ex.Traits))
			for _, trait := range ex.Traits {
				subs = append(subs, s.subgoal(NewConformance(g.origin.Subordinate(id), l, trait)))
			}
			s.setOutcome(id, product(subs, subtypeDiagnose(g)))
			return
		}
		opened := s.openExistentialBase(ex.Base)
		sub := s.subgoal(NewEquality(g.origin.Subordinate(id), l, opened))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
		return
	}

	lTuple, lIsTuple := l.(typesystem.TTuple)
	rTuple, rIsTuple := r.(typesystem.TTuple)
	if lIsTuple && rIsTuple {
		// Equivalence was ruled out above, so element-wise subtyping is
		// enough even under strictness.
		if len(lTuple.Elements) != len(rTuple.Elements) {
			s.setOutcome(id, failure(subtypeDiagnose(g)))
			return
		}
		subs := []GoalID{}
		for i := range lTuple.Elements {
			if lTuple.Elements[i].Label != rTuple.Elements[i].Label {
				s.setOutcome(id, failure(subtypeDiagnose(g)))
				return
			}
			subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), lTuple.Elements[i].Type, rTuple.Elements[i].Type, false)))
		}
		s.setOutcome(id, product(subs, subtypeDiagnose(g)))
		return
	}

	lLambda, lIsLambda := l.(typesystem.TLambda)
	rLambda, rIsLambda := r.(typesystem.TLambda)
	if lIsLambda && rIsLambda {
		s.solveLambdaSubtyping(id, g, lLambda, rLambda)
		return
	}

	if !l.Flags().IsCanonical() && !r.Flags().IsCanonical() {
		sub := s.subgoal(NewSubtyping(g.origin.Subordinate(id), s.checker.Canonical(l), s.checker.Canonical(r), g.Strict))
		s.setOutcome(id, product([]GoalID{sub}, subtypeDiagnose(g)))
		return
	}

	if g.Strict {
		s.setOutcome(id, failure(subtypeDiagnose(g)))
		return
	}

	// Last resort: subtyping collapses to equality.
	if s.unify(l, r) {
		s.setOutcome(id, success())
		return
	}
	s.setOutcome(id, failure(subtypeDiagnose(g)))
}

func (s *Solver) solveLambdaSubtyping(id GoalID, g GSubtyping, l, r typesystem.TLambda) {
	if l.Subscript != r.Subscript || len(l.Inputs) != len(r.Inputs) {
		s.setOutcome(id, failure(subtypeDiagnose(g)))
		return
	}
	for i := range l.Inputs {
		if l.Inputs[i].Label != r.Inputs[i].Label {
			found := labelList(l.Labels())
			expected := labelList(r.Labels())
			site := g.origin.Site
			s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
				sink.Report(diag.NewError(site, "incompatible labels: found '%s', expected '%s'", found, expected))
			}))
			return
		}
	}

	subs := []GoalID{}
	for i := range l.Inputs {
		lp, lOK := l.Inputs[i].Type.(typesystem.TParameter)
		rp, rOK := r.Inputs[i].Type.(typesystem.TParameter)
		if lOK && rOK {
			if lp.Access != rp.Access {
				s.setOutcome(id, failure(subtypeDiagnose(g)))
				return
			}
			// Parameters are contravariant.
			subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), rp.Bare, lp.Bare, false)))
		} else {
			subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), r.Inputs[i].Type, l.Inputs[i].Type, false)))
		}
	}
	if l.Environment != nil && r.Environment != nil {
		subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), l.Environment, r.Environment, false)))
	}
	subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), l.Output, r.Output, false)))
	s.setOutcome(id, product(subs, subtypeDiagnose(g)))
}

// openExistentialBase replaces the arguments of a generic interface base
// with fresh variables.
func (s *Solver) openExistentialBase(base typesystem.Type) typesystem.Type {
	if bg, ok := base.(typesystem.TBoundGeneric); ok {
		args := make([]typesystem.TypeArgument, len(bg.Args))
		for i, a := range bg.Args {
			args[i] = typesystem.TypeArgument{Key: a.Key, Name: a.Name, Value: s.checker.Fresh()}
		}
		return typesystem.TBoundGeneric{Base: bg.Base, Args: args}
	}
	if _, ok := base.(typesystem.TMetatype); ok {
		return typesystem.TMetatype{Instance: s.checker.Fresh()}
	}
	return base
}

func labelList(labels []string) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		if l == "" {
			parts[i] = "_:"
		} else {
			parts[i] = l + ":"
		}
	}
	return "(" + strings.Join(parts, "") + ")"
}
