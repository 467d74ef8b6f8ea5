package solver

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/typesystem"
)

func (s *Solver) solveParameter(id GoalID, g GParameter) {
	r := s.walk(g.R)

	if _, ok := r.(typesystem.TVar); ok {
		s.postpone(id, g)
		return
	}

	if p, ok := r.(typesystem.TParameter); ok {
		sub := s.subgoal(NewSubtyping(g.origin.Subordinate(id), g.L, p.Bare, false))
		l := g.L
		site := g.origin.Site
		s.setOutcome(id, product([]GoalID{sub}, func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
			sink.Report(diag.NewError(site, "cannot pass value of type '%s' to parameter '%s'", m.Reify(l, true), m.Reify(r, true)))
		}))
		return
	}

	site := g.origin.Site
	s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		sink.Report(diag.NewError(site, "invalid parameter type '%s'", m.Reify(r, true)))
	}))
}

func (s *Solver) solveCall(id GoalID, g GCall) {
	callee := s.walk(g.Callee)

	if _, ok := callee.(typesystem.TVar); ok {
		s.postpone(id, g)
		return
	}

	var inputs []typesystem.CallableParam
	var output typesystem.Type
	switch c := typesystem.BareType(callee).(type) {
	case typesystem.TLambda:
		if c.Subscript == g.Arrow {
			s.failNotCallable(id, g, callee)
			return
		}
		inputs, output = c.Inputs, c.Output
	case typesystem.TMethod:
		if !g.Arrow {
			s.failNotCallable(id, g, callee)
			return
		}
		inputs, output = c.Inputs, c.Output
	default:
		s.failNotCallable(id, g, callee)
		return
	}

	// Match argument labels to parameter labels left to right, skipping
	// parameters that have defaults and do not match.
	subs := []GoalID{}
	next := 0
	for _, p := range inputs {
		if next < len(g.Arguments) && g.Arguments[next].Label == p.Label {
			subs = append(subs, s.subgoal(NewParameter(g.origin.Subordinate(id), g.Arguments[next].Type, p.Type)))
			next++
			continue
		}
		if p.HasDefault {
			continue
		}
		s.failLabels(id, g, inputs)
		return
	}
	if next != len(g.Arguments) {
		s.failLabels(id, g, inputs)
		return
	}

	subs = append(subs, s.subgoal(NewEquality(g.origin.Subordinate(id), output, g.Output)))
	s.setOutcome(id, product(subs, nil))
}

func (s *Solver) failNotCallable(id GoalID, g GCall, callee typesystem.Type) {
	arrow := g.Arrow
	site := g.origin.Site
	s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		kind := "function"
		if !arrow {
			kind = "subscript"
		}
		sink.Report(diag.NewError(site, "cannot call value of type '%s' as a %s", m.Reify(callee, true), kind))
	}))
}

func (s *Solver) failLabels(id GoalID, g GCall, inputs []typesystem.CallableParam) {
	found := make([]string, len(g.Arguments))
	for i, a := range g.Arguments {
		found[i] = a.Label
	}
	expected := make([]string, len(inputs))
	for i, p := range inputs {
		expected[i] = p.Label
	}
	site := g.origin.Site
	s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		sink.Report(diag.NewError(site, "incompatible labels: found '%s', expected '%s'", labelList(found), labelList(expected)))
	}))
}

func (s *Solver) solveMerging(id GoalID, g GMerging) {
	if len(g.Branches) == 0 {
		s.setOutcome(id, success())
		return
	}
	subs := make([]GoalID, 0, len(g.Branches))
	for _, b := range g.Branches {
		subs = append(subs, s.subgoal(NewSubtyping(g.origin.Subordinate(id), b, g.Supertype, false)))
	}
	supertype := g.Supertype
	branches := g.Branches
	site := g.origin.Site
	s.setOutcome(id, product(subs, func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		d := diag.NewError(site, "conditional branches have mismatching types")
		for _, b := range branches {
			d.Notes = append(d.Notes, diag.NewNote(site, "branch has type '%s', expected '%s'", m.Reify(b, true), m.Reify(supertype, true)))
		}
		sink.Report(d)
	}))
}
