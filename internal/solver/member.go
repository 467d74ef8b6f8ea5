package solver

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/typesystem"
)

func (s *Solver) solveMember(id GoalID, g GMember) {
	subject := s.walk(g.Subject)

	if _, ok := subject.(typesystem.TVar); ok {
		s.postpone(id, g)
		return
	}

	candidates := s.checker.Resolve(typesystem.BareType(subject), g.Name, s.scope, g.Purpose)
	if len(candidates) == 0 {
		name := g.Name
		site := g.origin.Site
		s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
			sink.Report(diag.NewError(site, "undefined name '%s' in '%s'", name, m.Reify(subject, true)))
		}))
		return
	}

	viable := []program.Candidate{}
	var rejections []diag.Diagnostic
	for _, c := range candidates {
		if c.Diagnose != nil {
			rejections = append(rejections, *c.Diagnose)
			continue
		}
		viable = append(viable, c)
	}

	if len(viable) == 0 {
		name := g.Name
		site := g.origin.Site
		s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
			d := diag.NewError(site, "no viable candidate for '%s'", name)
			d.Notes = rejections
			sink.Report(d)
		}))
		return
	}

	if len(viable) == 1 {
		c := viable[0]
		s.bindingAssumptions[g.MemberExpr] = c.Decl
		subs := s.scheduleInduced(id, g.origin, c.Constraints)
		subs = append(subs, s.subgoal(NewEquality(g.origin.Subordinate(id), c.Type, g.MemberType)))
		s.setOutcome(id, product(subs, nil))
		return
	}

	overloads := make([]OverloadCandidate, len(viable))
	for i, c := range viable {
		constraints := s.pendingToGoals(id, g.origin, c.Constraints)
		constraints = append(constraints, NewEquality(g.origin.Subordinate(id), c.Type, g.MemberType))
		penalty := 0
		if s.checker.IsRequirement(c.Decl) {
			// Candidates satisfying a requirement lose to concrete ones.
			penalty = 1
		}
		overloads[i] = OverloadCandidate{Reference: c.Decl, Constraints: constraints, Penalty: penalty}
	}
	sub := s.subgoal(NewOverload(g.origin.Subordinate(id), g.MemberExpr, g.MemberType, overloads))
	s.setOutcome(id, product([]GoalID{sub}, nil))
}

// pendingToGoals converts the constraints a candidate induces into goals
// subordinate to parent, without scheduling them.
func (s *Solver) pendingToGoals(parent GoalID, origin Origin, pending []program.PendingConstraint) []Goal {
	goals := make([]Goal, 0, len(pending))
	for _, p := range pending {
		sub := origin.Subordinate(parent)
		switch p.Kind {
		case program.PendingEqual:
			goals = append(goals, NewEquality(sub, p.Left, p.Right))
		case program.PendingSubtype:
			goals = append(goals, NewSubtyping(sub, p.Left, p.Right, false))
		case program.PendingConforms:
			goals = append(goals, NewConformance(sub, p.Left, p.Concept))
		}
	}
	return goals
}

// scheduleInduced schedules a candidate's induced constraints and returns
// their identities.
func (s *Solver) scheduleInduced(parent GoalID, origin Origin, pending []program.PendingConstraint) []GoalID {
	ids := []GoalID{}
	for _, g := range s.pendingToGoals(parent, origin, pending) {
		ids = append(ids, s.subgoal(g))
	}
	return ids
}

func (s *Solver) solveTupleMember(id GoalID, g GTupleMember) {
	subject := s.walk(g.Subject)

	if _, ok := subject.(typesystem.TVar); ok {
		s.postpone(id, g)
		return
	}

	tuple, ok := typesystem.BareType(subject).(typesystem.TTuple)
	if !ok {
		site := g.origin.Site
		s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
			sink.Report(diag.NewError(site, "type '%s' has no tuple elements", m.Reify(subject, true)))
		}))
		return
	}

	if g.Index < 0 || g.Index >= len(tuple.Elements) {
		index := g.Index
		count := len(tuple.Elements)
		site := g.origin.Site
		s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
			sink.Report(diag.NewError(site, "tuple index %d out of range; tuple has %d elements", index, count))
		}))
		return
	}

	if s.unify(tuple.Elements[g.Index].Type, g.ElementType) {
		s.setOutcome(id, success())
		return
	}
	element := tuple.Elements[g.Index].Type
	want := g.ElementType
	site := g.origin.Site
	s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		sink.Report(diag.NewError(site, "incompatible types '%s' and '%s'", m.Reify(element, true), m.Reify(want, true)))
	}))
}
