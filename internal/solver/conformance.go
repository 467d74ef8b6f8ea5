package solver

import (
	"github.com/veldlang/veld/internal/config"
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/typesystem"
)

func conformanceDiagnose(g GConformance) DiagnoseFunc {
	model := g.Model
	concept := g.Concept
	site := g.origin.Site
	return func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
		sink.Report(diag.NewError(site, "type '%s' does not conform to trait '%s'", m.Reify(model, true), concept.Name))
	}
}

func (s *Solver) solveConformance(id GoalID, g GConformance) {
	model := s.walk(g.Model)

	if _, ok := model.(typesystem.TVar); ok {
		s.postpone(id, g)
		return
	}

	if s.checker.HasConformance(model, g.Concept.Decl, s.scope) {
		s.setOutcome(id, success())
		return
	}

	switch g.Concept.Name {
	case config.MovableTraitName:
		s.solveStructuralConformance(id, g, model)
	case config.ForeignConvertibleTraitName:
		if _, ok := model.(typesystem.TBuiltin); ok {
			s.setOutcome(id, success())
			return
		}
		s.setOutcome(id, failure(conformanceDiagnose(g)))
	default:
		s.setOutcome(id, failure(conformanceDiagnose(g)))
	}
}

// solveStructuralConformance decides built-in movability: built-ins move,
// and aggregates move when every part does. Empty aggregates conform
// trivially.
func (s *Solver) solveStructuralConformance(id GoalID, g GConformance, model typesystem.Type) {
	switch model := model.(type) {
	case typesystem.TBuiltin:
		s.setOutcome(id, success())

	case typesystem.TTuple:
		if len(model.Elements) == 0 {
			s.setOutcome(id, success())
			return
		}
		subs := make([]GoalID, 0, len(model.Elements))
		for _, e := range model.Elements {
			subs = append(subs, s.subgoal(NewConformance(g.origin.Subordinate(id), e.Type, g.Concept)))
		}
		s.setOutcome(id, product(subs, conformanceDiagnose(g)))

	case typesystem.TUnion:
		if len(model.Members) == 0 {
			s.setOutcome(id, success())
			return
		}
		subs := make([]GoalID, 0, len(model.Members))
		for _, m := range model.Members {
			subs = append(subs, s.subgoal(NewConformance(g.origin.Subordinate(id), m, g.Concept)))
		}
		s.setOutcome(id, product(subs, conformanceDiagnose(g)))

	default:
		s.setOutcome(id, failure(conformanceDiagnose(g)))
	}
}
