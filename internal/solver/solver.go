package solver

import (
	"fmt"

	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// Checker is the typed-program query surface the solver consumes. All
// queries are pure from the solver's perspective; *program.Program
// satisfies the interface.
type Checker interface {
	Canonical(t typesystem.Type) typesystem.Type
	AreEquivalent(a, b typesystem.Type) bool
	HasConformance(model typesystem.Type, trait typesystem.DeclRef, scope program.ScopeID) bool
	ConformedTraits(model typesystem.Type, scope program.ScopeID) []typesystem.TraitRef
	Resolve(subject typesystem.Type, name string, scope program.ScopeID, purpose program.Purpose) []program.Candidate
	DeclType(ref typesystem.DeclRef) typesystem.Type
	DeclName(ref typesystem.DeclRef) string
	IsRequirement(ref typesystem.DeclRef) bool
	Open(ref typesystem.DeclRef, site source.Site) (typesystem.Type, map[typesystem.DeclRef]typesystem.TVar)
	Fresh() typesystem.TVar
}

// Solver decides a set of constraints over a substitution map and a
// binding map. Its state is a plain value graph with no outward
// references, so disjunction and overload exploration can fork it by
// copying.
type Solver struct {
	checker Checker
	scope   program.ScopeID

	goals    []Goal
	outcomes OutcomeMap
	fresh    []GoalID
	stale    []GoalID

	// staleMentions indexes stale goals by the variables they mention so
	// revival on assignment stays linear.
	staleMentions map[typesystem.VarID][]GoalID

	typeAssumptions    *typesystem.SubstitutionMap
	bindingAssumptions map[program.ExprID]typesystem.DeclRef

	penalties int
	failures  int

	tracer *Tracer
	depth  int
}

// New constructs a solver over the seed constraints in scope.
func New(checker Checker, scope program.ScopeID, seeds []Goal) *Solver {
	s := &Solver{
		checker:            checker,
		scope:              scope,
		staleMentions:      make(map[typesystem.VarID][]GoalID),
		typeAssumptions:    typesystem.NewSubstitutionMap(),
		bindingAssumptions: make(map[program.ExprID]typesystem.DeclRef),
	}
	for _, g := range seeds {
		s.schedule(g)
	}
	return s
}

// NewWithBindings constructs a solver with an initial binding map.
func NewWithBindings(checker Checker, scope program.ScopeID, seeds []Goal, bindings map[program.ExprID]typesystem.DeclRef) *Solver {
	s := New(checker, scope, seeds)
	for k, v := range bindings {
		s.bindingAssumptions[k] = v
	}
	return s
}

// SetTracer attaches an inference tracer.
func (s *Solver) SetTracer(t *Tracer) { s.tracer = t }

// Solve runs the solver to completion and returns the best solution.
func (s *Solver) Solve() *Solution {
	s.traceState()
	sol := s.solve(nil)
	if sol == nil {
		// No bound was given, so the only way to get here is a defect in
		// pruning.
		panic("solver returned no solution without a bound")
	}
	return sol
}

// SolveNotWorseThan runs the solver, abandoning the search as soon as the
// running score exceeds maxScore. It returns nil when pruning shows no
// competitive solution is reachable.
func (s *Solver) SolveNotWorseThan(maxScore Score) *Solution {
	s.traceState()
	return s.solve(&maxScore)
}

func (s *Solver) currentScore() Score {
	return Score{Errors: s.failures, Penalties: s.penalties}
}

// schedule appends g as a fresh goal and returns its identity. The fresh
// list keeps more complex goals toward the head; goals pop from the tail
// so the simplest goal is always next.
func (s *Solver) schedule(g Goal) GoalID {
	id := GoalID(len(s.goals))
	s.goals = append(s.goals, g)
	s.outcomes = append(s.outcomes, Outcome{})
	pos := len(s.fresh)
	for pos > 0 && s.goals[s.fresh[pos-1]].simplicity() < g.simplicity() {
		pos--
	}
	s.fresh = append(s.fresh, 0)
	copy(s.fresh[pos+1:], s.fresh[pos:])
	s.fresh[pos] = id
	s.trace("schedule [%d] %s", id, g)
	return id
}

// subgoal schedules g as a subordinate of parent and returns its id.
func (s *Solver) subgoal(g Goal) GoalID {
	return s.schedule(g)
}

func (s *Solver) setOutcome(id GoalID, o Outcome) {
	if s.outcomes[id].Kind != Pending {
		panic(fmt.Sprintf("outcome of goal %d set twice", id))
	}
	s.outcomes[id] = o
	switch o.Kind {
	case Succeeded:
		s.trace("success [%d]", id)
	case Failed:
		s.failures++
		s.trace("failure [%d]", id)
	}
}

// postpone parks the goal until one of its variables is substituted.
func (s *Solver) postpone(id GoalID, g Goal) {
	s.stale = append(s.stale, id)
	for _, v := range g.mentions() {
		s.staleMentions[v] = append(s.staleMentions[v], id)
	}
	s.trace("defer [%d] %s", id, g)
}

// assume substitutes v by t and revives every stale goal mentioning v.
func (s *Solver) assume(v typesystem.VarID, t typesystem.Type) {
	s.typeAssumptions.Assign(v, t)
	s.trace("assume %s = %s", typesystem.TVar{ID: v}, t)
	s.refresh(v)
}

func (s *Solver) refresh(v typesystem.VarID) {
	ids := s.staleMentions[v]
	if len(ids) == 0 {
		return
	}
	delete(s.staleMentions, v)
	for _, id := range ids {
		if !s.removeStale(id) {
			continue
		}
		g := s.goals[id]
		pos := len(s.fresh)
		for pos > 0 && s.goals[s.fresh[pos-1]].simplicity() < g.simplicity() {
			pos--
		}
		s.fresh = append(s.fresh, 0)
		copy(s.fresh[pos+1:], s.fresh[pos:])
		s.fresh[pos] = id
		s.trace("refresh [%d] %s", id, g)
	}
}

func (s *Solver) removeStale(id GoalID) bool {
	for i, other := range s.stale {
		if other == id {
			s.stale = append(s.stale[:i], s.stale[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Solver) solve(bound *Score) *Solution {
	for len(s.fresh) > 0 {
		if bound != nil && bound.Less(s.currentScore()) {
			s.trace("abort score=%d/%d", s.failures, s.penalties)
			return nil
		}

		id := s.fresh[len(s.fresh)-1]
		s.fresh = s.fresh[:len(s.fresh)-1]

		g := s.goals[id].reified(s.typeAssumptions)
		s.goals[id] = g
		s.trace("solve [%d] %s", id, g)

		switch g := g.(type) {
		case GEquality:
			s.solveEquality(id, g)
		case GSubtyping:
			s.solveSubtyping(id, g)
		case GConformance:
			s.solveConformance(id, g)
		case GParameter:
			s.solveParameter(id, g)
		case GMember:
			s.solveMember(id, g)
		case GTupleMember:
			s.solveTupleMember(id, g)
		case GCall:
			s.solveCall(id, g)
		case GMerging:
			s.solveMerging(id, g)
		case GDisjunction:
			return s.explore(id, g.origin, disjunctionChoices(g), bound)
		case GOverload:
			return s.explore(id, g.origin, overloadChoices(g), bound)
		default:
			panic(fmt.Sprintf("unknown goal variant %T", g))
		}
	}
	return s.finalize(bound)
}

// finalize fails the undecided stale goals, collects diagnostics from
// failing root goals, and assembles the solution.
func (s *Solver) finalize(bound *Score) *Solution {
	staleLeft := append([]GoalID(nil), s.stale...)
	for _, id := range staleLeft {
		g := s.goals[id]
		s.setOutcome(id, failure(func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap) {
			sink.Report(diag.NewError(g.Origin().Site, "type of expression is not sufficiently constrained: %s", g.reified(m)))
		}))
	}

	if bound != nil && bound.Less(s.currentScore()) {
		s.trace("abort score=%d/%d", s.failures, s.penalties)
		return nil
	}

	substitutions := s.typeAssumptions.Optimized()
	sink := &diag.Sink{}
	for id, g := range s.goals {
		gid := GoalID(id)
		if !g.Origin().IsRoot() {
			continue
		}
		if s.outcomes.Succeeded(gid) {
			continue
		}
		if d := s.diagnoseOf(gid); d != nil {
			d(sink, substitutions, s.outcomes)
		}
	}

	bindings := make(map[program.ExprID]typesystem.DeclRef, len(s.bindingAssumptions))
	for k, v := range s.bindingAssumptions {
		bindings[k] = v
	}

	sol := &Solution{
		Substitutions: substitutions,
		Bindings:      bindings,
		Score:         s.currentScore(),
		Diagnostics:   sink.Diagnostics(),
		Stale:         staleLeft,
	}
	s.trace("break score=%d/%d", sol.Score.Errors, sol.Score.Penalties)
	return sol
}

// diagnoseOf returns the diagnose closure of gid, falling back to its
// failing subordinates when the goal itself carries none.
func (s *Solver) diagnoseOf(gid GoalID) DiagnoseFunc {
	o := s.outcomes[gid]
	if o.Diagnose != nil {
		return o.Diagnose
	}
	if o.Kind == Product {
		for _, sub := range o.Subordinates {
			if !s.outcomes.Succeeded(sub) {
				if d := s.diagnoseOf(sub); d != nil {
					return d
				}
			}
		}
	}
	return nil
}

// fork copies the solver state for one exploration branch. Forks are
// isolated values; nothing in the state points at live instructions or
// modules.
func (s *Solver) fork() *Solver {
	goals := append([]Goal(nil), s.goals...)
	outcomes := append(OutcomeMap(nil), s.outcomes...)
	fresh := append([]GoalID(nil), s.fresh...)
	stale := append([]GoalID(nil), s.stale...)
	mentions := make(map[typesystem.VarID][]GoalID, len(s.staleMentions))
	for k, v := range s.staleMentions {
		mentions[k] = append([]GoalID(nil), v...)
	}
	bindings := make(map[program.ExprID]typesystem.DeclRef, len(s.bindingAssumptions))
	for k, v := range s.bindingAssumptions {
		bindings[k] = v
	}
	return &Solver{
		checker:            s.checker,
		scope:              s.scope,
		goals:              goals,
		outcomes:           outcomes,
		fresh:              fresh,
		stale:              stale,
		staleMentions:      mentions,
		typeAssumptions:    s.typeAssumptions.Clone(),
		bindingAssumptions: bindings,
		penalties:          s.penalties,
		failures:           s.failures,
		tracer:             s.tracer,
		depth:              s.depth + 1,
	}
}
