package solver

import (
	"fmt"

	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/typesystem"
)

// exploreChoice is one branch of a disjunction or overload exploration.
type exploreChoice struct {
	constraints []Goal
	penalty     int
	bindsExpr   program.ExprID
	bindsRef    typesystem.DeclRef
	hasBinding  bool
}

func disjunctionChoices(g GDisjunction) []exploreChoice {
	choices := make([]exploreChoice, len(g.Choices))
	for i, c := range g.Choices {
		choices[i] = exploreChoice{constraints: c.Constraints, penalty: c.Penalty}
	}
	return choices
}

func overloadChoices(g GOverload) []exploreChoice {
	choices := make([]exploreChoice, len(g.Candidates))
	for i, c := range g.Candidates {
		choices[i] = exploreChoice{
			constraints: c.Constraints,
			penalty:     c.Penalty,
			bindsExpr:   g.Expr,
			bindsRef:    c.Reference,
			hasBinding:  true,
		}
	}
	return choices
}

// explore forks the solver state per choice, keeps the best-scoring
// solutions, and ranks equal-score winners by specificity. It implements
// the shared disjunction/overload protocol.
func (s *Solver) explore(id GoalID, origin Origin, choices []exploreChoice, bound *Score) *Solution {
	best := Worst
	if bound != nil {
		best = *bound
	}

	var winners []*Solution
	for i, c := range choices {
		s.trace("fork [%d] choice %d penalty=%d", id, i, c.penalty)

		f := s.fork()
		f.penalties += c.penalty
		if c.hasBinding {
			f.bindingAssumptions[c.bindsExpr] = c.bindsRef
		}
		subIDs := make([]GoalID, 0, len(c.constraints))
		for _, sub := range c.constraints {
			subIDs = append(subIDs, f.schedule(sub))
		}
		f.outcomes[id] = product(subIDs, nil)

		sol := f.solve(&best)
		if sol == nil {
			s.trace("skip choice %d", i)
			continue
		}

		switch {
		case sol.Score.Less(best):
			best = sol.Score
			winners = winners[:0]
			winners = append(winners, sol)
			s.trace("pick choice %d score=%d/%d", i, sol.Score.Errors, sol.Score.Penalties)
		case sol.Score.Equal(best):
			winners = s.insertWinner(winners, sol)
			s.trace("pick choice %d score=%d/%d", i, sol.Score.Errors, sol.Score.Penalties)
		default:
			s.trace("skip choice %d", i)
		}
	}

	switch len(winners) {
	case 0:
		s.trace("abort no competitive choice")
		return nil
	case 1:
		return winners[0]
	default:
		return s.mergeAmbiguous(origin, choices, winners)
	}
}

// insertWinner adds sol to the maximal set under the specificity
// ranking: strictly less specific solutions are dropped, and every
// maximal element is preserved.
func (s *Solver) insertWinner(winners []*Solution, sol *Solution) []*Solution {
	dominated := false
	out := winners[:0]
	for _, w := range winners {
		switch compareSolutions(s, sol, w) {
		case MoreSpecific:
			// w is superseded.
		case LessSpecific:
			dominated = true
			out = append(out, w)
		default:
			out = append(out, w)
		}
	}
	if !dominated {
		out = append(out, sol)
	}
	return out
}

// mergeAmbiguous merges equally ranked winners into a single solution
// carrying an ambiguity diagnostic.
func (s *Solver) mergeAmbiguous(origin Origin, choices []exploreChoice, winners []*Solution) *Solution {
	merged := winners[0]
	message := "ambiguous disjunction"
	if choices[0].hasBinding {
		message = fmt.Sprintf("ambiguous use of '%s'", s.checker.DeclName(choices[0].bindsRef))
	}
	d := diag.NewError(origin.Site, "%s", message)
	for _, w := range winners {
		for expr, ref := range w.Bindings {
			if merged.Bindings[expr] != ref {
				d.Notes = append(d.Notes, diag.NewNote(origin.Site, "candidate: '%s'", s.checker.DeclName(ref)))
			}
		}
	}
	merged.Diagnostics = append(merged.Diagnostics, d)
	merged.Score.Errors++
	return merged
}
