package solver

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/typesystem"
)

// OutcomeKind states how a goal fared.
type OutcomeKind uint8

const (
	Pending OutcomeKind = iota
	Succeeded
	Failed
	Product
)

// DiagnoseFunc renders the failure of a root goal. It receives the final
// substitution and the outcome map so it may consult subordinate goals.
// Diagnose functions are pure and idempotent; the solver may invoke them
// more than once while exploring.
type DiagnoseFunc func(sink *diag.Sink, m *typesystem.SubstitutionMap, outcomes OutcomeMap)

// Outcome is the result recorded for one goal.
type Outcome struct {
	Kind         OutcomeKind
	Subordinates []GoalID
	Diagnose     DiagnoseFunc
}

func success() Outcome {
	return Outcome{Kind: Succeeded}
}

func failure(diagnose DiagnoseFunc) Outcome {
	return Outcome{Kind: Failed, Diagnose: diagnose}
}

func product(subordinates []GoalID, diagnose DiagnoseFunc) Outcome {
	return Outcome{Kind: Product, Subordinates: subordinates, Diagnose: diagnose}
}

// OutcomeMap is the parallel list of outcomes, indexed by GoalID.
type OutcomeMap []Outcome

// Succeeded reports whether goal id succeeded; a product succeeds iff all
// its subordinates do.
func (m OutcomeMap) Succeeded(id GoalID) bool {
	o := m[id]
	switch o.Kind {
	case Succeeded:
		return true
	case Product:
		for _, sub := range o.Subordinates {
			if !m.Succeeded(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Decided reports whether goal id has a final outcome.
func (m OutcomeMap) Decided(id GoalID) bool {
	o := m[id]
	switch o.Kind {
	case Succeeded, Failed:
		return true
	case Product:
		for _, sub := range o.Subordinates {
			if !m.Decided(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
