package solver

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/typesystem"
)

// Score ranks solutions lexicographically: error count first, then
// accumulated penalties.
type Score struct {
	Errors    int
	Penalties int
}

// Worst is a score no real solution reaches.
var Worst = Score{Errors: int(^uint(0) >> 1), Penalties: int(^uint(0) >> 1)}

// Less reports whether s ranks strictly better than other.
func (s Score) Less(other Score) bool {
	if s.Errors != other.Errors {
		return s.Errors < other.Errors
	}
	return s.Penalties < other.Penalties
}

// Equal reports whether both scores rank the same.
func (s Score) Equal(other Score) bool {
	return s.Errors == other.Errors && s.Penalties == other.Penalties
}

// Solution is the result of solving a constraint system.
type Solution struct {
	// Substitutions is the optimized substitution map.
	Substitutions *typesystem.SubstitutionMap

	// Bindings maps each name expression to the declaration chosen for
	// it. The map is injective per expression identity: one binding per
	// expression.
	Bindings map[program.ExprID]typesystem.DeclRef

	// Score ranks the solution.
	Score Score

	// Diagnostics collected from failing root goals.
	Diagnostics []diag.Diagnostic

	// Stale lists the goals that could not be decided.
	Stale []GoalID
}

// IsSound reports whether the solution has no errors.
func (s *Solution) IsSound() bool {
	return s.Score.Errors == 0
}

// Binding returns the declaration bound to expr, if any.
func (s *Solution) Binding(expr program.ExprID) (typesystem.DeclRef, bool) {
	ref, ok := s.Bindings[expr]
	return ref, ok
}

// TypeOf reifies t under the solution's substitutions, keeping unresolved
// variables visible.
func (s *Solution) TypeOf(t typesystem.Type) typesystem.Type {
	return s.Substitutions.Reify(t, true)
}
