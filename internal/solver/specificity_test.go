package solver

import (
	"testing"

	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/typesystem"
)

func solutionBinding(expr program.ExprID, ref typesystem.DeclRef) *Solution {
	return &Solution{
		Substitutions: typesystem.NewSubstitutionMap(),
		Bindings:      map[program.ExprID]typesystem.DeclRef{expr: ref},
	}
}

func TestSpecificityOrdering(t *testing.T) {
	p := newProgram()
	boolDecl := p.Declare(program.Decl{Name: "Bool", Site: site(1)})
	boolT := typesystem.TProduct{Decl: boolDecl, Name: "Bool"}
	union := typesystem.TUnion{Members: []typesystem.Type{boolT, word}}

	narrow := declareConcrete(p, "f", word)
	wide := declareConcrete(p, "f", union)
	twinA := declareConcrete(p, "g", word)
	twinB := declareConcrete(p, "g", word)

	s := New(p, 0, nil)

	tests := []struct {
		name string
		a, b *Solution
		want SpecificityOrdering
	}{
		{
			name: "narrow beats wide",
			a:    solutionBinding(1, narrow),
			b:    solutionBinding(1, wide),
			want: MoreSpecific,
		},
		{
			name: "wide loses to narrow",
			a:    solutionBinding(1, wide),
			b:    solutionBinding(1, narrow),
			want: LessSpecific,
		},
		{
			name: "identical signatures are incomparable",
			a:    solutionBinding(2, twinA),
			b:    solutionBinding(2, twinB),
			want: Incomparable,
		},
		{
			name: "same binding contributes nothing",
			a:    solutionBinding(3, narrow),
			b:    solutionBinding(3, narrow),
			want: EqualSpecificity,
		},
		{
			name: "disjoint bindings are equal",
			a:    solutionBinding(4, narrow),
			b:    solutionBinding(5, wide),
			want: EqualSpecificity,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := compareSolutions(s, tc.a, tc.b); got != tc.want {
				t.Errorf("compareSolutions() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSpecificityAntisymmetry(t *testing.T) {
	// A pair that would refine in both directions must come out
	// incomparable, never mutually more specific.
	p := newProgram()
	a := declareConcrete(p, "h", word)
	b := declareConcrete(p, "h", word)
	s := New(p, 0, nil)

	ab := compareSolutions(s, solutionBinding(1, a), solutionBinding(1, b))
	ba := compareSolutions(s, solutionBinding(1, b), solutionBinding(1, a))
	if ab == MoreSpecific && ba == MoreSpecific {
		t.Fatalf("ordering is not antisymmetric")
	}
	if ab != Incomparable || ba != Incomparable {
		t.Errorf("orderings = %d and %d, want Incomparable both ways", ab, ba)
	}
}
