package solver

import (
	"fmt"
	"strings"

	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/typesystem"
)

// Goal is one constraint tracked by the solver. Goals are immutable
// values; reification returns an updated copy.
type Goal interface {
	Origin() Origin
	String() string

	// reified applies m to the goal's types, keeping unresolved
	// variables.
	reified(m *typesystem.SubstitutionMap) Goal

	// mentions returns the open variables the goal's types refer to.
	mentions() []typesystem.VarID

	// simplicity orders the fresh list: lower values sit toward the tail
	// and solve first. Equality is simplest; disjunctions rank by width.
	simplicity() int
}

func reifyAll(m *typesystem.SubstitutionMap, types ...typesystem.Type) []typesystem.Type {
	out := make([]typesystem.Type, len(types))
	for i, t := range types {
		if t == nil {
			continue
		}
		out[i] = m.Reify(t, true)
	}
	return out
}

func mentionsOf(types ...typesystem.Type) []typesystem.VarID {
	seen := map[typesystem.VarID]bool{}
	vars := []typesystem.VarID{}
	for _, t := range types {
		if t == nil {
			continue
		}
		for _, v := range typesystem.FreeVariables(t) {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// GEquality requires two types to unify.
type GEquality struct {
	origin Origin
	L, R   typesystem.Type
}

func (g GEquality) Origin() Origin { return g.origin }
func (g GEquality) String() string { return fmt.Sprintf("%s == %s", g.L, g.R) }
func (g GEquality) simplicity() int { return 0 }
func (g GEquality) mentions() []typesystem.VarID {
	return mentionsOf(g.L, g.R)
}
func (g GEquality) reified(m *typesystem.SubstitutionMap) Goal {
	ts := reifyAll(m, g.L, g.R)
	return GEquality{origin: g.origin, L: ts[0], R: ts[1]}
}

// GSubtyping requires L to be a subtype of R; when Strict, equivalence
// does not satisfy the goal.
type GSubtyping struct {
	origin Origin
	L, R   typesystem.Type
	Strict bool
}

func (g GSubtyping) Origin() Origin { return g.origin }
func (g GSubtyping) String() string {
	op := "<="
	if g.Strict {
		op = "<"
	}
	return fmt.Sprintf("%s %s %s", g.L, op, g.R)
}
func (g GSubtyping) simplicity() int { return 2 }
func (g GSubtyping) mentions() []typesystem.VarID {
	return mentionsOf(g.L, g.R)
}
func (g GSubtyping) reified(m *typesystem.SubstitutionMap) Goal {
	ts := reifyAll(m, g.L, g.R)
	return GSubtyping{origin: g.origin, L: ts[0], R: ts[1], Strict: g.Strict}
}

// GConformance requires the model to conform to a concept.
type GConformance struct {
	origin  Origin
	Model   typesystem.Type
	Concept typesystem.TraitRef
}

func (g GConformance) Origin() Origin { return g.origin }
func (g GConformance) String() string {
	return fmt.Sprintf("%s : %s", g.Model, g.Concept.Name)
}
func (g GConformance) simplicity() int { return 2 }
func (g GConformance) mentions() []typesystem.VarID {
	return mentionsOf(g.Model)
}
func (g GConformance) reified(m *typesystem.SubstitutionMap) Goal {
	ts := reifyAll(m, g.Model)
	return GConformance{origin: g.origin, Model: ts[0], Concept: g.Concept}
}

// GParameter requires an argument of type L to be passable to a parameter
// of type R.
type GParameter struct {
	origin Origin
	L, R   typesystem.Type
}

func (g GParameter) Origin() Origin { return g.origin }
func (g GParameter) String() string { return fmt.Sprintf("%s -> param %s", g.L, g.R) }
func (g GParameter) simplicity() int { return 2 }
func (g GParameter) mentions() []typesystem.VarID {
	return mentionsOf(g.L, g.R)
}
func (g GParameter) reified(m *typesystem.SubstitutionMap) Goal {
	ts := reifyAll(m, g.L, g.R)
	return GParameter{origin: g.origin, L: ts[0], R: ts[1]}
}

// GMember requires Subject to expose a member with the given name whose
// type unifies with MemberType.
type GMember struct {
	origin     Origin
	Subject    typesystem.Type
	Name       string
	MemberType typesystem.Type
	MemberExpr program.ExprID
	Purpose    program.Purpose
}

func (g GMember) Origin() Origin { return g.origin }
func (g GMember) String() string {
	return fmt.Sprintf("%s.%s == %s", g.Subject, g.Name, g.MemberType)
}
func (g GMember) simplicity() int { return 3 }
func (g GMember) mentions() []typesystem.VarID {
	return mentionsOf(g.Subject, g.MemberType)
}
func (g GMember) reified(m *typesystem.SubstitutionMap) Goal {
	ts := reifyAll(m, g.Subject, g.MemberType)
	g.Subject, g.MemberType = ts[0], ts[1]
	return g
}

// GTupleMember requires Subject to be a tuple whose Index-th element
// unifies with ElementType.
type GTupleMember struct {
	origin      Origin
	Subject     typesystem.Type
	Index       int
	ElementType typesystem.Type
}

func (g GTupleMember) Origin() Origin { return g.origin }
func (g GTupleMember) String() string {
	return fmt.Sprintf("%s.%d == %s", g.Subject, g.Index, g.ElementType)
}
func (g GTupleMember) simplicity() int { return 3 }
func (g GTupleMember) mentions() []typesystem.VarID {
	return mentionsOf(g.Subject, g.ElementType)
}
func (g GTupleMember) reified(m *typesystem.SubstitutionMap) Goal {
	ts := reifyAll(m, g.Subject, g.ElementType)
	g.Subject, g.ElementType = ts[0], ts[1]
	return g
}

// Argument is one labeled argument of a call goal.
type Argument struct {
	Label string
	Type  typesystem.Type
}

// GCall requires Callee to be callable with the given arguments and to
// produce Output. Arrow selects function application over subscripting.
type GCall struct {
	origin    Origin
	Callee    typesystem.Type
	Arguments []Argument
	Output    typesystem.Type
	Arrow     bool
}

func (g GCall) Origin() Origin { return g.origin }
func (g GCall) String() string {
	args := []string{}
	for _, a := range g.Arguments {
		if a.Label != "" {
			args = append(args, fmt.Sprintf("%s: %s", a.Label, a.Type))
		} else {
			args = append(args, a.Type.String())
		}
	}
	call := fmt.Sprintf("%s(%s) == %s", g.Callee, strings.Join(args, ", "), g.Output)
	if !g.Arrow {
		call = fmt.Sprintf("%s[%s] == %s", g.Callee, strings.Join(args, ", "), g.Output)
	}
	return call
}
func (g GCall) simplicity() int { return 3 }
func (g GCall) mentions() []typesystem.VarID {
	types := []typesystem.Type{g.Callee, g.Output}
	for _, a := range g.Arguments {
		types = append(types, a.Type)
	}
	return mentionsOf(types...)
}
func (g GCall) reified(m *typesystem.SubstitutionMap) Goal {
	args := make([]Argument, len(g.Arguments))
	for i, a := range g.Arguments {
		args[i] = Argument{Label: a.Label, Type: m.Reify(a.Type, true)}
	}
	g.Callee = m.Reify(g.Callee, true)
	g.Output = m.Reify(g.Output, true)
	g.Arguments = args
	return g
}

// GMerging joins conditional branches under a shared supertype.
type GMerging struct {
	origin    Origin
	Supertype typesystem.Type
	Branches  []typesystem.Type
}

func (g GMerging) Origin() Origin { return g.origin }
func (g GMerging) String() string {
	parts := []string{}
	for _, b := range g.Branches {
		parts = append(parts, b.String())
	}
	return fmt.Sprintf("merge(%s) == %s", strings.Join(parts, ", "), g.Supertype)
}
func (g GMerging) simplicity() int { return 3 }
func (g GMerging) mentions() []typesystem.VarID {
	types := append([]typesystem.Type{g.Supertype}, g.Branches...)
	return mentionsOf(types...)
}
func (g GMerging) reified(m *typesystem.SubstitutionMap) Goal {
	branches := make([]typesystem.Type, len(g.Branches))
	for i, b := range g.Branches {
		branches[i] = m.Reify(b, true)
	}
	g.Supertype = m.Reify(g.Supertype, true)
	g.Branches = branches
	return g
}

// Choice is one alternative of a disjunction: a constraint set and the
// penalty taking it incurs.
type Choice struct {
	Constraints []Goal
	Penalty     int
}

// GDisjunction explores alternative constraint sets, keeping the least
// penalized sound solution.
type GDisjunction struct {
	origin  Origin
	Choices []Choice
}

func (g GDisjunction) Origin() Origin { return g.origin }
func (g GDisjunction) String() string {
	parts := []string{}
	for _, c := range g.Choices {
		inner := []string{}
		for _, sub := range c.Constraints {
			inner = append(inner, sub.String())
		}
		parts = append(parts, fmt.Sprintf("{%s}:%d", strings.Join(inner, " and "), c.Penalty))
	}
	return "either " + strings.Join(parts, " or ")
}
func (g GDisjunction) simplicity() int { return 10 + len(g.Choices) }
func (g GDisjunction) mentions() []typesystem.VarID {
	seen := map[typesystem.VarID]bool{}
	vars := []typesystem.VarID{}
	for _, c := range g.Choices {
		for _, sub := range c.Constraints {
			for _, v := range sub.mentions() {
				if !seen[v] {
					seen[v] = true
					vars = append(vars, v)
				}
			}
		}
	}
	return vars
}
func (g GDisjunction) reified(m *typesystem.SubstitutionMap) Goal {
	choices := make([]Choice, len(g.Choices))
	for i, c := range g.Choices {
		subs := make([]Goal, len(c.Constraints))
		for j, sub := range c.Constraints {
			subs[j] = sub.reified(m)
		}
		choices[i] = Choice{Constraints: subs, Penalty: c.Penalty}
	}
	g.Choices = choices
	return g
}

// OverloadCandidate is one alternative binding of an overloaded name.
type OverloadCandidate struct {
	Reference   typesystem.DeclRef
	Constraints []Goal
	Penalty     int
}

// GOverload explores alternative bindings for an overloaded name
// expression, recording the chosen declaration in the solution.
type GOverload struct {
	origin     Origin
	Expr       program.ExprID
	Type       typesystem.Type
	Candidates []OverloadCandidate
}

func (g GOverload) Origin() Origin { return g.origin }
func (g GOverload) String() string {
	return fmt.Sprintf("overload expr#%d (%d candidates) == %s", g.Expr, len(g.Candidates), g.Type)
}
func (g GOverload) simplicity() int { return 10 + len(g.Candidates) }
func (g GOverload) mentions() []typesystem.VarID {
	seen := map[typesystem.VarID]bool{}
	vars := []typesystem.VarID{}
	add := func(vs []typesystem.VarID) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	add(mentionsOf(g.Type))
	for _, c := range g.Candidates {
		for _, sub := range c.Constraints {
			add(sub.mentions())
		}
	}
	return vars
}
func (g GOverload) reified(m *typesystem.SubstitutionMap) Goal {
	cands := make([]OverloadCandidate, len(g.Candidates))
	for i, c := range g.Candidates {
		subs := make([]Goal, len(c.Constraints))
		for j, sub := range c.Constraints {
			subs[j] = sub.reified(m)
		}
		cands[i] = OverloadCandidate{Reference: c.Reference, Constraints: subs, Penalty: c.Penalty}
	}
	g.Type = m.Reify(g.Type, true)
	g.Candidates = cands
	return g
}

// Constructors used by callers seeding a constraint system.

func NewEquality(origin Origin, l, r typesystem.Type) GEquality {
	return GEquality{origin: origin, L: l, R: r}
}

func NewSubtyping(origin Origin, l, r typesystem.Type, strict bool) GSubtyping {
	return GSubtyping{origin: origin, L: l, R: r, Strict: strict}
}

func NewConformance(origin Origin, model typesystem.Type, concept typesystem.TraitRef) GConformance {
	return GConformance{origin: origin, Model: model, Concept: concept}
}

func NewParameter(origin Origin, l, r typesystem.Type) GParameter {
	return GParameter{origin: origin, L: l, R: r}
}

func NewMember(origin Origin, subject typesystem.Type, name string, memberType typesystem.Type, expr program.ExprID, purpose program.Purpose) GMember {
	return GMember{origin: origin, Subject: subject, Name: name, MemberType: memberType, MemberExpr: expr, Purpose: purpose}
}

func NewTupleMember(origin Origin, subject typesystem.Type, index int, elementType typesystem.Type) GTupleMember {
	return GTupleMember{origin: origin, Subject: subject, Index: index, ElementType: elementType}
}

func NewCall(origin Origin, callee typesystem.Type, arguments []Argument, output typesystem.Type, arrow bool) GCall {
	return GCall{origin: origin, Callee: callee, Arguments: arguments, Output: output, Arrow: arrow}
}

func NewMerging(origin Origin, supertype typesystem.Type, branches []typesystem.Type) GMerging {
	return GMerging{origin: origin, Supertype: supertype, Branches: branches}
}

func NewDisjunction(origin Origin, choices []Choice) GDisjunction {
	return GDisjunction{origin: origin, Choices: choices}
}

func NewOverload(origin Origin, expr program.ExprID, t typesystem.Type, candidates []OverloadCandidate) GOverload {
	return GOverload{origin: origin, Expr: expr, Type: t, Candidates: candidates}
}
