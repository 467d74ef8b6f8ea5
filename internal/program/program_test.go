package program

import (
	"testing"

	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

var word = typesystem.TBuiltin{Kind: typesystem.BuiltinWord}

func TestCanonicalExpandsAliases(t *testing.T) {
	p := New(nil)
	pair := typesystem.TTuple{Elements: []typesystem.TupleElement{{Type: word}, {Type: word}}}
	alias := p.Declare(Decl{Name: "Pair", Aliased: pair})
	named := typesystem.TProduct{Decl: alias, Name: "Pair"}

	if got := p.Canonical(named); !typesystem.AreStructurallyEqual(got, pair) {
		t.Errorf("Canonical(alias) = %s, want %s", got, pair)
	}
	if !p.AreEquivalent(named, pair) {
		t.Errorf("alias and expansion should be equivalent")
	}
}

func TestConformanceScoping(t *testing.T) {
	p := New(nil)
	trait := p.Declare(Decl{Name: "Movable", IsTrait: true})
	model := p.Declare(Decl{Name: "Counter"})
	modelT := typesystem.TProduct{Decl: model, Name: "Counter"}

	p.AddConformance(modelT, trait, 3)
	if !p.HasConformance(modelT, trait, 3) {
		t.Errorf("conformance should be visible in its own scope")
	}
	if p.HasConformance(modelT, trait, 4) {
		t.Errorf("conformance should not leak into sibling scopes")
	}

	p.AddConformance(modelT, trait, 0)
	if !p.HasConformance(modelT, trait, 4) {
		t.Errorf("scope zero exposes the conformance everywhere")
	}

	traits := p.ConformedTraits(modelT, 4)
	if len(traits) != 1 || traits[0].Name != "Movable" {
		t.Errorf("ConformedTraits() = %v, want [Movable]", traits)
	}
}

func TestOpenReplacesGenericParams(t *testing.T) {
	p := New(nil)
	param := p.Declare(Decl{Name: "T"})
	generic := typesystem.TGeneric{Decl: param, Name: "T"}
	fn := p.Declare(Decl{
		Name: "identity",
		Type: typesystem.TLambda{
			Inputs: []typesystem.CallableParam{{Label: "x", Type: typesystem.TParameter{Access: typesystem.Let, Bare: generic}}},
			Output: generic,
		},
		GenericParams: []typesystem.DeclRef{param},
	})

	opened, assignment := p.Open(fn, source.Site{})
	v, ok := assignment[param]
	if !ok {
		t.Fatalf("generic parameter was not opened")
	}
	lambda, ok := opened.(typesystem.TLambda)
	if !ok {
		t.Fatalf("opened type = %T, want lambda", opened)
	}
	if !typesystem.AreStructurallyEqual(lambda.Output, v) {
		t.Errorf("output = %s, want the fresh variable %s", lambda.Output, v)
	}
	if !lambda.Output.Flags().HasVariable() {
		t.Errorf("opened output should contain a variable")
	}
}

func TestResolveUsesMemberTable(t *testing.T) {
	p := New(nil)
	recv := p.Declare(Decl{Name: "Counter"})
	recvT := typesystem.TProduct{Decl: recv, Name: "Counter"}
	method := p.Declare(Decl{Name: "bump", Type: word})

	p.AddMember(recvT, "bump", Candidate{Decl: method, Type: word})

	got := p.Resolve(recvT, "bump", 0, UsedAsFunction)
	if len(got) != 1 || got[0].Decl != method {
		t.Errorf("Resolve() = %v, want the registered candidate", got)
	}
	if missing := p.Resolve(recvT, "other", 0, UsedAsFunction); len(missing) != 0 {
		t.Errorf("Resolve(other) = %v, want empty", missing)
	}
}
