// Package program exposes the typed-program query surface consumed by the
// constraint solver and the IR emitter. From the solver's perspective every
// query is pure: implementations may memoize but never mutate observable
// results mid-solve.
package program

import (
	"fmt"

	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// ExprID identifies a name expression in the AST.
type ExprID uint32

// ScopeID identifies a lexical scope.
type ScopeID uint32

// Purpose states how a resolved member is about to be used.
type Purpose uint8

const (
	UsedAsValue Purpose = iota
	UsedAsFunction
	UsedAsSubscript
	UsedAsType
)

func (p Purpose) String() string {
	switch p {
	case UsedAsValue:
		return "value"
	case UsedAsFunction:
		return "function"
	case UsedAsSubscript:
		return "subscript"
	case UsedAsType:
		return "type"
	default:
		return "unknown"
	}
}

// Decl is the program's record of one declaration.
type Decl struct {
	Name          string
	Site          source.Site
	Type          typesystem.Type
	Aliased       typesystem.Type // non-nil for typealias declarations
	GenericParams []typesystem.DeclRef
	// Fields lists the stored parts of a product declaration.
	Fields        []typesystem.TupleElement
	IsRequirement bool
	IsModuleEntry bool
	IsTrait       bool
}

// ConstraintKind tags a pending constraint induced by a candidate.
type ConstraintKind uint8

const (
	PendingEqual ConstraintKind = iota
	PendingSubtype
	PendingConforms
)

// PendingConstraint is a constraint a name-resolution candidate imposes on
// the solution that picks it. The solver turns these into goals.
type PendingConstraint struct {
	Kind    ConstraintKind
	Left    typesystem.Type
	Right   typesystem.Type
	Concept typesystem.TraitRef
}

// Candidate is one resolution of a member name.
type Candidate struct {
	Decl        typesystem.DeclRef
	Type        typesystem.Type
	Constraints []PendingConstraint
	// Diagnose explains why the candidate is not viable; nil for viable
	// candidates.
	Diagnose *diag.Diagnostic
}

// Program is the concrete typed program. Tests and the front end populate
// it; the solver only reads.
type Program struct {
	Vars *typesystem.VarSource

	decls []Decl

	// conformances maps a canonical model form to the traits it
	// explicitly conforms to, per scope (0 means every scope).
	conformances map[string]map[typesystem.DeclRef][]ScopeID

	// members maps canonical subject form plus member name to candidates.
	members map[string][]Candidate

	// Resolver, when set, overrides the member table.
	Resolver func(subject typesystem.Type, name string, scope ScopeID, purpose Purpose) []Candidate
}

// New returns an empty typed program sharing the given variable source.
func New(vars *typesystem.VarSource) *Program {
	if vars == nil {
		vars = &typesystem.VarSource{}
	}
	return &Program{
		Vars:         vars,
		conformances: make(map[string]map[typesystem.DeclRef][]ScopeID),
		members:      make(map[string][]Candidate),
	}
}

// Declare records d and returns its reference.
func (p *Program) Declare(d Decl) typesystem.DeclRef {
	p.decls = append(p.decls, d)
	return typesystem.DeclRef(len(p.decls))
}

// DeclOf returns the record behind ref.
func (p *Program) DeclOf(ref typesystem.DeclRef) Decl {
	if !ref.IsValid() || int(ref) > len(p.decls) {
		panic(fmt.Sprintf("invalid declaration reference %d", ref))
	}
	return p.decls[ref-1]
}

// DeclType returns the declared type of ref.
func (p *Program) DeclType(ref typesystem.DeclRef) typesystem.Type {
	return p.DeclOf(ref).Type
}

// DeclName returns the source name of ref.
func (p *Program) DeclName(ref typesystem.DeclRef) string {
	return p.DeclOf(ref).Name
}

// Fresh returns a type variable with a new identity.
func (p *Program) Fresh() typesystem.TVar {
	return p.Vars.Fresh()
}

// IsRequirement reports whether ref declares a trait requirement.
func (p *Program) IsRequirement(ref typesystem.DeclRef) bool {
	return p.DeclOf(ref).IsRequirement
}

// IsModuleEntry reports whether ref is the module's entry function.
func (p *Program) IsModuleEntry(ref typesystem.DeclRef) bool {
	return p.DeclOf(ref).IsModuleEntry
}

// Canonical returns the canonical form of t under the program's ambient
// relations: aliases expand, then structural canonicalization applies. An
// alias reached again inside its own expansion stays unexpanded, so cyclic
// aliases reach a fixed point.
func (p *Program) Canonical(t typesystem.Type) typesystem.Type {
	var expand func(t typesystem.Type, visiting []typesystem.DeclRef) typesystem.Type
	expand = func(t typesystem.Type, visiting []typesystem.DeclRef) typesystem.Type {
		return typesystem.Transform(t, func(u typesystem.Type) (typesystem.Type, typesystem.TransformAction) {
			if prod, ok := u.(typesystem.TProduct); ok && prod.Decl.IsValid() && int(prod.Decl) <= len(p.decls) {
				if aliased := p.decls[prod.Decl-1].Aliased; aliased != nil {
					for _, d := range visiting {
						if d == prod.Decl {
							return u, typesystem.StepOver
						}
					}
					return expand(aliased, append(visiting, prod.Decl)), typesystem.StepOver
				}
			}
			return u, typesystem.StepInto
		})
	}
	return typesystem.Canonicalize(expand(t, nil))
}

// AreEquivalent reports whether a and b are equal under the ambient
// relations.
func (p *Program) AreEquivalent(a, b typesystem.Type) bool {
	if typesystem.AreStructurallyEqual(a, b) {
		return true
	}
	return typesystem.AreStructurallyEqual(p.Canonical(a), p.Canonical(b))
}

// AddConformance records that model explicitly conforms to trait when
// exposed to scope. Scope zero makes the conformance visible everywhere.
func (p *Program) AddConformance(model typesystem.Type, trait typesystem.DeclRef, scope ScopeID) {
	key := p.Canonical(model).String()
	byTrait := p.conformances[key]
	if byTrait == nil {
		byTrait = make(map[typesystem.DeclRef][]ScopeID)
		p.conformances[key] = byTrait
	}
	byTrait[trait] = append(byTrait[trait], scope)
}

// HasConformance reports whether an explicit conformance of model to
// trait is exposed to scope.
func (p *Program) HasConformance(model typesystem.Type, trait typesystem.DeclRef, scope ScopeID) bool {
	byTrait, ok := p.conformances[p.Canonical(model).String()]
	if !ok {
		return false
	}
	scopes, ok := byTrait[trait]
	if !ok {
		return false
	}
	for _, s := range scopes {
		if s == 0 || s == scope {
			return true
		}
	}
	return false
}

// ConformedTraits returns the traits model explicitly conforms to in
// scope.
func (p *Program) ConformedTraits(model typesystem.Type, scope ScopeID) []typesystem.TraitRef {
	byTrait, ok := p.conformances[p.Canonical(model).String()]
	if !ok {
		return nil
	}
	traits := []typesystem.TraitRef{}
	for ref, scopes := range byTrait {
		for _, s := range scopes {
			if s == 0 || s == scope {
				traits = append(traits, typesystem.TraitRef{Decl: ref, Name: p.DeclOf(ref).Name})
				break
			}
		}
	}
	return traits
}

// AddMember registers a resolution candidate for name on subject.
func (p *Program) AddMember(subject typesystem.Type, name string, c Candidate) {
	key := p.memberKey(subject, name)
	p.members[key] = append(p.members[key], c)
}

func (p *Program) memberKey(subject typesystem.Type, name string) string {
	return p.Canonical(subject).String() + "." + name
}

// Resolve returns the candidate set for name on subject, exposed to
// scope, used per purpose.
func (p *Program) Resolve(subject typesystem.Type, name string, scope ScopeID, purpose Purpose) []Candidate {
	if p.Resolver != nil {
		return p.Resolver(subject, name, scope, purpose)
	}
	return p.members[p.memberKey(subject, name)]
}

// Open replaces the generic parameters of decl's type with fresh
// variables, returning the opened type and the assignment made.
func (p *Program) Open(ref typesystem.DeclRef, site source.Site) (typesystem.Type, map[typesystem.DeclRef]typesystem.TVar) {
	d := p.DeclOf(ref)
	return p.OpenType(d.Type, d.GenericParams, site)
}

// OpenType replaces occurrences of the given generic parameters inside t
// with fresh variables.
func (p *Program) OpenType(t typesystem.Type, params []typesystem.DeclRef, site source.Site) (typesystem.Type, map[typesystem.DeclRef]typesystem.TVar) {
	opened := make(map[typesystem.DeclRef]typesystem.TVar, len(params))
	for _, param := range params {
		opened[param] = p.Vars.Fresh()
	}
	result := typesystem.Transform(t, func(u typesystem.Type) (typesystem.Type, typesystem.TransformAction) {
		if g, ok := u.(typesystem.TGeneric); ok {
			if v, ok := opened[g.Decl]; ok {
				return v, typesystem.StepOver
			}
		}
		return u, typesystem.StepInto
	})
	return result, opened
}
