// Package synth generates the default deinitializers and move operators
// a conformance demands. Implementations are created on first use and
// lowered through the same builder as ordinary functions.
package synth

import (
	"github.com/veldlang/veld/internal/config"
	"github.com/veldlang/veld/internal/ir"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// Kind selects the synthesized implementation.
type Kind uint8

const (
	DeinitKind Kind = iota
	// MoveInitKind initializes empty storage from a consumed source.
	MoveInitKind
	// MoveAssignKind replaces initialized storage with a consumed
	// source.
	MoveAssignKind
)

type key struct {
	model typesystem.DeclRef
	kind  Kind
}

// Synthesizer builds synthetic implementations into a module. It has no
// process-global state; one synthesizer serves one module.
type Synthesizer struct {
	module *ir.Module
	prog   *program.Program
	made   map[key]*ir.Function
}

// New returns a synthesizer emitting into m.
func New(m *ir.Module, p *program.Program) *Synthesizer {
	return &Synthesizer{module: m, prog: p, made: make(map[key]*ir.Function)}
}

// Deinit returns the synthesized deinitializer for the product declared
// by model, creating it on first demand.
func (s *Synthesizer) Deinit(model typesystem.DeclRef, site source.Site) *ir.Function {
	if f, ok := s.made[key{model, DeinitKind}]; ok {
		return f
	}

	d := s.prog.DeclOf(model)
	self := typesystem.TProduct{Decl: model, Name: d.Name}
	selfParam := typesystem.TParameter{Access: typesystem.Sink, Bare: self}
	declRef := s.prog.Declare(program.Decl{
		Name: d.Name + "." + config.DeinitMethodName,
		Site: site,
		Type: typesystem.TLambda{
			Inputs: []typesystem.CallableParam{{Label: "self", Type: selfParam}},
			Output: typesystem.TTuple{},
		},
	})

	f := s.module.FunctionFor(declRef, func() *ir.Function {
		return &ir.Function{
			Name:   d.Name + "." + config.DeinitMethodName,
			Site:   site,
			Inputs: []ir.Param{{Label: "self", Type: selfParam}},
			Output: typesystem.TTuple{},
		}
	})
	s.module.AppendBlock(f, []typesystem.Type{selfParam, typesystem.TTuple{}})

	b := ir.NewBuilder(s.module, f)
	selfAddr := ir.ParameterOperand(f.Entry(), 0)
	ret := ir.ParameterOperand(f.Entry(), 1)

	access := b.Access(typesystem.EffectSet(typesystem.Sink), selfAddr, site)
	for i, field := range d.Fields {
		view := b.SubfieldView(access, i, field.Type, site)
		b.Deinit(view, site)
	}
	b.EndAccess(access, site)
	b.Initialize(ir.ConstantOperand(ir.UnitConstant{}), ret, site)
	b.Return(site)

	s.made[key{model, DeinitKind}] = f
	return f
}

// Move returns the synthesized move operator for model: initialization
// from a consumed source when kind is MoveInitKind, assignment when it
// is MoveAssignKind.
func (s *Synthesizer) Move(model typesystem.DeclRef, kind Kind, site source.Site) *ir.Function {
	if f, ok := s.made[key{model, kind}]; ok {
		return f
	}

	d := s.prog.DeclOf(model)
	self := typesystem.TProduct{Decl: model, Name: d.Name}
	receiverAccess := typesystem.Set
	if kind == MoveAssignKind {
		receiverAccess = typesystem.Inout
	}
	selfParam := typesystem.TParameter{Access: receiverAccess, Bare: self}
	sourceParam := typesystem.TParameter{Access: typesystem.Sink, Bare: self}
	name := d.Name + "." + config.MoveOperatorName + "." + receiverAccess.String()

	declRef := s.prog.Declare(program.Decl{
		Name: name,
		Site: site,
		Type: typesystem.TLambda{
			Inputs: []typesystem.CallableParam{
				{Label: "self", Type: selfParam},
				{Label: "source", Type: sourceParam},
			},
			Output: typesystem.TTuple{},
		},
	})

	f := s.module.FunctionFor(declRef, func() *ir.Function {
		return &ir.Function{
			Name: name,
			Site: site,
			Inputs: []ir.Param{
				{Label: "self", Type: selfParam},
				{Label: "source", Type: sourceParam},
			},
			Output: typesystem.TTuple{},
		}
	})
	s.module.AppendBlock(f, []typesystem.Type{selfParam, sourceParam, typesystem.TTuple{}})

	b := ir.NewBuilder(s.module, f)
	selfAddr := ir.ParameterOperand(f.Entry(), 0)
	sourceAddr := ir.ParameterOperand(f.Entry(), 1)
	ret := ir.ParameterOperand(f.Entry(), 2)

	receiver := b.Access(typesystem.EffectSet(receiverAccess), selfAddr, site)
	if kind == MoveAssignKind {
		b.Deinit(receiver, site)
	}
	consumed := b.Access(typesystem.EffectSet(typesystem.Sink), sourceAddr, site)
	value := b.Load(consumed, site)
	b.Initialize(value, receiver, site)
	b.EndAccess(consumed, site)
	b.EndAccess(receiver, site)
	b.Initialize(ir.ConstantOperand(ir.UnitConstant{}), ret, site)
	b.Return(site)

	s.made[key{model, kind}] = f
	return f
}
