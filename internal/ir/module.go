package ir

import (
	"fmt"

	"github.com/veldlang/veld/internal/typesystem"
)

// Module owns a set of functions and the def-use chains of their
// instructions. Every mutation goes through the module so the `uses` map
// stays consistent.
type Module struct {
	Name      string
	Functions []*Function

	byDecl map[typesystem.DeclRef]*Function
	uses   map[Operand][]Use
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:   name,
		byDecl: make(map[typesystem.DeclRef]*Function),
		uses:   make(map[Operand][]Use),
	}
}

// FunctionFor returns the function lowering decl, creating it on first
// use with the given shape.
func (m *Module) FunctionFor(decl typesystem.DeclRef, build func() *Function) *Function {
	if f, ok := m.byDecl[decl]; ok {
		return f
	}
	f := build()
	f.Decl = decl
	m.Functions = append(m.Functions, f)
	m.byDecl[decl] = f
	return f
}

// AppendBlock adds a block with the given parameters to f.
func (m *Module) AppendBlock(f *Function, params []typesystem.Type) *Block {
	b := &Block{Fn: f, Index: len(f.Blocks), Params: params}
	f.Blocks = append(f.Blocks, b)
	return b
}

// UsesOf returns the recorded uses of o, in insertion order.
func (m *Module) UsesOf(o Operand) []Use {
	return m.uses[o]
}

func (m *Module) recordUses(inst *Instruction) {
	for i, o := range inst.Operands {
		m.uses[o] = append(m.uses[o], Use{User: inst, Index: i})
	}
}

func (m *Module) eraseUses(inst *Instruction) {
	for i, o := range inst.Operands {
		list := m.uses[o]
		for j, u := range list {
			if u.User == inst && u.Index == i {
				m.uses[o] = append(list[:j], list[j+1:]...)
				break
			}
		}
		if len(m.uses[o]) == 0 {
			delete(m.uses, o)
		}
	}
}

// Append inserts inst at the end of b.
func (m *Module) Append(b *Block, inst *Instruction) *Instruction {
	inst.parent = b
	b.Instrs = append(b.Instrs, inst)
	m.recordUses(inst)
	return inst
}

// Prepend inserts inst at the beginning of b.
func (m *Module) Prepend(b *Block, inst *Instruction) *Instruction {
	inst.parent = b
	b.Instrs = append([]*Instruction{inst}, b.Instrs...)
	m.recordUses(inst)
	return inst
}

// InsertBefore inserts inst immediately before anchor.
func (m *Module) InsertBefore(inst, anchor *Instruction) *Instruction {
	b := anchor.parent
	at := b.indexOf(anchor)
	if at < 0 {
		panic("anchor is not in a block")
	}
	inst.parent = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[at+1:], b.Instrs[at:])
	b.Instrs[at] = inst
	m.recordUses(inst)
	return inst
}

// InsertAfter inserts inst immediately after anchor.
func (m *Module) InsertAfter(inst, anchor *Instruction) *Instruction {
	b := anchor.parent
	at := b.indexOf(anchor)
	if at < 0 {
		panic("anchor is not in a block")
	}
	inst.parent = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[at+2:], b.Instrs[at+1:])
	b.Instrs[at+1] = inst
	m.recordUses(inst)
	return inst
}

// Replace substitutes new for old at the same position, migrating the
// uses of old's register. Both instructions must define the same result
// type.
func (m *Module) Replace(old, new *Instruction) {
	if !resultTypesMatch(old, new) {
		panic(fmt.Sprintf("replacement changes result type of %s", old.Op))
	}
	b := old.parent
	at := b.indexOf(old)
	if at < 0 {
		panic("replaced instruction is not in a block")
	}
	m.eraseUses(old)
	new.parent = b
	b.Instrs[at] = new
	m.recordUses(new)

	if old.Result != nil {
		m.migrateUses(RegisterOperand(old), RegisterOperand(new), nil)
	}
	old.parent = nil
}

func resultTypesMatch(a, b *Instruction) bool {
	if (a.Result == nil) != (b.Result == nil) {
		return false
	}
	if a.Result == nil {
		return true
	}
	return typesystem.AreStructurallyEqual(a.Result, b.Result)
}

// ReplaceUses rewrites every use of old inside fn to refer to new. The
// operands must have identical types.
func (m *Module) ReplaceUses(old, new Operand, fn *Function) {
	if !typesystem.AreStructurallyEqual(old.Type(), new.Type()) {
		panic("replacing uses across different types")
	}
	m.migrateUses(old, new, fn)
}

func (m *Module) migrateUses(old, new Operand, fn *Function) {
	var kept []Use
	moved := []Use{}
	for _, u := range m.uses[old] {
		if fn != nil && u.User.parent != nil && u.User.parent.Fn != fn {
			kept = append(kept, u)
			continue
		}
		u.User.Operands[u.Index] = new
		moved = append(moved, u)
	}
	if len(kept) == 0 {
		delete(m.uses, old)
	} else {
		m.uses[old] = kept
	}
	m.uses[new] = append(m.uses[new], moved...)
}

// ReplaceOperand rewrites the index-th operand of user, keeping the use
// chain consistent. All in-place operand rewrites go through here.
func (m *Module) ReplaceOperand(user *Instruction, index int, new Operand) {
	old := user.Operands[index]
	list := m.uses[old]
	for j, u := range list {
		if u.User == user && u.Index == index {
			m.uses[old] = append(list[:j], list[j+1:]...)
			break
		}
	}
	if len(m.uses[old]) == 0 {
		delete(m.uses, old)
	}
	user.Operands[index] = new
	m.uses[new] = append(m.uses[new], Use{User: user, Index: index})
}

// Remove deletes inst from its block. The instruction's result must be
// unused.
func (m *Module) Remove(inst *Instruction) {
	if inst.Result != nil && len(m.uses[RegisterOperand(inst)]) > 0 {
		panic(fmt.Sprintf("removing %s whose result is in use", inst.Op))
	}
	b := inst.parent
	at := b.indexOf(inst)
	if at < 0 {
		panic("removed instruction is not in a block")
	}
	m.eraseUses(inst)
	b.Instrs = append(b.Instrs[:at], b.Instrs[at+1:]...)
	inst.parent = nil
}

// RemoveBlock deletes b and its instructions from its function.
func (m *Module) RemoveBlock(b *Block) {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		m.eraseUses(b.Instrs[i])
		b.Instrs[i].parent = nil
	}
	b.Instrs = nil
	f := b.Fn
	for i, other := range f.Blocks {
		if other == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			break
		}
	}
	for i, other := range f.Blocks {
		other.Index = i
	}
}

// Provenances returns the set of original operands from which the
// address o derives. Addressing instructions recurse into their source
// address; anything else is its own provenance.
func (m *Module) Provenances(o Operand) []Operand {
	seen := map[Operand]bool{}
	var out []Operand
	var walk func(Operand)
	walk = func(o Operand) {
		if seen[o] {
			return
		}
		seen[o] = true
		if o.Inst == nil {
			out = append(out, o)
			return
		}
		switch o.Inst.Op {
		case OpAccess, OpProject, OpProjectBundle, OpSubfieldView, OpAdvanceByBytes, OpWrapExistentialAddr:
			for _, src := range o.Inst.Operands {
				walk(src)
			}
		default:
			out = append(out, o)
		}
	}
	walk(o)
	return out
}

// IsSink reports whether o denotes storage fn owns outright: stack
// allocations and parameters passed sink or set.
func (m *Module) IsSink(o Operand, fn *Function) bool {
	provs := m.Provenances(o)
	if len(provs) == 0 {
		return false
	}
	for _, p := range provs {
		switch {
		case p.Inst != nil && p.Inst.Op == OpAllocStack:
			// Owned storage.
		case p.Block != nil && p.Block == fn.Entry() && p.Index < len(fn.Inputs):
			access := fn.Inputs[p.Index].Type.Access
			if access != typesystem.Sink && access != typesystem.Set {
				return false
			}
		default:
			return false
		}
	}
	return true
}
