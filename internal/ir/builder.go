package ir

import (
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// Builder emits instructions at an insertion point, keeping the module's
// use chains consistent. The synthesizer and the normal emitter share it.
type Builder struct {
	m     *Module
	fn    *Function
	block *Block
}

// NewBuilder returns a builder positioned at the end of f's entry block,
// if any.
func NewBuilder(m *Module, f *Function) *Builder {
	return &Builder{m: m, fn: f, block: f.Entry()}
}

// Module returns the module under construction.
func (b *Builder) Module() *Module { return b.m }

// Function returns the function under construction.
func (b *Builder) Function() *Function { return b.fn }

// InsertionBlock returns the block instructions are appended to.
func (b *Builder) InsertionBlock() *Block { return b.block }

// At moves the insertion point to the end of block.
func (b *Builder) At(block *Block) { b.block = block }

// AppendBlock adds a block to the function and returns it.
func (b *Builder) AppendBlock(params []typesystem.Type) *Block {
	return b.m.AppendBlock(b.fn, params)
}

func (b *Builder) emit(inst *Instruction) *Instruction {
	return b.m.Append(b.block, inst)
}

// AllocStack reserves storage for a value of type t.
func (b *Builder) AllocStack(t typesystem.Type, site source.Site) Operand {
	return RegisterOperand(b.emit(&Instruction{Op: OpAllocStack, Result: t, Site: site}))
}

// Access borrows src with the given capability request.
func (b *Builder) Access(request typesystem.AccessEffectSet, src Operand, site source.Site) Operand {
	inst := b.emit(&Instruction{
		Op:       OpAccess,
		Operands: []Operand{src},
		Result:   src.Type(),
		Request:  request,
		Site:     site,
	})
	return RegisterOperand(inst)
}

// EndAccess closes the borrow opened by access.
func (b *Builder) EndAccess(access Operand, site source.Site) {
	b.emit(&Instruction{Op: OpEndAccess, Operands: []Operand{access}, Site: site})
}

// Move emits the move pseudo-instruction from source to the storage at
// target. Normalization later decides initialization versus assignment.
func (b *Builder) Move(source, target Operand, site source.Site) {
	b.emit(&Instruction{Op: OpMove, Operands: []Operand{source, target}, Site: site})
}

// Initialize stores source into the uninitialized storage at target.
func (b *Builder) Initialize(source, target Operand, site source.Site) {
	b.emit(&Instruction{Op: OpInitialize, Operands: []Operand{source, target}, Site: site})
}

// Assign replaces the contents of target with source.
func (b *Builder) Assign(source, target Operand, site source.Site) {
	b.emit(&Instruction{Op: OpAssign, Operands: []Operand{source, target}, Site: site})
}

// Load reads the value at addr.
func (b *Builder) Load(addr Operand, site source.Site) Operand {
	return RegisterOperand(b.emit(&Instruction{Op: OpLoad, Operands: []Operand{addr}, Result: addr.Type(), Site: site}))
}

// Store writes value to addr.
func (b *Builder) Store(value, addr Operand, site source.Site) {
	b.emit(&Instruction{Op: OpStore, Operands: []Operand{value, addr}, Site: site})
}

// Call applies callee; the return storage address comes last.
func (b *Builder) Call(callee typesystem.DeclRef, args []Operand, site source.Site) {
	b.emit(&Instruction{Op: OpCall, Operands: args, Callee: callee, Site: site})
}

// Project opens a projection of addr with the given capability.
func (b *Builder) Project(request typesystem.AccessEffectSet, addr Operand, site source.Site) Operand {
	inst := b.emit(&Instruction{
		Op:       OpProject,
		Operands: []Operand{addr},
		Result:   addr.Type(),
		Request:  request,
		Site:     site,
	})
	return RegisterOperand(inst)
}

// EndProject closes the projection opened by projection.
func (b *Builder) EndProject(projection Operand, site source.Site) {
	b.emit(&Instruction{Op: OpEndProject, Operands: []Operand{projection}, Site: site})
}

// SubfieldView computes the address of a stored part of the record at
// addr.
func (b *Builder) SubfieldView(addr Operand, field int, fieldType typesystem.Type, site source.Site) Operand {
	inst := b.emit(&Instruction{
		Op:       OpSubfieldView,
		Operands: []Operand{addr},
		Result:   fieldType,
		Field:    field,
		Site:     site,
	})
	return RegisterOperand(inst)
}

// Deinit destroys the value at addr.
func (b *Builder) Deinit(addr Operand, site source.Site) {
	b.emit(&Instruction{Op: OpDeinit, Operands: []Operand{addr}, Site: site})
}

// Branch jumps to dest.
func (b *Builder) Branch(dest *Block, site source.Site) {
	b.emit(&Instruction{Op: OpBranch, Successors: []*Block{dest}, Site: site})
}

// CondBranch jumps to then when cond holds a non-zero word, to els
// otherwise.
func (b *Builder) CondBranch(cond Operand, then, els *Block, site source.Site) {
	b.emit(&Instruction{Op: OpCondBranch, Operands: []Operand{cond}, Successors: []*Block{then, els}, Site: site})
}

// Return exits the function.
func (b *Builder) Return(site source.Site) {
	b.emit(&Instruction{Op: OpReturn, Site: site})
}

// Unreachable marks dead control flow.
func (b *Builder) Unreachable(site source.Site) {
	b.emit(&Instruction{Op: OpUnreachable, Site: site})
}
