package ir

import (
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// Op identifies the operation an instruction performs.
type Op uint8

const (
	// OpAllocStack reserves uninitialized storage for a value of the
	// result type and yields its address.
	OpAllocStack Op = iota

	// OpAccess borrows the address in operand 0 with one of the
	// capabilities in the instruction's request set. Abstract accesses
	// carry more than one capability until reification picks one.
	OpAccess

	// OpEndAccess closes the borrow opened by the access in operand 0.
	OpEndAccess

	// OpMove is the pseudo-instruction for `target = source` before
	// object states are known. Normalization rewrites it to
	// OpInitialize or OpAssign. Operand 0 is the source, operand 1 the
	// target address.
	OpMove

	// OpInitialize stores operand 0 into the uninitialized storage at
	// operand 1.
	OpInitialize

	// OpAssign replaces the initialized contents of operand 1 with
	// operand 0.
	OpAssign

	// OpLoad reads the value at the address in operand 0. The storage is
	// left moved-from only when the address comes from a sink access.
	OpLoad

	// OpStore writes the value in operand 0 to the address in operand 1.
	OpStore

	// OpCall applies the callee to its arguments; the last operand is
	// the return storage address.
	OpCall

	// OpProject opens a projection of the address in operand 0.
	OpProject

	// OpEndProject closes the projection opened by operand 0.
	OpEndProject

	// OpProjectBundle applies a subscript bundle to its arguments.
	OpProjectBundle

	// OpSubfieldView computes the address of a stored part of the record
	// at operand 0.
	OpSubfieldView

	// OpAdvanceByBytes offsets the address in operand 0.
	OpAdvanceByBytes

	// OpWrapExistentialAddr wraps the address in operand 0 into an
	// existential container address.
	OpWrapExistentialAddr

	// OpDeinit destroys the value at the address in operand 0, leaving
	// the storage uninitialized.
	OpDeinit

	// OpBranch jumps to its sole successor.
	OpBranch

	// OpCondBranch jumps to successor 0 when operand 0 holds a non-zero
	// word, to successor 1 otherwise.
	OpCondBranch

	// OpReturn exits the function.
	OpReturn

	// OpUnreachable marks a point control flow cannot reach.
	OpUnreachable
)

func (op Op) String() string {
	switch op {
	case OpAllocStack:
		return "alloc_stack"
	case OpAccess:
		return "access"
	case OpEndAccess:
		return "end_access"
	case OpMove:
		return "move"
	case OpInitialize:
		return "initialize"
	case OpAssign:
		return "assign"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpCall:
		return "call"
	case OpProject:
		return "project"
	case OpEndProject:
		return "end_project"
	case OpProjectBundle:
		return "project_bundle"
	case OpSubfieldView:
		return "subfield_view"
	case OpAdvanceByBytes:
		return "advance_by_bytes"
	case OpWrapExistentialAddr:
		return "wrap_existential_addr"
	case OpDeinit:
		return "deinit"
	case OpBranch:
		return "branch"
	case OpCondBranch:
		return "cond_branch"
	case OpReturn:
		return "return"
	case OpUnreachable:
		return "unreachable"
	default:
		return "invalid"
	}
}

// Instruction is one operation in a block.
type Instruction struct {
	Op       Op
	Operands []Operand

	// Result is the type of the register the instruction defines, nil
	// when it defines none.
	Result typesystem.Type

	Site source.Site

	// Request is the set of capabilities an access may use; a reified
	// access has exactly one.
	Request typesystem.AccessEffectSet

	// Field is the selected part for subfield_view.
	Field int

	// Offset is the byte distance for advance_by_bytes.
	Offset int64

	// Callee is the applied declaration for call and project_bundle.
	Callee typesystem.DeclRef

	// Successors are the targets of a terminator.
	Successors []*Block

	parent *Block
}

// Parent returns the block holding the instruction, nil if detached.
func (i *Instruction) Parent() *Block { return i.parent }

// IsTerminator reports whether the instruction ends a block.
func (i *Instruction) IsTerminator() bool {
	switch i.Op {
	case OpBranch, OpCondBranch, OpReturn, OpUnreachable:
		return true
	default:
		return false
	}
}

// IsPure reports whether the instruction has no effect besides its
// result, making it removable when unused.
func (i *Instruction) IsPure() bool {
	switch i.Op {
	case OpAllocStack, OpLoad, OpSubfieldView, OpAdvanceByBytes, OpWrapExistentialAddr:
		return true
	default:
		return false
	}
}

// IsReifiedAccess reports whether an access requests exactly one
// capability.
func (i *Instruction) IsReifiedAccess() bool {
	if i.Op != OpAccess {
		return false
	}
	n := 0
	for _, e := range []typesystem.AccessEffect{typesystem.Let, typesystem.Inout, typesystem.Sink, typesystem.Set, typesystem.Yielded} {
		if i.Request.Contains(e) {
			n++
		}
	}
	return n == 1
}

// AccessCapability returns the single capability of a reified access.
func (i *Instruction) AccessCapability() typesystem.AccessEffect {
	for _, e := range []typesystem.AccessEffect{typesystem.Sink, typesystem.Set, typesystem.Inout, typesystem.Let, typesystem.Yielded} {
		if i.Request.Contains(e) {
			return e
		}
	}
	return typesystem.Let
}
