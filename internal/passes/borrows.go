package passes

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
)

// BorrowClosing inserts the missing end_access (or end_project) for
// every access scope, honouring block topology: a borrow closes after
// its last use, and never past the terminator of the closing block.
type BorrowClosing struct{}

func (BorrowClosing) Name() string { return "borrow-closing" }

func (BorrowClosing) Run(m *ir.Module, f *ir.Function, sink *diag.Sink) {
	for _, b := range f.Blocks {
		snapshot := append([]*ir.Instruction(nil), b.Instrs...)
		for _, inst := range snapshot {
			var closer ir.Op
			switch inst.Op {
			case ir.OpAccess:
				closer = ir.OpEndAccess
			case ir.OpProject:
				closer = ir.OpEndProject
			default:
				continue
			}
			closeBorrow(m, inst, closer)
		}
	}
}

func closeBorrow(m *ir.Module, borrow *ir.Instruction, closer ir.Op) {
	reg := ir.RegisterOperand(borrow)

	var last *ir.Instruction
	for _, u := range m.UsesOf(reg) {
		if u.User.Op == closer {
			// Already closed.
			return
		}
		if u.User.Parent() == nil {
			continue
		}
		if last == nil || after(u.User, last) {
			last = u.User
		}
	}
	if last == nil {
		last = borrow
	}

	end := &ir.Instruction{Op: closer, Operands: []ir.Operand{reg}, Site: borrow.Site}
	if last.IsTerminator() {
		m.InsertBefore(end, last)
		return
	}
	m.InsertAfter(end, last)
}

// after reports whether a executes after b, by block index then
// instruction position.
func after(a, b *ir.Instruction) bool {
	ba, bb := a.Parent(), b.Parent()
	if ba.Index != bb.Index {
		return ba.Index > bb.Index
	}
	for _, inst := range ba.Instrs {
		if inst == b {
			return true
		}
		if inst == a {
			return false
		}
	}
	return false
}
