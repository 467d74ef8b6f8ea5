package passes

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
)

// DeadCode removes pure instructions whose results have no uses and
// blocks unreachable from the entry.
type DeadCode struct{}

func (DeadCode) Name() string { return "dead-code" }

func (DeadCode) Run(m *ir.Module, f *ir.Function, sink *diag.Sink) {
	removeUnreachable(m, f)

	changed := true
	for changed {
		changed = false
		for _, b := range f.Blocks {
			// Walk a snapshot in reverse so removing one instruction can
			// expose its operands for removal in the same sweep.
			snapshot := append([]*ir.Instruction(nil), b.Instrs...)
			for i := len(snapshot) - 1; i >= 0; i-- {
				inst := snapshot[i]
				if inst.Parent() == nil || !inst.IsPure() || inst.Result == nil {
					continue
				}
				if len(m.UsesOf(ir.RegisterOperand(inst))) == 0 {
					m.Remove(inst)
					changed = true
				}
			}
		}
	}
}

func removeUnreachable(m *ir.Module, f *ir.Function) {
	entry := f.Entry()
	if entry == nil {
		return
	}
	reachable := map[*ir.Block]bool{entry: true}
	work := []*ir.Block{entry}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, succ := range b.Successors() {
			if !reachable[succ] {
				reachable[succ] = true
				work = append(work, succ)
			}
		}
	}
	for _, b := range append([]*ir.Block(nil), f.Blocks...) {
		if !reachable[b] {
			m.RemoveBlock(b)
		}
	}
}
