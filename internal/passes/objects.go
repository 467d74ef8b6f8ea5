package passes

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
	"github.com/veldlang/veld/internal/typesystem"
)

// ObjectStates tracks the initialization state of each storage slot
// through the CFG, legalizes move pseudo-instructions into initialize or
// assign, and diagnoses reads from uninitialized or moved storage.
type ObjectStates struct{}

func (ObjectStates) Name() string { return "object-states" }

type slotState uint8

const (
	stateUnknown slotState = iota
	stateUninit
	stateInit
	stateMoved
)

type slotMap map[ir.Operand]slotState

func (s slotMap) clone() slotMap {
	c := make(slotMap, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func mergeStates(a, b slotMap) (slotMap, bool) {
	merged := a.clone()
	changed := false
	for k, v := range b {
		old, ok := merged[k]
		switch {
		case !ok:
			merged[k] = v
			changed = true
		case old != v:
			if old != stateUnknown {
				merged[k] = stateUnknown
				changed = true
			}
		}
	}
	return merged, changed
}

func (ObjectStates) Run(m *ir.Module, f *ir.Function, sink *diag.Sink) {
	entry := f.Entry()
	if entry == nil {
		return
	}

	// Fixpoint over block entry states.
	in := map[*ir.Block]slotMap{entry: entryState(f)}
	work := []*ir.Block{entry}
	for len(work) > 0 {
		b := work[0]
		work = work[1:]
		out := transfer(m, b, in[b].clone(), nil)
		for _, succ := range b.Successors() {
			prev, ok := in[succ]
			if !ok {
				in[succ] = out.clone()
				work = append(work, succ)
				continue
			}
			merged, changed := mergeStates(prev, out)
			if changed {
				in[succ] = merged
				work = append(work, succ)
			}
		}
	}

	// Final walk: legalize moves and report diagnostics.
	for _, b := range f.Blocks {
		state, ok := in[b]
		if !ok {
			continue
		}
		transfer(m, b, state.clone(), sink)
	}
}

func entryState(f *ir.Function) slotMap {
	state := slotMap{}
	entry := f.Entry()
	for i := range entry.Params {
		o := ir.ParameterOperand(entry, i)
		if i >= len(f.Inputs) {
			// Return storage starts empty.
			state[o] = stateUninit
			continue
		}
		if f.Inputs[i].Type.Access == typesystem.Set {
			state[o] = stateUninit
		} else {
			state[o] = stateInit
		}
	}
	return state
}

// transfer walks b updating state. With a sink it also rewrites move
// pseudo-instructions and reports misuse; without one it only computes
// the out-state.
func transfer(m *ir.Module, b *ir.Block, state slotMap, sink *diag.Sink) slotMap {
	snapshot := append([]*ir.Instruction(nil), b.Instrs...)
	for _, inst := range snapshot {
		switch inst.Op {
		case ir.OpAllocStack:
			state[ir.RegisterOperand(inst)] = stateUninit

		case ir.OpInitialize, ir.OpStore:
			setSlots(m, state, inst.Operands[1], stateInit)

		case ir.OpAssign:
			setSlots(m, state, inst.Operands[1], stateInit)

		case ir.OpMove:
			target := inst.Operands[1]
			op := ir.OpAssign
			if slotsAre(m, state, target, stateUninit) || slotsAre(m, state, target, stateMoved) {
				op = ir.OpInitialize
			}
			if sink != nil {
				operands := append([]ir.Operand(nil), inst.Operands...)
				m.Replace(inst, &ir.Instruction{Op: op, Operands: operands, Site: inst.Site})
			}
			setSlots(m, state, target, stateInit)

		case ir.OpLoad:
			src := inst.Operands[0]
			if sink != nil {
				switch {
				case slotsAre(m, state, src, stateMoved):
					sink.Report(diag.NewError(inst.Site, "use of value after it was moved"))
				case !slotsAre(m, state, src, stateInit):
					sink.Report(diag.NewError(inst.Site, "use of uninitialized value"))
				}
			}
			if sinkingAccess(src) {
				setSlots(m, state, src, stateMoved)
			}

		case ir.OpAccess:
			if sink != nil && inst.AccessCapability() == typesystem.Let {
				if slotsAre(m, state, inst.Operands[0], stateMoved) {
					sink.Report(diag.NewError(inst.Site, "use of value after it was moved"))
				}
			}

		case ir.OpDeinit:
			setSlots(m, state, inst.Operands[0], stateUninit)

		case ir.OpCall:
			if n := len(inst.Operands); n > 0 {
				// The trailing operand is the return storage.
				setSlots(m, state, inst.Operands[n-1], stateInit)
			}
		}
	}
	return state
}

// sinkingAccess reports whether addr flows through a sink-capability
// access.
func sinkingAccess(addr ir.Operand) bool {
	return addr.Inst != nil && addr.Inst.Op == ir.OpAccess && addr.Inst.AccessCapability() == typesystem.Sink
}

func setSlots(m *ir.Module, state slotMap, addr ir.Operand, s slotState) {
	for _, p := range m.Provenances(addr) {
		state[p] = s
	}
}

// slotsAre reports whether every provenance of addr currently has state
// s.
func slotsAre(m *ir.Module, state slotMap, addr ir.Operand, s slotState) bool {
	provs := m.Provenances(addr)
	if len(provs) == 0 {
		return false
	}
	for _, p := range provs {
		if state[p] != s {
			return false
		}
	}
	return true
}
