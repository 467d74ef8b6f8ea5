package passes

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
)

// Exclusivity rejects overlapping accesses to the same provenance when
// either of them is mutable. Access scopes are intervals between an
// access and its end_access; borrow closing has already bounded every
// scope.
type Exclusivity struct{}

func (Exclusivity) Name() string { return "exclusivity" }

type openAccess struct {
	inst    *ir.Instruction
	provs   []ir.Operand
	mutable bool
}

func (Exclusivity) Run(m *ir.Module, f *ir.Function, sink *diag.Sink) {
	for _, b := range f.Blocks {
		var open []openAccess
		for _, inst := range b.Instrs {
			switch inst.Op {
			case ir.OpAccess, ir.OpProject:
				entry := openAccess{
					inst:    inst,
					provs:   m.Provenances(inst.Operands[0]),
					mutable: inst.AccessCapability().IsMutating(),
				}
				for _, other := range open {
					if !sharesProvenance(entry.provs, other.provs) {
						continue
					}
					if entry.mutable || other.mutable {
						d := diag.NewError(inst.Site, "overlapping accesses violate exclusivity")
						d.Notes = append(d.Notes, diag.NewNote(other.inst.Site, "conflicting access is here"))
						sink.Report(d)
					}
				}
				open = append(open, entry)

			case ir.OpEndAccess, ir.OpEndProject:
				opened := inst.Operands[0].Inst
				for i, other := range open {
					if other.inst == opened {
						open = append(open[:i], open[i+1:]...)
						break
					}
				}
			}
		}
	}
}

func sharesProvenance(a, b []ir.Operand) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
