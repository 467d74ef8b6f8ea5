package passes

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
	"github.com/veldlang/veld/internal/typesystem"
)

// AccessReification lowers abstract access instructions to a concrete
// capability chosen from the provenance's sink-ness and downstream
// usage.
type AccessReification struct{}

func (AccessReification) Name() string { return "access-reification" }

func (AccessReification) Run(m *ir.Module, f *ir.Function, sink *diag.Sink) {
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			if inst.Op != ir.OpAccess || inst.IsReifiedAccess() {
				continue
			}
			reifyAccess(m, f, inst, sink)
		}
	}
}

func reifyAccess(m *ir.Module, f *ir.Function, inst *ir.Instruction, sink *diag.Sink) {
	need := requiredCapability(m, inst)

	if need == typesystem.Sink && !m.IsSink(inst.Operands[0], f) {
		sink.Report(diag.NewError(inst.Site, "cannot take 'sink' access to borrowed storage"))
		inst.Request = typesystem.EffectSet(typesystem.Let)
		return
	}

	// Pick the weakest requested capability satisfying the demand.
	for _, e := range capabilityOrder(need) {
		if inst.Request.Contains(e) {
			inst.Request = typesystem.EffectSet(e)
			return
		}
	}
	sink.Report(diag.NewError(inst.Site, "access requires '%s' capability, which the request does not grant", need))
	inst.Request = typesystem.EffectSet(need)
}

// capabilityOrder lists capabilities satisfying need, weakest first.
func capabilityOrder(need typesystem.AccessEffect) []typesystem.AccessEffect {
	switch need {
	case typesystem.Let:
		return []typesystem.AccessEffect{typesystem.Let, typesystem.Inout, typesystem.Sink}
	case typesystem.Inout:
		return []typesystem.AccessEffect{typesystem.Inout, typesystem.Sink}
	case typesystem.Set:
		return []typesystem.AccessEffect{typesystem.Set, typesystem.Inout, typesystem.Sink}
	default:
		return []typesystem.AccessEffect{typesystem.Sink}
	}
}

// requiredCapability derives the weakest capability the access's
// downstream uses demand.
func requiredCapability(m *ir.Module, access *ir.Instruction) typesystem.AccessEffect {
	need := typesystem.Let
	raise := func(e typesystem.AccessEffect) {
		if strength(e) > strength(need) {
			need = e
		}
	}
	for _, u := range m.UsesOf(ir.RegisterOperand(access)) {
		switch u.User.Op {
		case ir.OpStore, ir.OpAssign:
			if u.Index == 1 {
				raise(typesystem.Inout)
			}
		case ir.OpInitialize:
			if u.Index == 1 {
				raise(typesystem.Set)
			}
		case ir.OpMove:
			if u.Index == 1 {
				raise(typesystem.Set)
			} else {
				raise(typesystem.Sink)
			}
		case ir.OpDeinit:
			raise(typesystem.Sink)
		case ir.OpLoad:
			// Loading copies; observation is enough.
		case ir.OpEndAccess:
			// Scope bookkeeping.
		}
	}
	return need
}

func strength(e typesystem.AccessEffect) int {
	switch e {
	case typesystem.Let:
		return 0
	case typesystem.Inout:
		return 1
	case typesystem.Set:
		return 2
	default:
		return 3
	}
}
