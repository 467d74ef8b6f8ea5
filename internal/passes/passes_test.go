package passes

import (
	"strings"
	"testing"

	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

var (
	word = typesystem.TBuiltin{Kind: typesystem.BuiltinWord}
	site = source.Site{File: "p.veld", Line: 1}
)

func newFunction(m *ir.Module, decl typesystem.DeclRef, inputs []ir.Param) *ir.Function {
	f := m.FunctionFor(decl, func() *ir.Function {
		return &ir.Function{Name: "f", Site: site, Inputs: inputs, Output: typesystem.TTuple{}}
	})
	params := make([]typesystem.Type, 0, len(inputs)+1)
	for _, in := range inputs {
		params = append(params, in.Type)
	}
	params = append(params, typesystem.TTuple{})
	m.AppendBlock(f, params)
	return f
}

func finish(b *ir.Builder, ret ir.Operand) {
	b.Initialize(ir.ConstantOperand(ir.UnitConstant{}), ret, site)
	b.Return(site)
}

func TestDeadCodeRemoval(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	b.AllocStack(word, site) // unused; must vanish
	finish(b, ret)
	dead := b.AppendBlock(nil) // unreachable
	b.At(dead)
	b.Unreachable(site)

	sink := &diag.Sink{}
	DeadCode{}.Run(m, f, sink)

	if len(f.Blocks) != 1 {
		t.Errorf("blocks = %d, want unreachable block removed", len(f.Blocks))
	}
	for _, inst := range f.Entry().Instrs {
		if inst.Op == ir.OpAllocStack {
			t.Errorf("unused alloc_stack survived dead-code removal")
		}
	}
	if sink.ErrorCount() != 0 {
		t.Errorf("dead-code removal reported %d errors", sink.ErrorCount())
	}
}

func TestAccessReification(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	full := typesystem.EffectSet(typesystem.Let, typesystem.Inout, typesystem.Sink, typesystem.Set)
	writing := b.Access(full, slot, site)
	b.Store(ir.ConstantOperand(ir.WordConstant{Value: 1}), writing, site)
	b.EndAccess(writing, site)
	reading := b.Access(full, slot, site)
	b.Load(reading, site)
	b.EndAccess(reading, site)
	finish(b, ret)

	sink := &diag.Sink{}
	AccessReification{}.Run(m, f, sink)

	if !writing.Inst.IsReifiedAccess() || writing.Inst.AccessCapability() != typesystem.Inout {
		t.Errorf("writing access reified to %s, want inout", writing.Inst.Request)
	}
	if !reading.Inst.IsReifiedAccess() || reading.Inst.AccessCapability() != typesystem.Let {
		t.Errorf("reading access reified to %s, want let", reading.Inst.Request)
	}
	if sink.ErrorCount() != 0 {
		t.Errorf("reification reported %d errors", sink.ErrorCount())
	}
}

func TestReificationRejectsSinkOnBorrow(t *testing.T) {
	m := ir.NewModule("t")
	let := typesystem.TParameter{Access: typesystem.Let, Bare: word}
	f := newFunction(m, 1, []ir.Param{{Label: "x", Type: let}})
	b := ir.NewBuilder(m, f)
	x := ir.ParameterOperand(f.Entry(), 0)
	ret := ir.ParameterOperand(f.Entry(), 1)

	access := b.Access(typesystem.EffectSet(typesystem.Let, typesystem.Sink), x, site)
	b.Deinit(access, site)
	b.EndAccess(access, site)
	finish(b, ret)

	sink := &diag.Sink{}
	AccessReification{}.Run(m, f, sink)
	if sink.ErrorCount() != 1 {
		t.Fatalf("errors = %d, want sink-on-borrow rejection", sink.ErrorCount())
	}
	if !strings.Contains(sink.Diagnostics()[0].Message, "sink") {
		t.Errorf("diagnostic = %q, want a sink access error", sink.Diagnostics()[0].Message)
	}
}

func TestBorrowClosingInsertsEnd(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	access := b.Access(typesystem.EffectSet(typesystem.Let), slot, site)
	b.Load(access, site)
	// No end_access emitted on purpose.
	finish(b, ret)

	BorrowClosing{}.Run(m, f, &diag.Sink{})

	closed := false
	for _, u := range m.UsesOf(access) {
		if u.User.Op == ir.OpEndAccess {
			closed = true
		}
	}
	if !closed {
		t.Fatalf("borrow closing did not insert end_access")
	}
	if problems := ir.Verify(m); len(problems) != 0 {
		t.Errorf("module ill-formed after closing: %v", problems)
	}
	// The scope must close after the last use, before the terminator.
	instrs := f.Entry().Instrs
	for i, inst := range instrs {
		if inst.Op == ir.OpEndAccess {
			if instrs[i-1].Op != ir.OpLoad {
				t.Errorf("end_access inserted before the last use")
			}
		}
	}
}

func TestMoveLegalization(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	one := ir.ConstantOperand(ir.WordConstant{Value: 1})
	two := ir.ConstantOperand(ir.WordConstant{Value: 2})
	b.Move(one, slot, site) // target uninitialized: becomes initialize
	b.Move(two, slot, site) // target initialized: becomes assign
	finish(b, ret)

	sink := &diag.Sink{}
	ObjectStates{}.Run(m, f, sink)

	var ops []ir.Op
	for _, inst := range f.Entry().Instrs {
		ops = append(ops, inst.Op)
	}
	for _, op := range ops {
		if op == ir.OpMove {
			t.Fatalf("move pseudo-instruction survived normalization: %v", ops)
		}
	}
	if ops[1] != ir.OpInitialize || ops[2] != ir.OpAssign {
		t.Errorf("legalized ops = %v, want initialize then assign", ops[1:3])
	}
	if sink.ErrorCount() != 0 {
		t.Errorf("legalization reported %d errors", sink.ErrorCount())
	}
}

func TestUninitializedReadIsDiagnosed(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	b.Load(slot, site)
	finish(b, ret)

	sink := &diag.Sink{}
	ObjectStates{}.Run(m, f, sink)
	if sink.ErrorCount() != 1 {
		t.Fatalf("errors = %d, want one uninitialized read", sink.ErrorCount())
	}
	if !strings.Contains(sink.Diagnostics()[0].Message, "uninitialized") {
		t.Errorf("diagnostic = %q, want an uninitialized-value error", sink.Diagnostics()[0].Message)
	}
}

func TestUseAfterMoveIsDiagnosed(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	b.Initialize(ir.ConstantOperand(ir.WordConstant{Value: 1}), slot, site)
	consuming := b.Access(typesystem.EffectSet(typesystem.Sink), slot, site)
	b.Load(consuming, site)
	b.EndAccess(consuming, site)
	b.Load(slot, site) // the value moved out above
	finish(b, ret)

	sink := &diag.Sink{}
	ObjectStates{}.Run(m, f, sink)
	found := false
	for _, d := range sink.Diagnostics() {
		if strings.Contains(d.Message, "moved") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want a use-after-move error", sink.Diagnostics())
	}
}

func TestExclusivityOverlapRejected(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	first := b.Access(typesystem.EffectSet(typesystem.Inout), slot, site)
	second := b.Access(typesystem.EffectSet(typesystem.Inout), slot, site)
	b.EndAccess(second, site)
	b.EndAccess(first, site)
	finish(b, ret)

	sink := &diag.Sink{}
	Exclusivity{}.Run(m, f, sink)
	if sink.ErrorCount() != 1 {
		t.Fatalf("errors = %d, want one exclusivity violation", sink.ErrorCount())
	}
	if !strings.Contains(sink.Diagnostics()[0].Message, "exclusivity") {
		t.Errorf("diagnostic = %q, want an exclusivity error", sink.Diagnostics()[0].Message)
	}
}

func TestExclusivitySequentialAccepted(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	first := b.Access(typesystem.EffectSet(typesystem.Inout), slot, site)
	b.EndAccess(first, site)

	next := b.AppendBlock(nil)
	b.Branch(next, site)
	b.At(next)
	second := b.Access(typesystem.EffectSet(typesystem.Inout), slot, site)
	b.EndAccess(second, site)
	finish(b, ret)

	sink := &diag.Sink{}
	Exclusivity{}.Run(m, f, sink)
	if sink.ErrorCount() != 0 {
		t.Errorf("errors = %d, want sequential accesses accepted (diagnostics %v)", sink.ErrorCount(), sink.Diagnostics())
	}
}

func TestRunAllLeavesWellFormedModule(t *testing.T) {
	m := ir.NewModule("t")
	f := newFunction(m, 1, nil)
	b := ir.NewBuilder(m, f)
	ret := ir.ParameterOperand(f.Entry(), 0)

	slot := b.AllocStack(word, site)
	b.Move(ir.ConstantOperand(ir.WordConstant{Value: 7}), slot, site)
	access := b.Access(typesystem.EffectSet(typesystem.Let, typesystem.Inout), slot, site)
	b.Load(access, site)
	finish(b, ret)

	sink := &diag.Sink{}
	RunAll(m, sink)
	if sink.ErrorCount() != 0 {
		t.Fatalf("mandatory passes reported: %v", sink.Diagnostics())
	}
	if problems := ir.Verify(m); len(problems) != 0 {
		t.Errorf("module ill-formed after passes: %v", problems)
	}
	for _, blk := range f.Blocks {
		for _, inst := range blk.Instrs {
			if inst.Op == ir.OpMove {
				t.Errorf("move survived the mandatory pipeline")
			}
			if inst.Op == ir.OpAccess && !inst.IsReifiedAccess() {
				t.Errorf("abstract access survived the mandatory pipeline")
			}
		}
	}
}
