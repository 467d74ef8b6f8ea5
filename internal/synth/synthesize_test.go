package synth

import (
	"testing"

	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
	"github.com/veldlang/veld/internal/passes"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

var word = typesystem.TBuiltin{Kind: typesystem.BuiltinWord}

func productWithFields(p *program.Program) typesystem.DeclRef {
	return p.Declare(program.Decl{
		Name: "Pair",
		Fields: []typesystem.TupleElement{
			{Label: "a", Type: word},
			{Label: "b", Type: word},
		},
	})
}

func TestDeinitIsSynthesizedOnDemand(t *testing.T) {
	p := program.New(nil)
	m := ir.NewModule("t")
	s := New(m, p)
	model := productWithFields(p)

	f := s.Deinit(model, source.Site{File: "s.veld", Line: 1})
	if f == nil {
		t.Fatalf("no function synthesized")
	}
	if f.Name != "Pair.deinit" {
		t.Errorf("name = %q, want Pair.deinit", f.Name)
	}
	if again := s.Deinit(model, source.Site{}); again != f {
		t.Errorf("second demand synthesized a new function")
	}
	if len(m.Functions) != 1 {
		t.Errorf("functions = %d, want 1", len(m.Functions))
	}

	// One deinit per stored field.
	deinits := 0
	for _, inst := range f.Entry().Instrs {
		if inst.Op == ir.OpDeinit {
			deinits++
		}
	}
	if deinits != 2 {
		t.Errorf("deinit instructions = %d, want one per field", deinits)
	}
	if problems := ir.Verify(m); len(problems) != 0 {
		t.Errorf("synthesized module ill-formed: %v", problems)
	}
}

func TestMoveVariants(t *testing.T) {
	p := program.New(nil)
	m := ir.NewModule("t")
	s := New(m, p)
	model := productWithFields(p)

	init := s.Move(model, MoveInitKind, source.Site{})
	assign := s.Move(model, MoveAssignKind, source.Site{})
	if init == assign {
		t.Fatalf("move variants should be distinct functions")
	}
	if init.Inputs[0].Type.Access != typesystem.Set {
		t.Errorf("move-init receiver = %s, want set", init.Inputs[0].Type.Access)
	}
	if assign.Inputs[0].Type.Access != typesystem.Inout {
		t.Errorf("move-assign receiver = %s, want inout", assign.Inputs[0].Type.Access)
	}

	// The assigning variant destroys the previous value first.
	hasDeinit := false
	for _, inst := range assign.Entry().Instrs {
		if inst.Op == ir.OpDeinit {
			hasDeinit = true
		}
	}
	if !hasDeinit {
		t.Errorf("move-assign does not deinitialize the receiver")
	}
}

func TestSynthesizedBodiesSurviveMandatoryPasses(t *testing.T) {
	p := program.New(nil)
	m := ir.NewModule("t")
	s := New(m, p)
	model := productWithFields(p)

	s.Deinit(model, source.Site{})
	s.Move(model, MoveInitKind, source.Site{})
	s.Move(model, MoveAssignKind, source.Site{})

	sink := &diag.Sink{}
	passes.RunAll(m, sink)
	if sink.ErrorCount() != 0 {
		t.Fatalf("mandatory passes rejected synthesized bodies: %v", sink.Diagnostics())
	}
	if problems := ir.Verify(m); len(problems) != 0 {
		t.Errorf("module ill-formed after passes: %v", problems)
	}
}
