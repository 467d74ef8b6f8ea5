package ir

import (
	"bytes"
	"testing"

	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

var (
	word = typesystem.TBuiltin{Kind: typesystem.BuiltinWord}
	site = source.Site{File: "t.veld", Line: 1}
)

// buildSample lowers `fun f(x: let Word) -> Word { return x }`.
func buildSample() (*Module, *Function) {
	m := NewModule("sample")
	param := typesystem.TParameter{Access: typesystem.Let, Bare: word}
	f := m.FunctionFor(1, func() *Function {
		return &Function{
			Name:   "f",
			Site:   site,
			Inputs: []Param{{Label: "x", Type: param}},
			Output: word,
		}
	})
	m.AppendBlock(f, []typesystem.Type{param, word})

	b := NewBuilder(m, f)
	x := ParameterOperand(f.Entry(), 0)
	ret := ParameterOperand(f.Entry(), 1)
	access := b.Access(typesystem.EffectSet(typesystem.Let), x, site)
	value := b.Load(access, site)
	b.EndAccess(access, site)
	b.Initialize(value, ret, site)
	b.Return(site)
	return m, f
}

func TestFunctionForIsMemoized(t *testing.T) {
	m, f := buildSample()
	again := m.FunctionFor(1, func() *Function {
		t.Fatalf("builder ran twice for the same declaration")
		return nil
	})
	if again != f {
		t.Errorf("FunctionFor returned a different function")
	}
	if len(m.Functions) != 1 {
		t.Errorf("functions = %d, want 1", len(m.Functions))
	}
}

func TestUseChainsStayConsistent(t *testing.T) {
	m, f := buildSample()
	if problems := Verify(m); len(problems) != 0 {
		t.Fatalf("fresh module is ill-formed: %v", problems)
	}

	access := f.Entry().Instrs[0]
	uses := m.UsesOf(RegisterOperand(access))
	if len(uses) != 2 {
		t.Fatalf("uses of access = %d, want load and end_access", len(uses))
	}

	// Removing an instruction whose result is used must be refused.
	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("removing a used instruction should panic")
			}
		}()
		m.Remove(access)
	}()
}

func TestRemoveErasesUses(t *testing.T) {
	m, f := buildSample()
	load := f.Entry().Instrs[1]
	initialize := f.Entry().Instrs[3]

	m.Remove(initialize)
	if uses := m.UsesOf(RegisterOperand(load)); len(uses) != 0 {
		t.Errorf("uses of load after removing its user = %v, want none", uses)
	}
	m.Remove(load)
	if problems := Verify(m); len(problems) != 0 {
		t.Errorf("module ill-formed after removals: %v", problems)
	}
}

func TestReplaceMigratesUses(t *testing.T) {
	m, f := buildSample()
	access := f.Entry().Instrs[0]
	replacement := &Instruction{
		Op:       OpAccess,
		Operands: []Operand{ParameterOperand(f.Entry(), 0)},
		Result:   access.Result,
		Request:  typesystem.EffectSet(typesystem.Let),
		Site:     site,
	}
	m.Replace(access, replacement)

	if uses := m.UsesOf(RegisterOperand(access)); len(uses) != 0 {
		t.Errorf("old register still has uses: %v", uses)
	}
	if uses := m.UsesOf(RegisterOperand(replacement)); len(uses) != 2 {
		t.Errorf("uses of replacement = %d, want 2", len(uses))
	}
	if problems := Verify(m); len(problems) != 0 {
		t.Errorf("module ill-formed after replace: %v", problems)
	}
}

func TestReplaceOperand(t *testing.T) {
	m, f := buildSample()
	load := f.Entry().Instrs[1]
	other := ParameterOperand(f.Entry(), 0)

	m.ReplaceOperand(load, 0, other)
	if problems := Verify(m); len(problems) != 0 {
		t.Errorf("module ill-formed after operand rewrite: %v", problems)
	}
	found := false
	for _, u := range m.UsesOf(other) {
		if u.User == load && u.Index == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("use chain does not record the rewritten operand")
	}
}

func TestProvenances(t *testing.T) {
	m, f := buildSample()
	access := f.Entry().Instrs[0]
	x := ParameterOperand(f.Entry(), 0)

	provs := m.Provenances(RegisterOperand(access))
	if len(provs) != 1 || provs[0] != x {
		t.Errorf("provenance of access = %v, want the parameter", provs)
	}

	// A let parameter is borrowed, not owned.
	if m.IsSink(RegisterOperand(access), f) {
		t.Errorf("let parameter should not be sink")
	}
}

func TestIsSinkForOwnedStorage(t *testing.T) {
	m := NewModule("owned")
	f := m.FunctionFor(2, func() *Function {
		return &Function{Name: "g", Site: site, Output: word}
	})
	m.AppendBlock(f, []typesystem.Type{word})
	b := NewBuilder(m, f)
	slot := b.AllocStack(word, site)
	access := b.Access(typesystem.EffectSet(typesystem.Sink), slot, site)
	b.EndAccess(access, site)
	b.Return(site)

	if !m.IsSink(access, f) {
		t.Errorf("stack allocation should be sink")
	}
}

func TestPrintIsDeterministic(t *testing.T) {
	m1, _ := buildSample()
	m2, _ := buildSample()
	a, b := Print(m1), Print(m2)
	if a != b {
		t.Errorf("textual output differs across identical runs:\n%s\nvs\n%s", a, b)
	}
	if a == "" {
		t.Errorf("empty textual form")
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	m1, _ := buildSample()
	m2, _ := buildSample()
	a, err := Encode(m1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(m2)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("binary output differs across identical runs")
	}
	if !bytes.HasPrefix(a, rawIRMagic) {
		t.Errorf("artifact does not start with the raw-ir magic")
	}
}

func TestTerminatorPlacementIsVerified(t *testing.T) {
	m, f := buildSample()
	entry := f.Entry()
	// Force a terminator into the middle of the block.
	entry.Instrs[1], entry.Instrs[4] = entry.Instrs[4], entry.Instrs[1]
	if problems := Verify(m); len(problems) == 0 {
		t.Errorf("misplaced terminator went undetected")
	}
}
