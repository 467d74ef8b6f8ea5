package solver

import (
	"bytes"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/veldlang/veld/internal/typesystem"
)

func expectedTrace(t *testing.T, fixture string) string {
	t.Helper()
	archive, err := txtar.ParseFile(filepath.Join("testdata", fixture))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	for _, f := range archive.Files {
		if f.Name == "expected" {
			return string(f.Data)
		}
	}
	t.Fatalf("fixture %s has no expected file", fixture)
	return ""
}

func runTraced(t *testing.T, seeds func(p interface{ Fresh() typesystem.TVar }) []Goal) string {
	t.Helper()
	p := newProgram()
	goals := seeds(p)
	var buf bytes.Buffer
	s := New(p, 0, goals)
	s.SetTracer(NewTracerAt(&buf, "t.veld", 1))
	s.Solve()
	return buf.String()
}

func TestTraceEquality(t *testing.T) {
	got := runTraced(t, func(p interface{ Fresh() typesystem.TVar }) []Goal {
		v := p.Fresh()
		return []Goal{NewEquality(rootOrigin(OriginAnnotation, 1), v, word)}
	})
	want := expectedTrace(t, "trace_equality.txtar")
	if got != want {
		t.Errorf("trace mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestTraceInference(t *testing.T) {
	got := runTraced(t, func(p interface{ Fresh() typesystem.TVar }) []Goal {
		v := p.Fresh()
		return []Goal{NewSubtyping(rootOrigin(OriginInitialization, 1), word, v, false)}
	})
	want := expectedTrace(t, "trace_inference.txtar")
	if got != want {
		t.Errorf("trace mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestTraceInactiveOutsideSite(t *testing.T) {
	p := newProgram()
	v := p.Fresh()
	var buf bytes.Buffer
	s := New(p, 0, []Goal{NewEquality(rootOrigin(OriginAnnotation, 42), v, word)})
	s.SetTracer(NewTracerAt(&buf, "t.veld", 1))
	s.Solve()
	if buf.Len() != 0 {
		t.Errorf("tracer wrote %q for a non-matching site", buf.String())
	}
}
