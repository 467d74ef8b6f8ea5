package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want *Options
		err  bool
	}{
		{
			name: "defaults",
			args: []string{"main.veld"},
			want: &Options{Inputs: []string{"main.veld"}, Emit: EmitBinary, ImportBuiltin: true},
		},
		{
			name: "emit and output",
			args: []string{"--emit", "ir", "-o", "out.ir", "main.veld"},
			want: &Options{Inputs: []string{"main.veld"}, Emit: EmitIR, Output: "out.ir", ImportBuiltin: true},
		},
		{
			name: "repeatable link flags",
			args: []string{"-L", "/a", "-L", "/b", "-l", "m", "main.veld"},
			want: &Options{
				Inputs: []string{"main.veld"}, Emit: EmitBinary, ImportBuiltin: true,
				LibraryPaths: []string{"/a", "/b"}, LinkLibraries: []string{"m"},
			},
		},
		{
			name: "trace position",
			args: []string{"--trace-inference", "src/main.veld:42", "main.veld"},
			want: &Options{
				Inputs: []string{"main.veld"}, Emit: EmitBinary, ImportBuiltin: true,
				TraceFile: "src/main.veld", TraceLine: 42,
			},
		},
		{
			name: "typecheck only with transforms",
			args: []string{"--typecheck-only", "--transform", "a,b", "main.veld"},
			want: &Options{
				Inputs: []string{"main.veld"}, Emit: EmitBinary, ImportBuiltin: true,
				TypecheckOnly: true, Transforms: []string{"a", "b"},
			},
		},
		{name: "unknown artifact", args: []string{"--emit", "wasm"}, err: true},
		{name: "bad trace position", args: []string{"--trace-inference", "main.veld"}, err: true},
		{name: "unknown flag", args: []string{"--frobnicate"}, err: true},
		{name: "missing value", args: []string{"-o"}, err: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgs(tc.args)
			if tc.err {
				if err == nil {
					t.Fatalf("parseArgs(%v) succeeded, want error", tc.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs(%v): %v", tc.args, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEntryEmitsTextualIR(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Entry([]string{"--emit", "ir"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "module main") || !strings.Contains(out, "@main") {
		t.Errorf("textual IR = %q, want the main module", out)
	}
}

func TestEntryEmitsRawIR(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Entry([]string{"--emit", "raw-ir"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}
	if !bytes.HasPrefix(stdout.Bytes(), []byte("VIR1")) {
		t.Errorf("raw-ir artifact lacks its magic header")
	}
}

func TestEntryHelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Entry([]string{"--help"}, &stdout, &stderr); code != 0 {
		t.Errorf("help exit = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "usage: veld") {
		t.Errorf("help output = %q", stdout.String())
	}

	stdout.Reset()
	if code := Entry([]string{"--version"}, &stdout, &stderr); code != 0 {
		t.Errorf("version exit = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout.String(), "veld ") {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestEntryRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Entry([]string{"--frobnicate"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "unknown flag") {
		t.Errorf("stderr = %q, want an unknown-flag error", stderr.String())
	}
}

func TestTraceInferenceFlagIsWired(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Entry([]string{"--typecheck-only", "--trace-inference", "main.veld:1"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr.String())
	}
	// The seeded system is empty, so a site-restricted tracer stays
	// silent.
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want silence", stdout.String())
	}
}
