// Package cli implements the veld driver: flag parsing, artifact
// production, and diagnostic rendering. The semantic core underneath has
// no process-global state; the only cache living here is the executable
// path lookup, which is deliberately process-scoped.
package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/veldlang/veld/internal/config"
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
	"github.com/veldlang/veld/internal/passes"
	"github.com/veldlang/veld/internal/program"
	"github.com/veldlang/veld/internal/solver"
	"github.com/veldlang/veld/internal/source"
	"github.com/veldlang/veld/internal/typesystem"
)

// ArtifactKind names what the driver emits.
type ArtifactKind string

const (
	EmitRawAST ArtifactKind = "raw-ast"
	EmitRawIR  ArtifactKind = "raw-ir"
	EmitIR     ArtifactKind = "ir"
	EmitLLVM   ArtifactKind = "llvm"
	EmitBinary ArtifactKind = "binary"
)

// Options collects the recognized driver flags.
type Options struct {
	Inputs           []string
	Emit             ArtifactKind
	Output           string
	CompileAsModules bool
	ImportBuiltin    bool
	NoStd            bool
	TypecheckOnly    bool
	TraceFile        string
	TraceLine        int
	Transforms       []string
	LibraryPaths     []string
	LinkLibraries    []string
	Verbose          bool
	Optimize         bool
}

// Entry runs the driver and returns the process exit code: zero on
// success, non-zero when a diagnostic error was reported.
func Entry(args []string, stdout, stderr io.Writer) int {
	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			printUsage(stdout)
			return 0
		case "--version":
			fmt.Fprintf(stdout, "veld %s\n", config.Version)
			return 0
		}
	}

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "veld: %v\n", err)
		return 1
	}

	if len(opts.Inputs) > 0 {
		manifest, err := loadManifest(opts.Inputs[0])
		if err != nil {
			fmt.Fprintf(stderr, "veld: %v\n", err)
			return 1
		}
		if manifest != nil {
			opts.LibraryPaths = append(opts.LibraryPaths, manifest.LibraryPaths...)
			opts.LinkLibraries = append(opts.LinkLibraries, manifest.LinkLibraries...)
			if opts.Output == "" {
				opts.Output = manifest.Output
			}
		}
	}

	sink := &diag.Sink{}
	if err := compile(opts, stdout, sink); err != nil {
		fmt.Fprintf(stderr, "veld: %v\n", err)
		return 1
	}
	diag.Render(stderr, sink)
	if sink.ErrorCount() > 0 {
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `usage: veld [flags] inputs...

  --emit kind          artifact to produce: raw-ast, raw-ir, ir, llvm, binary
  --typecheck-only     stop after type checking
  --trace-inference f:l  trace constraint solving seeded at file:line
  --transform list     extra transforms, comma separated
  --compile-as-modules compile inputs as separate modules
  --import-builtin     expose the Builtin module
  --no-std             do not implicitly import the standard library
  -L path              add a library search path (repeatable)
  -l name              link against a library (repeatable)
  -o path              output path
  -O, --optimize       optimize the produced artifact
  -v, --verbose        verbose output
`)
}

func parseArgs(args []string) (*Options, error) {
	opts := &Options{Emit: EmitBinary, ImportBuiltin: true}
	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("flag %s needs a value", flag)
		}
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--compile-as-modules":
			opts.CompileAsModules = true
		case arg == "--import-builtin":
			opts.ImportBuiltin = true
		case arg == "--no-std":
			opts.NoStd = true
		case arg == "--typecheck-only":
			opts.TypecheckOnly = true
		case arg == "--verbose" || arg == "-v":
			opts.Verbose = true
		case arg == "--optimize" || arg == "-O":
			opts.Optimize = true
		case arg == "--emit":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			kind := ArtifactKind(v)
			switch kind {
			case EmitRawAST, EmitRawIR, EmitIR, EmitLLVM, EmitBinary:
				opts.Emit = kind
			default:
				return nil, fmt.Errorf("unknown artifact kind '%s'", v)
			}
		case arg == "--transform":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			opts.Transforms = append(opts.Transforms, strings.Split(v, ",")...)
		case arg == "--trace-inference":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			colon := strings.LastIndex(v, ":")
			if colon < 0 {
				return nil, fmt.Errorf("trace position must be file:line, got '%s'", v)
			}
			line, err := strconv.Atoi(v[colon+1:])
			if err != nil {
				return nil, fmt.Errorf("trace position must be file:line, got '%s'", v)
			}
			opts.TraceFile = v[:colon]
			opts.TraceLine = line
		case arg == "-L":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			opts.LibraryPaths = append(opts.LibraryPaths, v)
		case arg == "-l":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			opts.LinkLibraries = append(opts.LinkLibraries, v)
		case arg == "-o":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			opts.Output = v
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag '%s'", arg)
		default:
			opts.Inputs = append(opts.Inputs, arg)
		}
	}
	return opts, nil
}

// compile drives the core: typed program, solver, IR lowering, mandatory
// passes, then artifact emission.
func compile(opts *Options, stdout io.Writer, sink *diag.Sink) error {
	vars := &typesystem.VarSource{}
	prog := program.New(vars)

	var tracer *solver.Tracer
	if opts.TraceFile != "" {
		tracer = solver.NewTracerAt(stdout, opts.TraceFile, opts.TraceLine)
	}

	// The front end (parsing, scoping) is an external collaborator; the
	// driver seeds the core with the module entry it provides.
	moduleName := "main"
	if len(opts.Inputs) > 0 {
		moduleName = config.TrimSourceExt(filepath.Base(opts.Inputs[0]))
	}

	seeds := []solver.Goal{}
	s := solver.New(prog, 0, seeds)
	if tracer != nil {
		s.SetTracer(tracer)
	}
	sol := s.Solve()
	sink.ReportAll(sol.Diagnostics)
	if !sol.IsSound() || opts.TypecheckOnly {
		return nil
	}

	mod := lowerEntryModule(moduleName, prog)
	passes.RunAll(mod, sink)
	ir.MustVerify(mod)
	if sink.ErrorCount() > 0 {
		return nil
	}

	return emit(opts, mod, stdout)
}

// lowerEntryModule builds the module skeleton around the entry function.
func lowerEntryModule(name string, prog *program.Program) *ir.Module {
	mod := ir.NewModule(name)
	site := source.Site{File: name + config.SourceFileExt, Line: 1}

	entryRef := prog.Declare(program.Decl{
		Name:          "main",
		Site:          site,
		Type:          typesystem.TLambda{Output: typesystem.TTuple{}},
		IsModuleEntry: true,
	})
	f := mod.FunctionFor(entryRef, func() *ir.Function {
		return &ir.Function{
			Name:    "main",
			Site:    site,
			Linkage: ir.PublicLinkage,
			Output:  typesystem.TTuple{},
		}
	})
	mod.AppendBlock(f, []typesystem.Type{typesystem.TTuple{}})
	b := ir.NewBuilder(mod, f)
	b.Initialize(ir.ConstantOperand(ir.UnitConstant{}), ir.ParameterOperand(f.Entry(), 0), site)
	b.Return(site)
	return mod
}

func emit(opts *Options, mod *ir.Module, stdout io.Writer) error {
	switch opts.Emit {
	case EmitRawAST:
		return fmt.Errorf("raw-ast emission is provided by the front end")
	case EmitRawIR:
		data, err := ir.Encode(mod)
		if err != nil {
			return err
		}
		return writeArtifact(opts, data, ".vir", stdout)
	case EmitIR:
		return writeArtifact(opts, []byte(ir.Print(mod)), ".ir", stdout)
	case EmitLLVM:
		return writeArtifact(opts, []byte(emitLLVM(mod)), ".ll", stdout)
	case EmitBinary:
		return link(opts, mod)
	default:
		return fmt.Errorf("unknown artifact kind '%s'", opts.Emit)
	}
}

func writeArtifact(opts *Options, data []byte, ext string, stdout io.Writer) error {
	if opts.Output == "" {
		_, err := stdout.Write(data)
		return err
	}
	out := opts.Output
	if filepath.Ext(out) == "" {
		out += ext
	}
	return os.WriteFile(out, data, 0o644)
}

// emitLLVM renders the textual LLVM stub the back-end collaborator
// consumes.
func emitLLVM(mod *ir.Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", mod.Name)
	for _, f := range mod.Functions {
		fmt.Fprintf(&sb, "\ndefine void @%s() {\n", mangle(f.Name))
		fmt.Fprintf(&sb, "entry:\n  ret void\n}\n")
	}
	return sb.String()
}

func mangle(name string) string {
	return strings.NewReplacer(".", "_", " ", "_").Replace(name)
}

// link writes the LLVM artifact to a unique temporary and hands it to
// the system toolchain.
func link(opts *Options, mod *ir.Module) error {
	out := opts.Output
	if out == "" {
		out = mod.Name
	}
	tmp := filepath.Join(os.TempDir(), "veld-"+uuid.NewString()+".ll")
	if err := os.WriteFile(tmp, []byte(emitLLVM(mod)), 0o644); err != nil {
		return err
	}
	defer os.Remove(tmp)

	cc, err := lookupExecutable("clang")
	if err != nil {
		return fmt.Errorf("linking '%s': %w", out, err)
	}
	args := []string{tmp, "-o", out}
	for _, p := range opts.LibraryPaths {
		args = append(args, "-L"+p)
	}
	for _, l := range opts.LinkLibraries {
		args = append(args, "-l"+l)
	}
	if opts.Optimize {
		args = append(args, "-O2")
	}
	cmd := exec.Command(cc, args...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Executable lookups are cached for the life of the process. Nothing in
// the core touches this cache, so concurrent solves stay isolated.
var (
	executableMu    sync.Mutex
	executablePaths = make(map[string]string)
)

func lookupExecutable(name string) (string, error) {
	executableMu.Lock()
	defer executableMu.Unlock()
	if p, ok := executablePaths[name]; ok {
		return p, nil
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", err
	}
	executablePaths[name] = p
	return p, nil
}
