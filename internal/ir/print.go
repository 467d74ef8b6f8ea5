package ir

import (
	"fmt"
	"strings"
)

// Print returns the textual form of the module: a function list with
// signatures, block labels, and instructions with operand references.
// Output is identical across deterministic runs.
func Print(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", m.Name)
	for _, f := range m.Functions {
		sb.WriteString("\n")
		printFunction(&sb, f)
	}
	return sb.String()
}

// PrintFunction returns the textual form of a single function.
func PrintFunction(f *Function) string {
	var sb strings.Builder
	printFunction(&sb, f)
	return sb.String()
}

func printFunction(sb *strings.Builder, f *Function) {
	params := []string{}
	for _, p := range f.Inputs {
		if p.Label != "" {
			params = append(params, fmt.Sprintf("%s: %s", p.Label, p.Type))
		} else {
			params = append(params, p.Type.String())
		}
	}
	kind := "fun"
	if f.IsSubscript {
		kind = "subscript"
	}
	fmt.Fprintf(sb, "%s %s @%s(%s) -> %s {\n", f.Linkage, kind, f.Name, strings.Join(params, ", "), f.Output)

	names := make(map[*Instruction]int)
	next := 0
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			if inst.Result != nil {
				names[inst] = next
				next++
			}
		}
	}

	operand := func(o Operand) string {
		switch {
		case o.Inst != nil:
			return fmt.Sprintf("%%v%d", names[o.Inst])
		case o.Block != nil:
			return fmt.Sprintf("%%b%d.%d", o.Block.Index, o.Index)
		case o.Const != nil:
			return o.Const.String()
		default:
			return "<none>"
		}
	}

	for _, b := range f.Blocks {
		blockParams := []string{}
		for i, p := range b.Params {
			blockParams = append(blockParams, fmt.Sprintf("%%b%d.%d: %s", b.Index, i, p))
		}
		fmt.Fprintf(sb, "b%d(%s):\n", b.Index, strings.Join(blockParams, ", "))
		for _, inst := range b.Instrs {
			sb.WriteString("  ")
			if inst.Result != nil {
				fmt.Fprintf(sb, "%%v%d = ", names[inst])
			}
			sb.WriteString(inst.Op.String())
			if inst.Op == OpAccess || inst.Op == OpProject {
				fmt.Fprintf(sb, " [%s]", inst.Request)
			}
			if inst.Op == OpSubfieldView {
				fmt.Fprintf(sb, " #%d", inst.Field)
			}
			if inst.Op == OpAdvanceByBytes {
				fmt.Fprintf(sb, " +%d", inst.Offset)
			}
			if inst.Callee.IsValid() {
				fmt.Fprintf(sb, " @d%d", inst.Callee)
			}
			for i, o := range inst.Operands {
				if i == 0 {
					sb.WriteString(" ")
				} else {
					sb.WriteString(", ")
				}
				sb.WriteString(operand(o))
			}
			for i, succ := range inst.Successors {
				if i == 0 && len(inst.Operands) == 0 {
					sb.WriteString(" ")
				} else {
					sb.WriteString(", ")
				}
				fmt.Fprintf(sb, "b%d", succ.Index)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
}
