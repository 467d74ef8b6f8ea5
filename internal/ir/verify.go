package ir

import (
	"fmt"
	"strings"
)

// Verify checks the module's structural invariants: terminators appear
// only at block tails, entry blocks match their function's input arity,
// and the use chains agree with the instructions. It returns a
// description of every violation found.
func Verify(m *Module) []string {
	var problems []string

	recorded := make(map[Use]bool)
	for o, uses := range m.uses {
		for _, u := range uses {
			recorded[u] = true
			if u.Index >= len(u.User.Operands) || u.User.Operands[u.Index] != o {
				problems = append(problems, fmt.Sprintf("use chain of %s names %s at index %d, which does not hold it", o, u.User.Op, u.Index))
			}
		}
	}

	for _, f := range m.Functions {
		if entry := f.Entry(); entry != nil && len(entry.Params) != f.EntryParamCount() {
			problems = append(problems, fmt.Sprintf("@%s: entry has %d parameters, want %d", f.Name, len(entry.Params), f.EntryParamCount()))
		}
		for _, b := range f.Blocks {
			for i, inst := range b.Instrs {
				if inst.IsTerminator() && i != len(b.Instrs)-1 {
					problems = append(problems, fmt.Sprintf("@%s b%d: %s is not at the block tail", f.Name, b.Index, inst.Op))
				}
				if inst.parent != b {
					problems = append(problems, fmt.Sprintf("@%s b%d: %s has a stale parent", f.Name, b.Index, inst.Op))
				}
				for j := range inst.Operands {
					if !recorded[Use{User: inst, Index: j}] {
						problems = append(problems, fmt.Sprintf("@%s b%d: operand %d of %s is not in the use chain", f.Name, b.Index, j, inst.Op))
					}
				}
			}
		}
	}
	return problems
}

// MustVerify panics when the module violates an invariant. Violations
// are programming errors, not user diagnostics.
func MustVerify(m *Module) {
	if problems := Verify(m); len(problems) > 0 {
		panic("ill-formed IR module:\n" + strings.Join(problems, "\n"))
	}
}
