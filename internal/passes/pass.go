// Package passes holds the mandatory IR transformations. They run in a
// fixed order on every function; skipping one leaves the module
// semantically unfinished.
package passes

import (
	"github.com/veldlang/veld/internal/diag"
	"github.com/veldlang/veld/internal/ir"
)

// Pass is one mandatory transformation over a single function.
type Pass interface {
	Name() string
	Run(m *ir.Module, f *ir.Function, sink *diag.Sink)
}

// Mandatory returns the required passes in their application order.
func Mandatory() []Pass {
	return []Pass{
		DeadCode{},
		AccessReification{},
		BorrowClosing{},
		ObjectStates{},
		Exclusivity{},
	}
}

// RunAll applies every mandatory pass to every function of m, reporting
// through sink.
func RunAll(m *ir.Module, sink *diag.Sink) {
	for _, p := range Mandatory() {
		for _, f := range m.Functions {
			p.Run(m, f, sink)
		}
	}
}
