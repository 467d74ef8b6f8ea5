package solver

import (
	"fmt"
	"io"
	"strings"
)

// Tracer renders the solver's progress as an indented tree. The format
// is stable so harnesses can diff it: the headers 'fresh:', 'stale:' and
// 'steps:' are followed by one line per action (schedule, solve, fork,
// pick, skip, assume, refresh, success, failure, break, defer, abort).
type Tracer struct {
	w io.Writer

	// File and Line restrict tracing to constraint systems seeded at the
	// given position. An empty file traces every solve.
	File string
	Line int

	enabled bool
}

// NewTracer builds a tracer writing to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// NewTracerAt builds a tracer active only for systems seeded at
// file:line.
func NewTracerAt(w io.Writer, file string, line int) *Tracer {
	return &Tracer{w: w, File: file, Line: line}
}

func (t *Tracer) activate(s *Solver) {
	if t.File == "" {
		t.enabled = true
		return
	}
	for _, g := range s.goals {
		o := g.Origin()
		if o.IsRoot() && o.Site.Matches(t.File, t.Line) {
			t.enabled = true
			return
		}
	}
}

// traceState prints the headers describing the solver's initial state.
func (s *Solver) traceState() {
	t := s.tracer
	if t == nil {
		return
	}
	t.activate(s)
	if !t.enabled {
		return
	}
	fmt.Fprintln(t.w, "fresh:")
	for i := len(s.fresh) - 1; i >= 0; i-- {
		id := s.fresh[i]
		fmt.Fprintf(t.w, "  [%d] %s\n", id, s.goals[id])
	}
	fmt.Fprintln(t.w, "stale:")
	for _, id := range s.stale {
		fmt.Fprintf(t.w, "  [%d] %s\n", id, s.goals[id])
	}
	fmt.Fprintln(t.w, "steps:")
}

// trace emits one action line at the solver's fork depth.
func (s *Solver) trace(format string, args ...interface{}) {
	t := s.tracer
	if t == nil || !t.enabled {
		return
	}
	fmt.Fprintf(t.w, "%s%s\n", strings.Repeat("  ", s.depth+1), fmt.Sprintf(format, args...))
}
