package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	noteColor  = color.New(color.FgCyan)
	siteColor  = color.New(color.Bold)
)

// Render writes every diagnostic in the sink to w. Colors are enabled only
// when w is a terminal.
func Render(w io.Writer, s *Sink) {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, d := range s.Diagnostics() {
		renderOne(w, d, useColor, 0)
	}
}

func renderOne(w io.Writer, d Diagnostic, useColor bool, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(w, "  ")
	}
	if useColor {
		siteColor.Fprintf(w, "%s: ", d.Site)
		severityColor(d.Severity).Fprintf(w, "%s: ", d.Severity)
		fmt.Fprintln(w, d.Message)
	} else {
		fmt.Fprintf(w, "%s: %s: %s\n", d.Site, d.Severity, d.Message)
	}
	for _, n := range d.Notes {
		renderOne(w, n, useColor, depth+1)
	}
}

func severityColor(s Severity) *color.Color {
	switch s {
	case Error:
		return errorColor
	case Warning:
		return warnColor
	default:
		return noteColor
	}
}
