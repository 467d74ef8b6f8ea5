package diag

import (
	"fmt"
	"sort"

	"github.com/veldlang/veld/internal/source"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is a single message attached to a source site.
type Diagnostic struct {
	Severity Severity
	Site     source.Site
	Message  string
	Notes    []Diagnostic
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Site, d.Severity, d.Message)
}

// NewError builds an error diagnostic at site.
func NewError(site source.Site, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: Error, Site: site, Message: fmt.Sprintf(format, args...)}
}

// NewNote builds a note diagnostic at site.
func NewNote(site source.Site, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: Note, Site: site, Message: fmt.Sprintf(format, args...)}
}

// Sink accumulates diagnostics. The core never renders; the driver drains
// the sink once compilation is over.
type Sink struct {
	diagnostics []Diagnostic
	errorCount  int
}

// Report appends d to the sink.
func (s *Sink) Report(d Diagnostic) {
	s.diagnostics = append(s.diagnostics, d)
	if d.Severity == Error {
		s.errorCount++
	}
}

// ReportAll appends every diagnostic in ds.
func (s *Sink) ReportAll(ds []Diagnostic) {
	for _, d := range ds {
		s.Report(d)
	}
}

// ErrorCount returns the number of error-severity diagnostics reported.
func (s *Sink) ErrorCount() int {
	return s.errorCount
}

// Diagnostics returns the reported diagnostics sorted by site, stable
// within a site.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Site, out[j].Site
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return out
}
