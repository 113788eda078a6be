// Package diag defines diagnostics, their severities and the rule table
// that maps rule ids to message templates.
package diag

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/ila/internal/syntax"
)

// Location is the field-type span a diagnostic points at.
type Location struct {
	Path string      `json:"path"`
	Span syntax.Span `json:"span"`
}

// Diagnostic is one reported finding.
type Diagnostic struct {
	ID       RuleID   `json:"id"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Args     []string `json:"args"`
	Location Location `json:"location"`
}

// New builds a diagnostic for id from the rule table.
func New(rules RuleTable, id RuleID, loc Location, args ...string) Diagnostic {
	r := rules[id]
	return Diagnostic{
		ID:       id,
		Code:     r.Code,
		Severity: r.Severity,
		Message:  rules.Format(id, args...),
		Args:     args,
		Location: loc,
	}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s %s: %s", d.Location.Path, d.Location.Span.StartPos, d.Severity, d.Code, d.Message)
}

// Sort orders diagnostics by path, then offset, then code.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Location.Path != b.Location.Path {
			return a.Location.Path < b.Location.Path
		}
		if a.Location.Span.Start != b.Location.Span.Start {
			return a.Location.Span.Start < b.Location.Span.Start
		}
		return a.Code < b.Code
	})
}

// CountAtLeast returns how many diagnostics have severity >= min.
func CountAtLeast(ds []Diagnostic, min Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity >= min {
			n++
		}
	}
	return n
}
