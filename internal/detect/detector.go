// Package detect finds fields typed with a logger whose type argument names
// a class other than the field's owner.
package detect

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/diag"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/sites"
	"github.com/standardbeagle/ila/internal/syntax"
)

const (
	DefaultLoggerNamespace = "Microsoft.Extensions.Logging"
	DefaultLoggerInterface = "ILogger"
)

// Options selects the logger abstraction and the rule table.
type Options struct {
	LoggerNamespace string
	LoggerInterface string
	Rules           diag.RuleTable
}

// DefaultOptions targets Microsoft.Extensions.Logging.ILogger<T>.
func DefaultOptions() Options {
	return Options{
		LoggerNamespace: DefaultLoggerNamespace,
		LoggerInterface: DefaultLoggerInterface,
		Rules:           diag.DefaultRules(),
	}
}

// Finding is a field whose logger type argument does not match its owner.
type Finding struct {
	Field *sites.FieldSite
	Class *sites.ClassSite
	// LoggerNode is the generic name node that matched, e.g. ILogger<Other>
	// inside Microsoft.Extensions.Logging.ILogger<Other>.
	LoggerNode       *sitter.Node
	LoggerType       *model.TypeRef
	Mismatched       *model.TypeRef
	OwnerDisplayName string
	IsStaticOwner    bool
	Diagnostic       diag.Diagnostic
}

// Rule returns the rule the finding was reported under.
func (f *Finding) Rule() diag.RuleID {
	if f.IsStaticOwner {
		return diag.MismatchStatic
	}
	return diag.Mismatch
}

// Detector is stateless; one value may be shared across goroutines.
type Detector struct {
	opts Options
}

// New creates a detector. Empty option fields take their defaults.
func New(opts Options) *Detector {
	def := DefaultOptions()
	if opts.LoggerNamespace == "" {
		opts.LoggerNamespace = def.LoggerNamespace
	}
	if opts.LoggerInterface == "" {
		opts.LoggerInterface = def.LoggerInterface
	}
	if opts.Rules == nil {
		opts.Rules = def.Rules
	}
	return &Detector{opts: opts}
}

// Options returns the detector configuration.
func (d *Detector) Options() Options {
	return d.opts
}

// IsLogger reports whether t is the single-argument logger interface.
func (d *Detector) IsLogger(t *model.TypeRef) bool {
	return t != nil &&
		t.Kind == model.KindInterface &&
		t.Name == d.opts.LoggerInterface &&
		t.ContainingNamespace == d.opts.LoggerNamespace &&
		len(t.TypeArguments) == 1
}

// Detect checks one field. It returns nil when the field is not a typed
// logger or is typed for its own class.
func (d *Detector) Detect(field *sites.FieldSite, m *model.Model) *Finding {
	if field == nil || field.TypeNode == nil || field.Class == nil {
		return nil
	}

	generic := syntax.FirstDescendant(field.TypeNode, syntax.KindGenericName)
	if generic == nil {
		return nil
	}
	logger := m.TypeOf(generic)
	if !d.IsLogger(logger) {
		return nil
	}

	mismatched := logger.TypeArguments[0]
	owner := field.Class.DisplayName
	if mismatched.DisplayName() == owner {
		return nil
	}

	f := &Finding{
		Field:            field,
		Class:            field.Class,
		LoggerNode:       generic,
		LoggerType:       logger,
		Mismatched:       mismatched,
		OwnerDisplayName: owner,
		IsStaticOwner:    field.Class.IsStatic,
	}
	loc := diag.Location{Path: m.Document().Path, Span: syntax.SpanOf(field.TypeNode)}
	if f.IsStaticOwner {
		f.Diagnostic = diag.New(d.opts.Rules, diag.MismatchStatic, loc, mismatched.DisplayName())
	} else {
		f.Diagnostic = diag.New(d.opts.Rules, diag.Mismatch, loc, mismatched.DisplayName(), owner)
	}
	debug.LogDetect("%s: %s in %s (%s)\n", loc.Path, logger.DisplayName(), owner, f.Diagnostic.Code)
	return f
}

// AnalyzeDocument runs Detect over every field of the model's document and
// returns the findings of enabled rules in source order.
func (d *Detector) AnalyzeDocument(m *model.Model) []*Finding {
	var out []*Finding
	for _, field := range sites.Fields(m) {
		f := d.Detect(field, m)
		if f == nil {
			continue
		}
		if r, ok := d.opts.Rules[f.Rule()]; ok && !r.Enabled {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Diagnostics flattens findings to their diagnostics.
func Diagnostics(findings []*Finding) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Diagnostic)
	}
	return out
}
