// Package repair computes the fixes offered for logger mismatch findings.
// Every fix is computed against one snapshot as a single edit set and
// returned as a new document; input documents are never modified.
package repair

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/detect"
	"github.com/standardbeagle/ila/internal/diag"
	"github.com/standardbeagle/ila/internal/edit"
	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/sites"
	"github.com/standardbeagle/ila/internal/syntax"
)

// ActionKey identifies a fix so hosts can offer and batch it.
type ActionKey string

const (
	RetypeFix         ActionKey = "RetypeFix"
	SplitBaseClassFix ActionKey = "SplitBaseClassFix"
)

// ActionKeys lists every known key.
var ActionKeys = []ActionKey{RetypeFix, SplitBaseClassFix}

// ParseActionKey validates a key given by a user.
func ParseActionKey(s string) (ActionKey, error) {
	for _, k := range ActionKeys {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	if hint, ok := SuggestActionKey(s); ok {
		return "", fmt.Errorf("%w: %q (did you mean %s?)", errors.ErrUnknownAction, s, hint)
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnknownAction, s)
}

// Action is a fix offered for a finding.
type Action struct {
	Key   ActionKey `json:"key"`
	Title string    `json:"title"`
}

// Options controls the generated code and action titles. Titles accept {0}
// for the owner's short name and {1} for the mismatched type.
type Options struct {
	BaseParameterName string
	RetypeTitle       string
	SplitTitle        string
}

// DefaultOptions returns the built-in engine options.
func DefaultOptions() Options {
	return Options{
		BaseParameterName: "baseLogger",
		RetypeTitle:       "Change logger type to ILogger<{0}>",
		SplitTitle:        "Keep ILogger<{1}> for the base class and add ILogger<{0}>",
	}
}

// Engine offers and applies fixes. It holds no per-document state.
type Engine struct {
	detector *detect.Detector
	opts     Options
}

// New creates an engine over detector. Empty options take their defaults.
func New(detector *detect.Detector, opts Options) *Engine {
	def := DefaultOptions()
	if opts.BaseParameterName == "" {
		opts.BaseParameterName = def.BaseParameterName
	}
	if opts.RetypeTitle == "" {
		opts.RetypeTitle = def.RetypeTitle
	}
	if opts.SplitTitle == "" {
		opts.SplitTitle = def.SplitTitle
	}
	return &Engine{detector: detector, opts: opts}
}

// Detector returns the detector the engine relocates findings with.
func (e *Engine) Detector() *detect.Detector {
	return e.detector
}

// Actions returns the fixes offered for f: Retype for every non-static
// finding, Split in addition when the mismatched type is the owner's base
// class and some constructor forwards to a base initializer.
func (e *Engine) Actions(f *detect.Finding) []Action {
	if f == nil || f.IsStaticOwner {
		return nil
	}
	owner, mismatched := e.ownerName(f.Class), f.Mismatched.DisplayName()
	actions := []Action{{Key: RetypeFix, Title: diag.FormatTemplate(e.opts.RetypeTitle, owner, mismatched)}}
	if e.CanSplit(f) == nil {
		actions = append(actions, Action{Key: SplitBaseClassFix, Title: diag.FormatTemplate(e.opts.SplitTitle, owner, mismatched)})
	}
	return actions
}

// Offers reports whether key is among the actions for f.
func (e *Engine) Offers(f *detect.Finding, key ActionKey) bool {
	for _, a := range e.Actions(f) {
		if a.Key == key {
			return true
		}
	}
	return false
}

// CanSplit checks the preconditions of the Split transform.
func (e *Engine) CanSplit(f *detect.Finding) error {
	switch {
	case f.IsStaticOwner:
		return errors.ErrStaticOwner
	case f.Class.BaseType == nil:
		return errors.ErrNoBaseType
	case f.Mismatched != f.Class.BaseType:
		return errors.ErrSplitIneligible
	}
	for _, ctor := range f.Class.Constructors {
		if ctor.BaseInitializer != nil {
			return nil
		}
	}
	return errors.ErrNoBaseInitializer
}

// Edits computes the edit set of key for f against the model's snapshot.
func (e *Engine) Edits(m *model.Model, f *detect.Finding, key ActionKey) ([]edit.TextEdit, error) {
	if f == nil {
		return nil, errors.ErrNoFinding
	}
	if f.IsStaticOwner {
		return nil, errors.ErrStaticOwner
	}
	switch key {
	case RetypeFix:
		return e.retypeEdits(m, f.Class, f.Field)
	case SplitBaseClassFix:
		if err := e.CanSplit(f); err != nil {
			return nil, err
		}
		return e.splitEdits(m, f.Class, f.Field)
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownAction, key)
}

// Apply computes key for f and returns the rewritten document. The caller
// owns the returned document.
func (e *Engine) Apply(m *model.Model, f *detect.Finding, key ActionKey) (*syntax.Document, error) {
	edits, err := e.Edits(m, f, key)
	if err != nil {
		return nil, err
	}
	return e.rewrite(m.Document(), edits, key)
}

// Retype replaces every reference to the field's logger type inside class
// with the owner-typed logger.
func (e *Engine) Retype(m *model.Model, class *sites.ClassSite, field *sites.FieldSite) (*syntax.Document, error) {
	edits, err := e.retypeEdits(m, class, field)
	if err != nil {
		return nil, err
	}
	return e.rewrite(m.Document(), edits, RetypeFix)
}

// Split threads a separate base-typed logger through every constructor that
// forwards the old logger to its base initializer, then retypes the field.
// Preconditions are checked first, as for Actions.
func (e *Engine) Split(m *model.Model, class *sites.ClassSite, field *sites.FieldSite) (*syntax.Document, error) {
	f := e.detector.Detect(field, m)
	if f == nil {
		return nil, errors.ErrNoFinding
	}
	f.Class = class
	return e.Apply(m, f, SplitBaseClassFix)
}

// ApplyAt relocates the field at offset on a fresh model of doc and applies
// key to it.
func (e *Engine) ApplyAt(comp *model.Compilation, doc *syntax.Document, offset int, key ActionKey) (*syntax.Document, error) {
	m := comp.Model(doc)
	field := sites.FieldAt(m, offset)
	if field == nil {
		return nil, errors.NewFixError(string(key), doc.Path, offset, errors.ErrFieldNotFound)
	}
	f := e.detector.Detect(field, m)
	if f == nil {
		return nil, errors.NewFixError(string(key), doc.Path, offset, errors.ErrNoFinding)
	}
	out, err := e.Apply(m, f, key)
	if err != nil {
		return nil, errors.NewFixError(string(key), doc.Path, offset, err)
	}
	return out, nil
}

func (e *Engine) rewrite(doc *syntax.Document, edits []edit.TextEdit, key ActionKey) (*syntax.Document, error) {
	src, err := edit.Apply(doc.Source, edits)
	if err != nil {
		return nil, err
	}
	debug.LogRepair("%s: %s applied %d edits\n", doc.Path, key, len(edits))
	return doc.Reparse(src)
}

// ownerName is the short owner name with its own type parameters.
func (e *Engine) ownerName(class *sites.ClassSite) string {
	if len(class.TypeParameterNames) == 0 {
		return class.Name
	}
	return class.Name + "<" + strings.Join(class.TypeParameterNames, ", ") + ">"
}

// baseName is the base type as written in the base list.
func baseName(doc *syntax.Document, class *sites.ClassSite) string {
	if class.BaseTypeNode != nil {
		return strings.Join(strings.Fields(doc.Text(class.BaseTypeNode)), " ")
	}
	if class.BaseType != nil {
		return class.BaseType.Name
	}
	return ""
}

func (e *Engine) loggerText(arg string) string {
	return e.detector.Options().LoggerInterface + "<" + arg + ">"
}

// loggerNode finds the generic name under typeNode that resolves to logger.
func loggerNode(m *model.Model, typeNode *sitter.Node, logger *model.TypeRef) *sitter.Node {
	var found *sitter.Node
	syntax.Walk(typeNode, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == syntax.KindGenericName && m.TypeOf(n) == logger {
			found = n
			return false
		}
		return true
	})
	return found
}

// fieldLogger resolves the logger type of a field the way the detector does.
func (e *Engine) fieldLogger(m *model.Model, field *sites.FieldSite) (*model.TypeRef, *sitter.Node, error) {
	if field == nil || field.TypeNode == nil {
		return nil, nil, errors.ErrNoFinding
	}
	generic := syntax.FirstDescendant(field.TypeNode, syntax.KindGenericName)
	logger := m.TypeOf(generic)
	if !e.detector.IsLogger(logger) {
		return nil, nil, errors.ErrNoFinding
	}
	return logger, generic, nil
}
