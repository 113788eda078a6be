package repair

import (
	"strings"

	"github.com/standardbeagle/ila/internal/detect"
	"github.com/standardbeagle/ila/internal/diag"
	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/syntax"
)

// Skipped is a finding fix-all left in place.
type Skipped struct {
	Diagnostic diag.Diagnostic
	Reason     error
}

// FixAllResult is the outcome of FixAll. Document is the input document
// when Applied is zero; otherwise the caller owns it. Compilation contains
// Document.
type FixAllResult struct {
	Document    *syntax.Document
	Compilation *model.Compilation
	Applied     int
	Skipped     []Skipped
}

// Changed reports whether any fix was applied.
func (r *FixAllResult) Changed() bool {
	return r.Applied > 0
}

// FixAll applies key to every finding in doc that offers it, one at a
// time, re-detecting on a fresh compilation after every step. Findings that
// do not offer key are reported as skipped.
func (e *Engine) FixAll(comp *model.Compilation, doc *syntax.Document, key ActionKey) (*FixAllResult, error) {
	if _, err := ParseActionKey(string(key)); err != nil {
		return nil, err
	}

	res := &FixAllResult{Document: doc, Compilation: comp}
	skipped := make(map[string]bool)
	for {
		m := res.Compilation.Model(res.Document)
		var next *detect.Finding
		for _, f := range e.detector.AnalyzeDocument(m) {
			id := findingID(f)
			if skipped[id] {
				continue
			}
			if !e.Offers(f, key) {
				skipped[id] = true
				res.Skipped = append(res.Skipped, Skipped{Diagnostic: f.Diagnostic, Reason: e.declineReason(f, key)})
				continue
			}
			next = f
			break
		}
		if next == nil {
			return res, nil
		}

		out, err := e.Apply(m, next, key)
		if err != nil {
			skipped[findingID(next)] = true
			res.Skipped = append(res.Skipped, Skipped{Diagnostic: next.Diagnostic, Reason: err})
			continue
		}
		// A fix that leaves its own finding behind must not loop.
		skipped[findingID(next)] = true

		if res.Applied > 0 {
			res.Document.Close()
		}
		res.Document = out
		res.Compilation = res.Compilation.Replace(out)
		res.Applied++
	}
}

func (e *Engine) declineReason(f *detect.Finding, key ActionKey) error {
	if key == SplitBaseClassFix {
		return e.CanSplit(f)
	}
	return errors.ErrStaticOwner
}

// findingID identifies a finding across re-parses of the same document.
func findingID(f *detect.Finding) string {
	return f.OwnerDisplayName + "|" + strings.Join(f.Field.Names, ",")
}
