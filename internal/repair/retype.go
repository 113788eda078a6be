package repair

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/edit"
	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/sites"
	"github.com/standardbeagle/ila/internal/syntax"
)

func (e *Engine) retypeEdits(m *model.Model, class *sites.ClassSite, field *sites.FieldSite) ([]edit.TextEdit, error) {
	if class.IsStatic {
		return nil, errors.ErrStaticOwner
	}
	logger, _, err := e.fieldLogger(m, field)
	if err != nil {
		return nil, err
	}

	text := e.loggerText(e.ownerName(class))
	b := edit.NewBuilder()
	// Only the generic name is replaced, so qualifiers, attributes and
	// trivia around it survive.
	syntax.Walk(class.Node, func(n *sitter.Node) bool {
		if n.Kind() != syntax.KindGenericName {
			return true
		}
		if m.TypeOf(n) == logger {
			b.ReplaceNode(n, text)
			return false
		}
		return true
	})
	return b.Edits(), nil
}
