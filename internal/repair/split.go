package repair

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/edit"
	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/sites"
	"github.com/standardbeagle/ila/internal/syntax"
)

// splitEdits rewrites, per constructor, the parameter list and base
// argument list as two node replacements, and retypes the field last.
func (e *Engine) splitEdits(m *model.Model, class *sites.ClassSite, field *sites.FieldSite) ([]edit.TextEdit, error) {
	logger, fieldNode, err := e.fieldLogger(m, field)
	if err != nil {
		return nil, err
	}

	doc := m.Document()
	ownerText := e.loggerText(e.ownerName(class))
	baseText := e.loggerText(baseName(doc, class))

	var out []edit.TextEdit
	for _, ctor := range class.Constructors {
		if ctor.ParameterList == nil {
			continue
		}

		var paramEdits []edit.TextEdit
		oldNames := make(map[string]bool)
		for _, p := range ctor.Parameters {
			if p.Type == nil || p.Type != logger || p.Name == "" {
				continue
			}
			g := loggerNode(m, p.TypeNode, logger)
			if g == nil {
				continue
			}
			paramEdits = append(paramEdits, replaceNode(g, ownerText))
			oldNames[p.Name] = true
		}

		var argEdits []edit.TextEdit
		var name string
		if init := ctor.BaseInitializer; init != nil && len(oldNames) > 0 {
			for _, arg := range init.Arguments {
				expr := arg.Expression
				if expr.Kind() != syntax.KindIdentifier || !oldNames[doc.Text(expr)] {
					continue
				}
				if name == "" {
					name = e.freshName(m, ctor)
				}
				argEdits = append(argEdits, replaceNode(expr, name))
			}
		}

		if name != "" {
			last := ctor.Parameters[len(ctor.Parameters)-1].Node
			at := int(last.EndByte())
			paramEdits = append(paramEdits, edit.TextEdit{
				Start:   at,
				End:     at,
				NewText: separator(doc, ctor) + baseText + " " + name,
			})
		}

		if len(paramEdits) > 0 {
			r, err := rewriteNode(doc, ctor.ParameterList, paramEdits)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		if len(argEdits) > 0 {
			r, err := rewriteNode(doc, ctor.BaseInitializer.ArgumentList, argEdits)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}

	out = append(out, replaceNode(fieldNode, ownerText))
	return out, nil
}

func replaceNode(n *sitter.Node, text string) edit.TextEdit {
	return edit.TextEdit{Start: int(n.StartByte()), End: int(n.EndByte()), NewText: text}
}

func rewriteNode(doc *syntax.Document, n *sitter.Node, edits []edit.TextEdit) (edit.TextEdit, error) {
	start, end := int(n.StartByte()), int(n.EndByte())
	text, err := edit.Rewrite(doc.Source, start, end, edits)
	if err != nil {
		return edit.TextEdit{}, err
	}
	return edit.TextEdit{Start: start, End: end, NewText: text}, nil
}

// separator reuses the text between the last two parameters so appended
// parameters follow the list's layout. Layouts carrying comments fall back
// to ", ".
func separator(doc *syntax.Document, ctor *sites.ConstructorSite) string {
	const plain = ", "
	n := len(ctor.Parameters)
	if n < 2 {
		return plain
	}
	between := string(doc.Source[ctor.Parameters[n-2].Node.EndByte():ctor.Parameters[n-1].Node.StartByte()])
	if !strings.HasPrefix(strings.TrimLeft(between, " \t"), ",") || strings.Contains(between, "/") {
		return plain
	}
	return between
}
