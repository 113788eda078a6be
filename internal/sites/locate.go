package sites

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/syntax"
)

var classKinds = []string{syntax.KindClass, syntax.KindStruct, syntax.KindRecord, syntax.KindRecordStruct}

// Classes projects every class, struct and record of the model's document
// in source order, nested types included.
func Classes(m *model.Model) []*ClassSite {
	var out []*ClassSite
	var walk func(n *sitter.Node, outer *ClassSite)
	walk = func(n *sitter.Node, outer *ClassSite) {
		for _, child := range syntax.Children(n) {
			if c, ok := Project(child, m, outer).(*ClassSite); ok {
				out = append(out, c)
				walk(syntax.Field(child, "body", syntax.KindDeclarationList), c)
				continue
			}
			if syntax.IsTypeDeclaration(child.Kind()) {
				// Interfaces own no fields but may nest classes.
				walk(syntax.Field(child, "body", syntax.KindDeclarationList), outer)
				continue
			}
			switch child.Kind() {
			case syntax.KindCompilationUnit, syntax.KindNamespace, syntax.KindFileScopedNamespace, syntax.KindDeclarationList:
				walk(child, outer)
			}
		}
	}
	walk(m.Document().Root(), nil)
	return out
}

// Fields returns every field site of the document in source order.
func Fields(m *model.Model) []*FieldSite {
	var out []*FieldSite
	for _, c := range Classes(m) {
		out = append(out, c.Fields...)
	}
	return out
}

// ClassOf projects the innermost class enclosing n.
func ClassOf(n *sitter.Node, m *model.Model) *ClassSite {
	decl := syntax.Ancestor(n, classKinds...)
	if decl == nil {
		return nil
	}
	var outer *ClassSite
	if parent := syntax.Ancestor(decl, classKinds...); parent != nil {
		outer = ClassOf(decl, m)
	}
	c, _ := Project(decl, m, outer).(*ClassSite)
	return c
}

// FieldAt relocates the field declaration containing offset, typically the
// start of a diagnostic span.
func FieldAt(m *model.Model, offset int) *FieldSite {
	node := syntax.DescendantAt(m.Document().Root(), offset, syntax.KindField)
	if node == nil {
		return nil
	}
	class := ClassOf(node, m)
	if class == nil {
		return nil
	}
	for _, f := range class.Fields {
		if syntax.SameNode(f.Node, node) {
			return f
		}
	}
	return nil
}
