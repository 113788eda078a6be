package model

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/syntax"
)

// Model answers semantic questions about the nodes of one document. It
// keeps no caches, so a Model is only as fresh as the tree it was built for.
type Model struct {
	resolver
}

// Compilation returns the compilation the model resolves against.
func (m *Model) Compilation() *Compilation {
	return m.comp
}

// Document returns the document the model was built for.
func (m *Model) Document() *syntax.Document {
	return m.doc
}

// TypeOf resolves a type syntax node (identifier, generic, qualified,
// alias-qualified, predefined or nullable name). It returns nil when the
// node does not denote a type.
func (m *Model) TypeOf(n *sitter.Node) *TypeRef {
	if n == nil {
		return nil
	}
	return m.resolveType(n, m.framesFor(n))
}

// TypeOfOrError is TypeOf, with unresolved names mapped to interned error
// types carrying their source text.
func (m *Model) TypeOfOrError(n *sitter.Node) *TypeRef {
	if t := m.TypeOf(n); t != nil {
		return t
	}
	if n == nil {
		return nil
	}
	return m.comp.errorType(m.text(n))
}

// DeclaredType returns the TypeRef declared by a type declaration node.
func (m *Model) DeclaredType(decl *sitter.Node) *TypeRef {
	if decl == nil {
		return nil
	}
	return m.comp.declared[keyOf(m.doc, decl)]
}

// VisibleNames returns the names a new parameter of ctor could collide with:
// its parameters, every local it declares, and the members of the enclosing
// types including inherited ones.
func (m *Model) VisibleNames(ctor *sitter.Node) map[string]bool {
	names := make(map[string]bool)
	if ctor == nil {
		return names
	}

	params := syntax.Field(ctor, "parameters", syntax.KindParameterList)
	for _, p := range syntax.FindChildrenByType(params, syntax.KindParameter) {
		if id := syntax.Field(p, "name", syntax.KindIdentifier); id != nil {
			names[m.text(id)] = true
		}
	}

	for _, child := range syntax.Children(ctor) {
		if child.Kind() != syntax.KindBlock && child.Kind() != syntax.KindArrowExpression {
			continue
		}
		syntax.Walk(child, func(n *sitter.Node) bool {
			switch n.Kind() {
			case syntax.KindVariableDeclarator, syntax.KindParameter, syntax.KindLocalFunction, syntax.KindCatchDeclaration, syntax.KindDeclarationExpr:
				if id := syntax.Field(n, "name", syntax.KindIdentifier); id != nil {
					names[m.text(id)] = true
				}
			case "single_variable_designation":
				names[m.text(n)] = true
			case syntax.KindForeach:
				if id := syntax.Field(n, "left"); id != nil && id.Kind() == syntax.KindIdentifier {
					names[m.text(id)] = true
				}
			}
			return true
		})
	}

	for p := ctor.Parent(); p != nil; p = p.Parent() {
		t := m.DeclaredType(p)
		if t == nil {
			continue
		}
		for _, name := range t.MemberNames() {
			names[name] = true
		}
		for _, tp := range t.TypeParameters {
			names[tp.Name] = true
		}
	}
	return names
}
