// Package sites projects declaration nodes into the read-only views the
// detector and repair engine operate on. Sites are recomputed from the
// current tree on every call and never cached.
package sites

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/syntax"
)

// Site is one of *ClassSite, *FieldSite, *ConstructorSite or *ParameterSite.
type Site interface {
	site()
}

// ClassSite is a class, struct or record declaration.
type ClassSite struct {
	Node     *sitter.Node
	NameNode *sitter.Node
	Name     string
	// TypeParameterNames are the owner's own type parameters, in order.
	TypeParameterNames []string
	Type               *model.TypeRef
	DisplayName        string
	IsStatic           bool
	BaseType           *model.TypeRef
	BaseTypeNode       *sitter.Node
	Fields             []*FieldSite
	Constructors       []*ConstructorSite
	Outer              *ClassSite
}

// FieldSite is a field declaration with its declared type.
type FieldSite struct {
	Node     *sitter.Node
	TypeNode *sitter.Node
	Type     *model.TypeRef
	Names    []string
	Class    *ClassSite
}

// ConstructorSite is a constructor declared directly on a class.
type ConstructorSite struct {
	Node            *sitter.Node
	ParameterList   *sitter.Node
	Parameters      []*ParameterSite
	BaseInitializer *BaseInitializerSite
	// ChainsToThis is set for ": this(...)" initializers, which are never
	// treated as base initializers.
	ChainsToThis bool
	Class        *ClassSite
}

// ParameterSite is one constructor parameter.
type ParameterSite struct {
	Node          *sitter.Node
	TypeNode      *sitter.Node
	NameNode      *sitter.Node
	Type          *model.TypeRef
	Name          string
	HasAttributes bool
	HasDefault    bool
}

// BaseInitializerSite is a ": base(...)" constructor initializer.
type BaseInitializerSite struct {
	Node         *sitter.Node
	ArgumentList *sitter.Node
	Arguments    []*ArgumentSite
}

// ArgumentSite is one argument of a base initializer.
type ArgumentSite struct {
	Node       *sitter.Node
	Expression *sitter.Node
	// Name is the label of a named argument ("logger: x"), empty otherwise.
	Name string
}

func (*ClassSite) site()       {}
func (*FieldSite) site()       {}
func (*ConstructorSite) site() {}
func (*ParameterSite) site()   {}

// Project maps a node to its site, or nil when the node kind has none.
// owner is required for fields and constructors.
func Project(n *sitter.Node, m *model.Model, owner *ClassSite) Site {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case syntax.KindClass, syntax.KindStruct, syntax.KindRecord, syntax.KindRecordStruct:
		return projectClass(n, m, owner)
	case syntax.KindField:
		if owner == nil {
			return nil
		}
		if f := projectField(n, m, owner); f != nil {
			return f
		}
		return nil
	case syntax.KindConstructor:
		if owner == nil {
			return nil
		}
		return projectConstructor(n, m, owner)
	case syntax.KindParameter:
		return projectParameter(n, m)
	}
	return nil
}

func projectClass(n *sitter.Node, m *model.Model, outer *ClassSite) *ClassSite {
	doc := m.Document()
	c := &ClassSite{
		Node:     n,
		NameNode: syntax.DeclaredName(n),
		Type:     m.DeclaredType(n),
		IsStatic: syntax.HasModifier(n, "static", doc.Source),
		Outer:    outer,
	}
	c.Name = doc.Text(c.NameNode)
	list := syntax.FindChildByType(n, syntax.KindTypeParameterList)
	for _, tp := range syntax.FindChildrenByType(list, syntax.KindTypeParameter) {
		id := syntax.Field(tp, "name", syntax.KindIdentifier)
		if id == nil {
			id = tp
		}
		c.TypeParameterNames = append(c.TypeParameterNames, doc.Text(id))
	}

	c.DisplayName = c.Name
	if c.Type != nil {
		c.DisplayName = c.Type.DisplayName()
		c.IsStatic = c.IsStatic || c.Type.IsStatic
		c.BaseType = c.Type.BaseType()
	}
	if bl := syntax.FindChildByType(n, syntax.KindBaseList); bl != nil && c.BaseType != nil {
		c.BaseTypeNode = model.FirstBaseEntry(bl)
	}

	body := syntax.Field(n, "body", syntax.KindDeclarationList)
	for _, member := range syntax.Children(body) {
		switch s := Project(member, m, c).(type) {
		case *FieldSite:
			c.Fields = append(c.Fields, s)
		case *ConstructorSite:
			c.Constructors = append(c.Constructors, s)
		}
	}
	return c
}

func projectField(n *sitter.Node, m *model.Model, owner *ClassSite) *FieldSite {
	decl := syntax.FindChildByType(n, syntax.KindVariableDeclaration)
	if decl == nil {
		return nil
	}
	f := &FieldSite{Node: n, TypeNode: declaredType(decl), Class: owner}
	f.Type = m.TypeOf(f.TypeNode)
	for _, v := range syntax.FindChildrenByType(decl, syntax.KindVariableDeclarator) {
		if id := syntax.Field(v, "name", syntax.KindIdentifier); id != nil {
			f.Names = append(f.Names, m.Document().Text(id))
		}
	}
	return f
}

// declaredType returns the type node of a variable_declaration.
func declaredType(decl *sitter.Node) *sitter.Node {
	if t := decl.ChildByFieldName("type"); t != nil {
		return t
	}
	for _, c := range syntax.NamedChildren(decl) {
		if c.Kind() != syntax.KindVariableDeclarator && c.Kind() != "comment" {
			return c
		}
	}
	return nil
}

func projectConstructor(n *sitter.Node, m *model.Model, owner *ClassSite) *ConstructorSite {
	c := &ConstructorSite{
		Node:          n,
		ParameterList: syntax.Field(n, "parameters", syntax.KindParameterList),
		Class:         owner,
	}
	for _, p := range syntax.FindChildrenByType(c.ParameterList, syntax.KindParameter) {
		c.Parameters = append(c.Parameters, projectParameter(p, m))
	}

	init := syntax.FindChildByType(n, syntax.KindConstructorInit)
	switch {
	case init == nil:
	case syntax.HasToken(init, "this"):
		c.ChainsToThis = true
	case syntax.HasToken(init, "base"):
		c.BaseInitializer = projectBaseInitializer(init, m)
	}
	return c
}

func projectParameter(n *sitter.Node, m *model.Model) *ParameterSite {
	doc := m.Document()
	p := &ParameterSite{
		Node:          n,
		NameNode:      syntax.Field(n, "name", syntax.KindIdentifier),
		HasAttributes: syntax.FindChildByType(n, syntax.KindAttributeList) != nil,
		HasDefault:    syntax.FindChildByType(n, syntax.KindEqualsValueClause) != nil || syntax.HasToken(n, "="),
	}
	p.Name = doc.Text(p.NameNode)
	p.TypeNode = n.ChildByFieldName("type")
	if p.TypeNode == nil {
		// The type is the named child right before the identifier.
		var prev *sitter.Node
		for _, c := range syntax.NamedChildren(n) {
			if syntax.SameNode(c, p.NameNode) {
				break
			}
			if c.Kind() != syntax.KindAttributeList && c.Kind() != syntax.KindModifier && c.Kind() != "comment" {
				prev = c
			}
		}
		p.TypeNode = prev
	}
	p.Type = m.TypeOf(p.TypeNode)
	return p
}

func projectBaseInitializer(init *sitter.Node, m *model.Model) *BaseInitializerSite {
	doc := m.Document()
	b := &BaseInitializerSite{Node: init, ArgumentList: syntax.FindChildByType(init, syntax.KindArgumentList)}
	for _, arg := range syntax.FindChildrenByType(b.ArgumentList, syntax.KindArgument) {
		var named []*sitter.Node
		for _, c := range syntax.NamedChildren(arg) {
			if c.Kind() != "comment" {
				named = append(named, c)
			}
		}
		if len(named) == 0 {
			continue
		}
		a := &ArgumentSite{Node: arg, Expression: named[len(named)-1]}
		if nc := syntax.FindChildByType(arg, syntax.KindNameColon); nc != nil {
			a.Name = doc.Text(syntax.FindChildByType(nc, syntax.KindIdentifier))
		} else if label := arg.ChildByFieldName("name"); label != nil && !syntax.SameNode(label, a.Expression) {
			a.Name = doc.Text(label)
		}
		b.Arguments = append(b.Arguments, a)
	}
	return b
}
