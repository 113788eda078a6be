package syntax

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Node kinds of the C# grammar the analyzer cares about.
const (
	KindCompilationUnit       = "compilation_unit"
	KindNamespace             = "namespace_declaration"
	KindFileScopedNamespace   = "file_scoped_namespace_declaration"
	KindUsingDirective        = "using_directive"
	KindDeclarationList       = "declaration_list"
	KindClass                 = "class_declaration"
	KindStruct                = "struct_declaration"
	KindRecord                = "record_declaration"
	KindRecordStruct          = "record_struct_declaration"
	KindInterface             = "interface_declaration"
	KindEnum                  = "enum_declaration"
	KindDelegate              = "delegate_declaration"
	KindField                 = "field_declaration"
	KindEvent                 = "event_field_declaration"
	KindProperty              = "property_declaration"
	KindMethod                = "method_declaration"
	KindEventDeclaration      = "event_declaration"
	KindConstructor           = "constructor_declaration"
	KindConstructorInit       = "constructor_initializer"
	KindLocalFunction         = "local_function_statement"
	KindVariableDeclaration   = "variable_declaration"
	KindVariableDeclarator    = "variable_declarator"
	KindParameterList         = "parameter_list"
	KindParameter             = "parameter"
	KindArgumentList          = "argument_list"
	KindArgument              = "argument"
	KindNameColon             = "name_colon"
	KindAttributeList         = "attribute_list"
	KindModifier              = "modifier"
	KindBaseList              = "base_list"
	KindPrimaryCtorBase       = "primary_constructor_base_type"
	KindTypeParameterList     = "type_parameter_list"
	KindTypeParameter         = "type_parameter"
	KindTypeArgumentList      = "type_argument_list"
	KindIdentifier            = "identifier"
	KindGenericName           = "generic_name"
	KindQualifiedName         = "qualified_name"
	KindAliasQualifiedName    = "alias_qualified_name"
	KindPredefinedType        = "predefined_type"
	KindNullableType          = "nullable_type"
	KindArrayType             = "array_type"
	KindBlock                 = "block"
	KindArrowExpression       = "arrow_expression_clause"
	KindDeclarationExpr       = "declaration_expression"
	KindForeach               = "foreach_statement"
	KindCatchDeclaration      = "catch_declaration"
	KindEqualsValueClause     = "equals_value_clause"
	KindEnumMemberDeclaration = "enum_member_declaration"
)

// IsTypeDeclaration reports whether kind declares a named type.
func IsTypeDeclaration(kind string) bool {
	switch kind {
	case KindClass, KindStruct, KindRecord, KindRecordStruct, KindInterface, KindEnum, KindDelegate:
		return true
	}
	return false
}

// Text extracts the source text covered by a node.
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start > uint(len(src)) || end > uint(len(src)) || start > end {
		return ""
	}
	return string(src[start:end])
}

// FindChildByType finds the first child node of the given kind.
func FindChildByType(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// FindChildrenByType finds all child nodes of the given kind.
func FindChildrenByType(n *sitter.Node, kind string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.Kind() == kind {
			out = append(out, child)
		}
	}
	return out
}

// Children returns every child of n, anonymous tokens included.
func Children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// NamedChildren returns the named children of n.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// HasToken reports whether n has a direct anonymous child with the given text,
// e.g. "base" inside a constructor_initializer.
func HasToken(n *sitter.Node, token string) bool {
	if n == nil {
		return false
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}

// Field returns the child stored under field name, falling back to the first
// child whose kind is one of kinds when the grammar version lacks the field.
func Field(n *sitter.Node, name string, kinds ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	if child := n.ChildByFieldName(name); child != nil {
		return child
	}
	for _, kind := range kinds {
		if child := FindChildByType(n, kind); child != nil {
			return child
		}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from visit
// skips the children of the visited node.
func Walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		Walk(n.Child(i), visit)
	}
}

// FirstDescendant returns the first node of kind in pre-order, n included.
func FirstDescendant(n *sitter.Node, kind string) *sitter.Node {
	var found *sitter.Node
	Walk(n, func(c *sitter.Node) bool {
		if found != nil {
			return false
		}
		if c.Kind() == kind {
			found = c
			return false
		}
		return true
	})
	return found
}

// Descendants returns every node of kind under n in pre-order, n included.
func Descendants(n *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	Walk(n, func(c *sitter.Node) bool {
		if c.Kind() == kind {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Ancestor returns the nearest strict ancestor of n whose kind is in kinds.
func Ancestor(n *sitter.Node, kinds ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, kind := range kinds {
			if p.Kind() == kind {
				return p
			}
		}
	}
	return nil
}

// SameNode reports whether a and b denote the same node of one tree.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// Covers reports whether outer fully contains inner.
func Covers(outer, inner *sitter.Node) bool {
	if outer == nil || inner == nil {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}

// DescendantAt returns the smallest node of one of kinds that contains offset.
func DescendantAt(root *sitter.Node, offset int, kinds ...string) *sitter.Node {
	var best *sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if offset < int(n.StartByte()) || offset >= int(n.EndByte()) {
			return false
		}
		for _, kind := range kinds {
			if n.Kind() == kind {
				best = n
				break
			}
		}
		return true
	})
	return best
}

// HasModifier reports whether a declaration carries modifier text, e.g. "static".
func HasModifier(decl *sitter.Node, modifier string, src []byte) bool {
	for _, m := range FindChildrenByType(decl, KindModifier) {
		if Text(m, src) == modifier {
			return true
		}
	}
	return false
}

// DeclaredName returns the identifier node that names a declaration.
func DeclaredName(decl *sitter.Node) *sitter.Node {
	return Field(decl, "name", KindIdentifier)
}
