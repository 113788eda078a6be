package model

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/syntax"
)

// frame is one level of the lookup chain, innermost first.
type frame struct {
	typ        *TypeRef
	typeParams []*TypeRef
	ns         *Namespace
	usings     []*usingSet
}

// usingSet holds the using directives of one compilation unit or namespace
// body.
type usingSet struct {
	doc        *syntax.Document
	namespaces []string
	aliases    map[string]*sitter.Node
}

func parseUsings(doc *syntax.Document, directives []*sitter.Node) *usingSet {
	set := &usingSet{doc: doc, aliases: make(map[string]*sitter.Node)}
	for _, u := range directives {
		if syntax.HasToken(u, "static") {
			continue
		}
		named := namedNonComment(u)
		if len(named) == 0 {
			continue
		}
		if eq := syntax.FindChildByType(u, "name_equals"); eq != nil {
			alias := syntax.FindChildByType(eq, syntax.KindIdentifier)
			set.aliases[doc.Text(alias)] = named[len(named)-1]
			continue
		}
		if syntax.HasToken(u, "=") && len(named) >= 2 {
			set.aliases[doc.Text(named[0])] = named[len(named)-1]
			continue
		}
		set.namespaces = append(set.namespaces, compactText(doc.Text(named[len(named)-1])))
	}
	return set
}

func namedNonComment(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range syntax.NamedChildren(n) {
		if c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// symbol is the result of a namespace-or-type lookup.
type symbol struct {
	ns  *Namespace
	typ *TypeRef
}

func (s symbol) found() bool { return s.ns != nil || s.typ != nil }

// resolver binds a compilation to the source of one document.
type resolver struct {
	comp *Compilation
	doc  *syntax.Document
}

func (r resolver) text(n *sitter.Node) string {
	return r.doc.Text(n)
}

// framesFor builds the lookup chain visible at n.
func (r resolver) framesFor(n *sitter.Node) []frame {
	var frames []frame
	var nsDecls []*sitter.Node
	var unit *sitter.Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case syntax.KindClass, syntax.KindStruct, syntax.KindRecord, syntax.KindRecordStruct, syntax.KindInterface:
			if t := r.comp.declared[keyOf(r.doc, p)]; t != nil {
				frames = append(frames, frame{typ: t})
			}
		case syntax.KindMethod, syntax.KindLocalFunction, syntax.KindDelegate:
			if tps := r.comp.methodTypeParameters(r.doc, p); len(tps) > 0 {
				frames = append(frames, frame{typeParams: tps})
			}
		case syntax.KindNamespace:
			nsDecls = append(nsDecls, p)
		case syntax.KindCompilationUnit:
			unit = p
		}
	}

	// Namespace declarations, outermost first, each contributing one frame
	// per dotted segment with its usings attached to the innermost segment.
	type level struct {
		path   string
		usings []*usingSet
	}
	var levels []level
	prefix := ""
	push := func(name string, usings *usingSet) {
		parts := strings.Split(name, ".")
		for i := range parts {
			path := strings.Join(parts[:i+1], ".")
			if prefix != "" {
				path = prefix + "." + path
			}
			var u []*usingSet
			if i == len(parts)-1 && usings != nil {
				u = []*usingSet{usings}
			}
			levels = append(levels, level{path: path, usings: u})
		}
		if prefix != "" {
			prefix += "." + name
		} else {
			prefix = name
		}
	}
	if fs := syntax.FindChildByType(unit, syntax.KindFileScopedNamespace); fs != nil {
		push(namespaceName(r.doc, fs), parseUsings(r.doc, syntax.FindChildrenByType(fs, syntax.KindUsingDirective)))
	}
	for i := len(nsDecls) - 1; i >= 0; i-- {
		d := nsDecls[i]
		body := syntax.Field(d, "body", syntax.KindDeclarationList)
		push(namespaceName(r.doc, d), parseUsings(r.doc, syntax.FindChildrenByType(body, syntax.KindUsingDirective)))
	}
	for i := len(levels) - 1; i >= 0; i-- {
		frames = append(frames, frame{ns: r.comp.global.descend(levels[i].path, false), usings: levels[i].usings})
	}

	global := frame{ns: r.comp.global}
	if unit != nil {
		global.usings = append(global.usings, parseUsings(r.doc, syntax.FindChildrenByType(unit, syntax.KindUsingDirective)))
	}
	global.usings = append(global.usings, r.comp.globalUses...)
	return append(frames, global)
}

// resolveType resolves a type syntax node. Nil means not a type.
func (r resolver) resolveType(n *sitter.Node, frames []frame) *TypeRef {
	return r.resolveNamespaceOrType(n, frames).typ
}

func (r resolver) resolveNamespaceOrType(n *sitter.Node, frames []frame) symbol {
	if n == nil {
		return symbol{}
	}
	switch n.Kind() {
	case syntax.KindIdentifier:
		return r.lookup(r.text(n), 0, frames)
	case syntax.KindGenericName:
		name, args := r.genericParts(n)
		def := r.lookup(name, len(args), frames).typ
		if def == nil || len(args) == 0 {
			return symbol{}
		}
		return symbol{typ: r.comp.construct(def, r.resolveArgs(args, frames))}
	case syntax.KindQualifiedName:
		left := r.resolveNamespaceOrType(syntax.Field(n, "qualifier"), frames)
		if syntax.Field(n, "qualifier") == nil {
			named := namedNonComment(n)
			if len(named) < 2 {
				return symbol{}
			}
			left = r.resolveNamespaceOrType(named[0], frames)
		}
		return r.member(left, qualifiedRight(n), frames)
	case syntax.KindAliasQualifiedName:
		alias := syntax.Field(n, "alias")
		if alias == nil {
			alias = n.Child(0)
		}
		var left symbol
		if r.text(alias) == "global" {
			left = symbol{ns: r.comp.global}
		} else {
			left = r.lookupAlias(r.text(alias), frames)
		}
		return r.member(left, qualifiedRight(n), frames)
	case syntax.KindPredefinedType:
		if t := r.comp.predefined[r.text(n)]; t != nil {
			return symbol{typ: t}
		}
		return symbol{}
	case syntax.KindNullableType:
		inner := syntax.Field(n, "type")
		if inner == nil {
			inner = n.NamedChild(0)
		}
		return r.resolveNamespaceOrType(inner, frames)
	}
	if named := namedNonComment(n); len(named) == 1 && n.Kind() != syntax.KindArrayType {
		return r.resolveNamespaceOrType(named[0], frames)
	}
	return symbol{}
}

func qualifiedRight(n *sitter.Node) *sitter.Node {
	if right := syntax.Field(n, "name"); right != nil {
		return right
	}
	named := namedNonComment(n)
	if len(named) == 0 {
		return nil
	}
	return named[len(named)-1]
}

// genericParts splits a generic_name into its identifier and argument nodes.
func (r resolver) genericParts(n *sitter.Node) (string, []*sitter.Node) {
	id := syntax.Field(n, "name", syntax.KindIdentifier)
	args := namedNonComment(syntax.FindChildByType(n, syntax.KindTypeArgumentList))
	return r.text(id), args
}

func (r resolver) resolveArgs(args []*sitter.Node, frames []frame) []*TypeRef {
	out := make([]*TypeRef, len(args))
	for i, a := range args {
		if t := r.resolveType(a, frames); t != nil {
			out[i] = t
		} else {
			out[i] = r.comp.errorType(r.text(a))
		}
	}
	return out
}

// member resolves the right-hand side of a qualified name against left.
func (r resolver) member(left symbol, right *sitter.Node, frames []frame) symbol {
	if right == nil || !left.found() {
		return symbol{}
	}
	name, args := r.text(right), []*sitter.Node(nil)
	if right.Kind() == syntax.KindGenericName {
		name, args = r.genericParts(right)
	}
	var def *TypeRef
	switch {
	case left.ns != nil:
		def = left.ns.Type(name, len(args))
		if def == nil && len(args) == 0 {
			if child := left.ns.child(name, false); child != nil {
				return symbol{ns: child}
			}
		}
	case left.typ != nil:
		def = left.typ.NestedType(name, len(args))
	}
	if def == nil {
		return symbol{}
	}
	return symbol{typ: r.comp.construct(def, r.resolveArgs(args, frames))}
}

// lookup finds a simple name of the given arity along frames.
func (r resolver) lookup(name string, arity int, frames []frame) symbol {
	for i, f := range frames {
		if f.typ != nil {
			if arity == 0 {
				for _, tp := range f.typ.Definition.TypeParameters {
					if tp.Name == name {
						return symbol{typ: tp}
					}
				}
			}
			if t := f.typ.NestedType(name, arity); t != nil {
				return symbol{typ: t}
			}
		}
		if arity == 0 {
			for _, tp := range f.typeParams {
				if tp.Name == name {
					return symbol{typ: tp}
				}
			}
		}
		if f.ns == nil {
			continue
		}
		if t := f.ns.Type(name, arity); t != nil {
			return symbol{typ: t}
		}
		if arity == 0 {
			if child := f.ns.child(name, false); child != nil {
				return symbol{ns: child}
			}
		}
		for _, set := range f.usings {
			if target, ok := set.aliases[name]; ok && arity == 0 {
				return r.resolveAliasTarget(set, target, frames[i:])
			}
		}
		for _, set := range f.usings {
			for _, imported := range set.namespaces {
				if t := r.comp.global.descend(imported, false).Type(name, arity); t != nil {
					return symbol{typ: t}
				}
			}
		}
	}
	return symbol{}
}

func (r resolver) lookupAlias(name string, frames []frame) symbol {
	for i, f := range frames {
		for _, set := range f.usings {
			if target, ok := set.aliases[name]; ok {
				return r.resolveAliasTarget(set, target, frames[i:])
			}
		}
	}
	return symbol{}
}

// resolveAliasTarget resolves the right-hand side of a using alias in the
// scope that declares it, without that scope's own using directives.
func (r resolver) resolveAliasTarget(set *usingSet, target *sitter.Node, frames []frame) symbol {
	scope := append([]frame{{ns: frames[0].ns}}, frames[1:]...)
	return resolver{comp: r.comp, doc: set.doc}.resolveNamespaceOrType(target, scope)
}
