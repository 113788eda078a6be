package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/syntax"
)

type declKey struct {
	path       string
	start, end uint
}

func keyOf(doc *syntax.Document, n *sitter.Node) declKey {
	return declKey{path: doc.Path, start: n.StartByte(), end: n.EndByte()}
}

type declSite struct {
	doc  *syntax.Document
	node *sitter.Node
}

// Compilation indexes the type declarations of a set of documents. It is
// immutable once NewCompilation returns, apart from the intern tables which
// are guarded by mu, so Models over it may be used from several goroutines.
type Compilation struct {
	global     *Namespace
	docs       map[string]*syntax.Document
	order      []string
	externs    []ExternType
	declared   map[declKey]*TypeRef
	predefined map[string]*TypeRef
	globalUses []*usingSet

	mu          sync.Mutex
	constructed map[string]*TypeRef
	errorTypes  map[string]*TypeRef
	methodTPs   map[declKey][]*TypeRef
}

// Option configures a Compilation.
type Option func(*Compilation)

// WithExternTypes registers additional framework types.
func WithExternTypes(types ...ExternType) Option {
	return func(c *Compilation) {
		c.externs = append(c.externs, types...)
	}
}

// NewCompilation indexes docs. Documents stay owned by the caller; the
// compilation must not outlive them.
func NewCompilation(docs []*syntax.Document, opts ...Option) *Compilation {
	c := &Compilation{
		global:      newNamespace("", nil),
		docs:        make(map[string]*syntax.Document, len(docs)),
		externs:     append([]ExternType(nil), DefaultExternTypes...),
		declared:    make(map[declKey]*TypeRef),
		predefined:  make(map[string]*TypeRef),
		constructed: make(map[string]*TypeRef),
		errorTypes:  make(map[string]*TypeRef),
		methodTPs:   make(map[declKey][]*TypeRef),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, doc := range docs {
		if doc == nil || doc.Root() == nil {
			continue
		}
		if _, dup := c.docs[doc.Path]; !dup {
			c.order = append(c.order, doc.Path)
		}
		c.docs[doc.Path] = doc
	}
	for _, path := range c.order {
		c.indexDocument(c.docs[path])
	}
	for _, ext := range c.externs {
		c.declareExtern(ext)
	}
	for _, kw := range predefinedKeywords {
		t := &TypeRef{Name: kw, ContainingNamespace: "System", Kind: KindPredefined, External: true}
		t.Definition = t
		c.predefined[kw] = t
	}
	for _, t := range c.declaredTypes() {
		c.resolveBase(t)
	}

	debug.Log(debug.ComponentModel, "indexed %d documents, %d type declarations\n", len(c.order), len(c.declared))
	return c
}

// Replace returns a compilation in which doc takes the place of the document
// with the same path. The receiver is not modified.
func (c *Compilation) Replace(doc *syntax.Document) *Compilation {
	docs := make([]*syntax.Document, 0, len(c.order)+1)
	replaced := false
	for _, path := range c.order {
		if path == doc.Path {
			docs = append(docs, doc)
			replaced = true
			continue
		}
		docs = append(docs, c.docs[path])
	}
	if !replaced {
		docs = append(docs, doc)
	}
	return NewCompilation(docs, WithExternTypes(c.externs[len(DefaultExternTypes):]...))
}

// Documents returns the indexed documents in load order.
func (c *Compilation) Documents() []*syntax.Document {
	out := make([]*syntax.Document, 0, len(c.order))
	for _, path := range c.order {
		out = append(out, c.docs[path])
	}
	return out
}

// Document returns the indexed document for path.
func (c *Compilation) Document(path string) *syntax.Document {
	return c.docs[path]
}

// LookupType finds a type by metadata name, e.g. "App.Outer+Inner`1".
func (c *Compilation) LookupType(metadataName string) *TypeRef {
	outer, inner, nested := strings.Cut(metadataName, "+")
	ns, name, arity, err := splitMetadataName(outer)
	if err != nil {
		return nil
	}
	t := c.global.descend(ns, false).Type(name, arity)
	for nested && t != nil {
		var rest string
		inner, rest, nested = strings.Cut(inner, "+")
		_, n, a, err := splitMetadataName(inner)
		if err != nil {
			return nil
		}
		t = t.nested[typeKey(n, a)]
		inner = rest
	}
	return t
}

// Model returns the resolver for one indexed document.
func (c *Compilation) Model(doc *syntax.Document) *Model {
	return &Model{resolver: resolver{comp: c, doc: doc}}
}

func (c *Compilation) declaredTypes() []*TypeRef {
	seen := make(map[*TypeRef]bool)
	var out []*TypeRef
	for _, t := range c.declared {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetadataName() < out[j].MetadataName() })
	return out
}

func (c *Compilation) indexDocument(doc *syntax.Document) {
	c.indexMembers(doc, doc.Root(), c.global, nil)
}

func (c *Compilation) indexMembers(doc *syntax.Document, n *sitter.Node, ns *Namespace, outer *TypeRef) {
	for _, child := range syntax.Children(n) {
		switch child.Kind() {
		case syntax.KindNamespace:
			inner := ns.descend(namespaceName(doc, child), true)
			body := syntax.Field(child, "body", syntax.KindDeclarationList)
			c.indexMembers(doc, body, inner, nil)
		case syntax.KindFileScopedNamespace:
			// Members may be children of the declaration or its later siblings
			// depending on the grammar version.
			ns = ns.descend(namespaceName(doc, child), true)
			c.indexMembers(doc, child, ns, nil)
		case syntax.KindUsingDirective:
			if syntax.HasToken(child, "global") {
				c.globalUses = append(c.globalUses, parseUsings(doc, []*sitter.Node{child}))
			}
		case syntax.KindDeclarationList:
			c.indexMembers(doc, child, ns, outer)
		default:
			if syntax.IsTypeDeclaration(child.Kind()) {
				c.declareType(doc, child, ns, outer)
			}
		}
	}
}

func namespaceName(doc *syntax.Document, decl *sitter.Node) string {
	name := syntax.Field(decl, "name", syntax.KindQualifiedName, syntax.KindIdentifier)
	return compactText(doc.Text(name))
}

func compactText(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func declKind(n *sitter.Node) TypeKind {
	switch n.Kind() {
	case syntax.KindClass:
		return KindClass
	case syntax.KindStruct, syntax.KindRecordStruct:
		return KindStruct
	case syntax.KindRecord:
		if syntax.HasToken(n, "struct") {
			return KindStruct
		}
		return KindRecord
	case syntax.KindInterface:
		return KindInterface
	case syntax.KindEnum:
		return KindEnum
	case syntax.KindDelegate:
		return KindDelegate
	}
	return KindError
}

// typeParameterNames returns the declared type parameter names of a type,
// method or delegate declaration.
func typeParameterNames(doc *syntax.Document, decl *sitter.Node) []string {
	list := syntax.FindChildByType(decl, syntax.KindTypeParameterList)
	var names []string
	for _, tp := range syntax.FindChildrenByType(list, syntax.KindTypeParameter) {
		id := syntax.Field(tp, "name", syntax.KindIdentifier)
		if id == nil && tp.NamedChildCount() == 0 {
			id = tp
		}
		if id != nil {
			names = append(names, doc.Text(id))
		}
	}
	return names
}

func (c *Compilation) declareType(doc *syntax.Document, n *sitter.Node, ns *Namespace, outer *TypeRef) {
	nameNode := syntax.DeclaredName(n)
	if nameNode == nil {
		return
	}
	name := doc.Text(nameNode)
	tparams := typeParameterNames(doc, n)
	key := typeKey(name, len(tparams))

	container := ns.types
	if outer != nil {
		container = outer.nested
	}

	t := container[key]
	if t == nil || t.External {
		t = &TypeRef{
			Name:                name,
			ContainingNamespace: ns.Name,
			ContainingType:      outer,
			Kind:                declKind(n),
			members:             make(map[string]bool),
			nested:              make(map[string]*TypeRef),
		}
		t.Definition = t
		for _, tp := range tparams {
			p := &TypeRef{Name: tp, Kind: KindTypeParameter, ContainingType: t}
			p.Definition = p
			t.TypeParameters = append(t.TypeParameters, p)
		}
		container[key] = t
	}
	if syntax.HasModifier(n, "static", doc.Source) {
		t.IsStatic = true
	}
	t.decls = append(t.decls, declSite{doc: doc, node: n})
	c.declared[keyOf(doc, n)] = t
	if outer != nil {
		outer.members[name] = true
	}

	// Record and primary-constructor parameters are in scope in the body.
	for _, p := range syntax.FindChildrenByType(syntax.FindChildByType(n, syntax.KindParameterList), syntax.KindParameter) {
		if id := syntax.Field(p, "name", syntax.KindIdentifier); id != nil {
			t.members[doc.Text(id)] = true
		}
	}

	body := syntax.Field(n, "body", syntax.KindDeclarationList)
	if n.Kind() == syntax.KindEnum {
		body = syntax.Field(n, "body", "enum_member_declaration_list")
	}
	for _, m := range syntax.Children(body) {
		switch m.Kind() {
		case syntax.KindField, syntax.KindEvent:
			decl := syntax.FindChildByType(m, syntax.KindVariableDeclaration)
			for _, v := range syntax.FindChildrenByType(decl, syntax.KindVariableDeclarator) {
				if id := syntax.Field(v, "name", syntax.KindIdentifier); id != nil {
					t.members[doc.Text(id)] = true
				}
			}
		case syntax.KindProperty, syntax.KindMethod, syntax.KindEventDeclaration, syntax.KindEnumMemberDeclaration:
			if id := syntax.DeclaredName(m); id != nil {
				t.members[doc.Text(id)] = true
			}
		default:
			if syntax.IsTypeDeclaration(m.Kind()) {
				c.declareType(doc, m, ns, t)
			}
		}
	}
}

func (c *Compilation) declareExtern(ext ExternType) {
	nsName, name, arity, err := splitMetadataName(ext.MetadataName)
	if err != nil {
		debug.Log(debug.ComponentModel, "skipping extern type %q: %v\n", ext.MetadataName, err)
		return
	}
	ns := c.global.descend(nsName, true)
	key := typeKey(name, arity)
	if ns.types[key] != nil {
		return
	}
	t := &TypeRef{
		Name:                name,
		ContainingNamespace: nsName,
		Kind:                ext.Kind,
		External:            true,
		members:             make(map[string]bool),
		nested:              make(map[string]*TypeRef),
		baseState:           baseResolved,
	}
	t.Definition = t
	for i := 0; i < arity; i++ {
		pname := "T"
		if arity > 1 {
			pname = fmt.Sprintf("T%d", i+1)
		}
		p := &TypeRef{Name: pname, Kind: KindTypeParameter, ContainingType: t}
		p.Definition = p
		t.TypeParameters = append(t.TypeParameters, p)
	}
	ns.types[key] = t
}

// resolveBase resolves the base class of a source type from the first entry
// of its base list. Cycles are cut by the resolving state.
func (c *Compilation) resolveBase(t *TypeRef) {
	if t.baseState != baseUnresolved {
		return
	}
	t.baseState = baseResolving
	defer func() { t.baseState = baseResolved }()

	if t.Kind != KindClass && t.Kind != KindRecord {
		return
	}
	for _, d := range t.decls {
		list := syntax.FindChildByType(d.node, syntax.KindBaseList)
		if list == nil {
			continue
		}
		first := FirstBaseEntry(list)
		if first == nil {
			continue
		}
		r := resolver{comp: c, doc: d.doc}
		ref := r.resolveType(first, r.framesFor(first))
		if ref == nil {
			ref = c.errorType(d.doc.Text(first))
		}
		if ref.Definition.Kind != KindError {
			c.resolveBase(ref.Definition)
		}
		if isBaseClassCandidate(ref) {
			t.base = ref
			return
		}
	}
}

// FirstBaseEntry returns the type node of the first base_list entry,
// unwrapping a primary-constructor base call.
func FirstBaseEntry(list *sitter.Node) *sitter.Node {
	for _, entry := range syntax.NamedChildren(list) {
		switch entry.Kind() {
		case "comment":
			continue
		case syntax.KindPrimaryCtorBase:
			if typ := syntax.Field(entry, "type", syntax.KindIdentifier, syntax.KindGenericName, syntax.KindQualifiedName); typ != nil {
				return typ
			}
			return entry.NamedChild(0)
		}
		return entry
	}
	return nil
}

// isBaseClassCandidate decides whether the first base-list entry is a class.
// Unresolved names count as classes unless they follow the IName interface
// convention.
func isBaseClassCandidate(ref *TypeRef) bool {
	switch ref.Kind {
	case KindClass, KindRecord:
		return true
	case KindPredefined:
		return ref.Name == "object"
	case KindError:
		return !looksLikeInterface(ref.Name)
	}
	return false
}

func looksLikeInterface(name string) bool {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return len(name) >= 2 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

// construct interns the instantiation of def with args.
func (c *Compilation) construct(def *TypeRef, args []*TypeRef) *TypeRef {
	if len(args) == 0 {
		return def
	}
	same := len(args) == len(def.TypeParameters)
	for i := 0; same && i < len(args); i++ {
		same = args[i] == def.TypeParameters[i]
	}
	if same {
		return def
	}

	var key strings.Builder
	fmt.Fprintf(&key, "%p", def)
	for _, a := range args {
		fmt.Fprintf(&key, ",%p", a)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.constructed[key.String()]; t != nil {
		return t
	}
	t := &TypeRef{
		Name:                def.Name,
		ContainingNamespace: def.ContainingNamespace,
		ContainingType:      def.ContainingType,
		Kind:                def.Kind,
		IsStatic:            def.IsStatic,
		External:            def.External,
		TypeArguments:       append([]*TypeRef(nil), args...),
		Definition:          def,
	}
	c.constructed[key.String()] = t
	return t
}

// errorType interns a placeholder for a name that did not resolve, keyed by
// its whitespace-free text.
func (c *Compilation) errorType(text string) *TypeRef {
	text = compactText(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.errorTypes[text]; t != nil {
		return t
	}
	t := &TypeRef{Name: text, Kind: KindError}
	t.Definition = t
	c.errorTypes[text] = t
	return t
}

// methodTypeParameters interns the type parameters of a generic method,
// local function or delegate.
func (c *Compilation) methodTypeParameters(doc *syntax.Document, decl *sitter.Node) []*TypeRef {
	key := keyOf(doc, decl)
	c.mu.Lock()
	defer c.mu.Unlock()
	if tps, ok := c.methodTPs[key]; ok {
		return tps
	}
	var tps []*TypeRef
	for _, name := range typeParameterNames(doc, decl) {
		p := &TypeRef{Name: name, Kind: KindTypeParameter}
		p.Definition = p
		tps = append(tps, p)
	}
	c.methodTPs[key] = tps
	return tps
}
