package model

import "strings"

// Namespace is one node of the namespace tree of a Compilation.
type Namespace struct {
	Name     string
	parent   *Namespace
	children map[string]*Namespace
	types    map[string]*TypeRef
}

func newNamespace(name string, parent *Namespace) *Namespace {
	return &Namespace{
		Name:     name,
		parent:   parent,
		children: make(map[string]*Namespace),
		types:    make(map[string]*TypeRef),
	}
}

// child returns the direct child namespace, creating it when create is set.
func (ns *Namespace) child(name string, create bool) *Namespace {
	if c := ns.children[name]; c != nil || !create {
		return c
	}
	full := name
	if ns.Name != "" {
		full = ns.Name + "." + name
	}
	c := newNamespace(full, ns)
	ns.children[name] = c
	return c
}

// descend walks a dotted path below ns.
func (ns *Namespace) descend(path string, create bool) *Namespace {
	cur := ns
	if path == "" {
		return cur
	}
	for _, part := range strings.Split(path, ".") {
		if cur = cur.child(part, create); cur == nil {
			return nil
		}
	}
	return cur
}

// Type returns the type declared directly in ns with the given arity.
func (ns *Namespace) Type(name string, arity int) *TypeRef {
	if ns == nil {
		return nil
	}
	return ns.types[typeKey(name, arity)]
}
