// Package model resolves C# type references to TypeRefs. It covers what the
// logger rule needs: namespaces, usings and aliases, declared and nested
// types, generic instantiation, base classes and member names.
package model

import (
	"strconv"
	"strings"
)

// TypeKind classifies a TypeRef.
type TypeKind int

const (
	KindError TypeKind = iota
	KindClass
	KindStruct
	KindRecord
	KindInterface
	KindEnum
	KindDelegate
	KindTypeParameter
	KindPredefined
)

var kindNames = [...]string{
	KindError:         "error",
	KindClass:         "class",
	KindStruct:        "struct",
	KindRecord:        "record",
	KindInterface:     "interface",
	KindEnum:          "enum",
	KindDelegate:      "delegate",
	KindTypeParameter: "type_parameter",
	KindPredefined:    "predefined",
}

func (k TypeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "TypeKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseTypeKind maps a kind name back to a TypeKind.
func ParseTypeKind(s string) (TypeKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return TypeKind(k), true
		}
	}
	return KindError, false
}

// TypeRef is a resolved type. TypeRefs are interned by their Compilation, so
// two references to the same type compare equal with ==.
type TypeRef struct {
	Name                string
	ContainingNamespace string
	ContainingType      *TypeRef
	Kind                TypeKind
	IsStatic            bool
	External            bool

	// TypeParameters is set on generic definitions, TypeArguments on
	// constructed instances.
	TypeParameters []*TypeRef
	TypeArguments  []*TypeRef

	// Definition is the generic definition of a constructed type and the
	// type itself otherwise.
	Definition *TypeRef

	base      *TypeRef
	baseState int
	members   map[string]bool
	nested    map[string]*TypeRef
	decls     []declSite
}

const (
	baseUnresolved = iota
	baseResolving
	baseResolved
)

func typeKey(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(arity)
}

// Arity returns the number of type parameters of the definition.
func (t *TypeRef) Arity() int {
	return len(t.Definition.TypeParameters)
}

// IsConstructed reports whether t is a generic instantiation.
func (t *TypeRef) IsConstructed() bool {
	return t.Definition != t
}

// BaseType returns the resolved base class, or nil when there is none or it
// could not be determined.
func (t *TypeRef) BaseType() *TypeRef {
	if t == nil {
		return nil
	}
	return t.Definition.base
}

// DisplayName renders the fully qualified name with generic arguments,
// e.g. "App.Services.Repository<int>".
func (t *TypeRef) DisplayName() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	t.writeDisplay(&b)
	return b.String()
}

func (t *TypeRef) String() string {
	return t.DisplayName()
}

func (t *TypeRef) writeDisplay(b *strings.Builder) {
	switch t.Kind {
	case KindPredefined, KindTypeParameter, KindError:
		b.WriteString(t.Name)
		return
	}
	if t.ContainingType != nil {
		t.ContainingType.writeDisplay(b)
		b.WriteByte('.')
	} else if t.ContainingNamespace != "" {
		b.WriteString(t.ContainingNamespace)
		b.WriteByte('.')
	}
	b.WriteString(t.Name)

	args := t.TypeArguments
	if args == nil {
		args = t.TypeParameters
	}
	if len(args) == 0 {
		return
	}
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.writeDisplay(b)
	}
	b.WriteByte('>')
}

// MetadataName returns the arity-suffixed name used to look up types, e.g.
// "Microsoft.Extensions.Logging.ILogger`1".
func (t *TypeRef) MetadataName() string {
	def := t.Definition
	name := typeKey(def.Name, len(def.TypeParameters))
	switch {
	case def.ContainingType != nil:
		return def.ContainingType.MetadataName() + "+" + name
	case def.ContainingNamespace != "":
		return def.ContainingNamespace + "." + name
	}
	return name
}

// HasMember reports whether name is declared as a member of t or one of its
// base classes.
func (t *TypeRef) HasMember(name string) bool {
	for cur, depth := t, 0; cur != nil && depth < maxBaseDepth; cur, depth = cur.BaseType(), depth+1 {
		if cur.Definition.members[name] {
			return true
		}
	}
	return false
}

// MemberNames returns the names declared by t and its base classes.
func (t *TypeRef) MemberNames() []string {
	seen := make(map[string]bool)
	var out []string
	for cur, depth := t, 0; cur != nil && depth < maxBaseDepth; cur, depth = cur.BaseType(), depth+1 {
		for name := range cur.Definition.members {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// NestedType finds a nested type declared in t or inherited from a base.
func (t *TypeRef) NestedType(name string, arity int) *TypeRef {
	key := typeKey(name, arity)
	for cur, depth := t, 0; cur != nil && depth < maxBaseDepth; cur, depth = cur.BaseType(), depth+1 {
		if n := cur.Definition.nested[key]; n != nil {
			return n
		}
	}
	return nil
}

const maxBaseDepth = 32
