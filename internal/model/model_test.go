package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/syntax"
)

func parse(t *testing.T, path, src string) *syntax.Document {
	t.Helper()
	doc, err := syntax.ParseString(path, src)
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

// fieldType returns the declared type node of the field named name.
func fieldType(t *testing.T, doc *syntax.Document, name string) *sitter.Node {
	t.Helper()
	for _, f := range syntax.Descendants(doc.Root(), syntax.KindField) {
		decl := syntax.FindChildByType(f, syntax.KindVariableDeclaration)
		for _, v := range syntax.FindChildrenByType(decl, syntax.KindVariableDeclarator) {
			if doc.Text(syntax.Field(v, "name", syntax.KindIdentifier)) == name {
				return syntax.Field(decl, "type")
			}
		}
	}
	t.Fatalf("field %s not found", name)
	return nil
}

const services = `using Microsoft.Extensions.Logging;
using Log = Microsoft.Extensions.Logging;

namespace App.Services
{
    class Base { }

    class Derived : Base
    {
        private readonly ILogger<Base> _a;
        private readonly Microsoft.Extensions.Logging.ILogger<Base> _b;
        private readonly Log.ILogger<Derived> _c;
        private readonly global::Microsoft.Extensions.Logging.ILogger<App.Services.Base> _d;
        private readonly ILogger _plain;
        private readonly ILogger<int> _int;
        private readonly ILogger<Missing> _missing;
        private readonly Inner _inner;

        class Inner { }
    }
}
`

func TestTypeOfResolvesLoggerForms(t *testing.T) {
	doc := parse(t, "Services.cs", services)
	comp := NewCompilation([]*syntax.Document{doc})
	m := comp.Model(doc)

	a := m.TypeOf(fieldType(t, doc, "_a"))
	require.NotNil(t, a)
	assert.Equal(t, "ILogger", a.Name)
	assert.Equal(t, "Microsoft.Extensions.Logging", a.ContainingNamespace)
	assert.Equal(t, KindInterface, a.Kind)
	require.Len(t, a.TypeArguments, 1)
	assert.Equal(t, "App.Services.Base", a.TypeArguments[0].DisplayName())
	assert.Equal(t, "Microsoft.Extensions.Logging.ILogger<App.Services.Base>", a.DisplayName())

	assert.Same(t, a, m.TypeOf(fieldType(t, doc, "_b")), "qualified and unqualified forms intern to one type")
	assert.Same(t, a, m.TypeOf(fieldType(t, doc, "_d")), "global:: alias")

	c := m.TypeOf(fieldType(t, doc, "_c"))
	require.NotNil(t, c)
	assert.Equal(t, "Microsoft.Extensions.Logging.ILogger<App.Services.Derived>", c.DisplayName())

	plain := m.TypeOf(fieldType(t, doc, "_plain"))
	require.NotNil(t, plain)
	assert.Equal(t, 0, plain.Arity())
	assert.NotSame(t, plain, a.Definition)

	i := m.TypeOf(fieldType(t, doc, "_int"))
	require.NotNil(t, i)
	assert.Equal(t, "int", i.TypeArguments[0].DisplayName())

	missing := m.TypeOf(fieldType(t, doc, "_missing"))
	require.NotNil(t, missing)
	assert.Equal(t, KindError, missing.TypeArguments[0].Kind)
	assert.Equal(t, "Missing", missing.TypeArguments[0].DisplayName())

	inner := m.TypeOf(fieldType(t, doc, "_inner"))
	require.NotNil(t, inner)
	assert.Equal(t, "App.Services.Derived.Inner", inner.DisplayName())
	assert.Equal(t, "App.Services.Derived+Inner", inner.MetadataName())
}

func TestDeclaredTypeAndBase(t *testing.T) {
	doc := parse(t, "Services.cs", services)
	comp := NewCompilation([]*syntax.Document{doc})
	m := comp.Model(doc)

	var derivedNode *sitter.Node
	for _, c := range syntax.Descendants(doc.Root(), syntax.KindClass) {
		if doc.Text(syntax.DeclaredName(c)) == "Derived" {
			derivedNode = c
		}
	}
	require.NotNil(t, derivedNode)

	derived := m.DeclaredType(derivedNode)
	require.NotNil(t, derived)
	assert.Same(t, comp.LookupType("App.Services.Derived"), derived)
	assert.Same(t, comp.LookupType("App.Services.Base"), derived.BaseType())
	assert.Nil(t, derived.BaseType().BaseType())
	assert.True(t, derived.HasMember("_a"))
	assert.True(t, derived.HasMember("Inner"))
	assert.False(t, derived.HasMember("Nope"))
}

func TestBaseTypeAcrossDocuments(t *testing.T) {
	baseDoc := parse(t, "Base.cs", `namespace Shared { public abstract class Repository<T> { } }`)
	doc := parse(t, "Orders.cs", `using Shared;
namespace Orders;

public partial class OrderRepository : Repository<Order>, IDisposable { }
public class Order { }
static partial class Helpers { }
partial class Helpers { }
`)
	comp := NewCompilation([]*syntax.Document{baseDoc, doc})

	repo := comp.LookupType("Orders.OrderRepository")
	require.NotNil(t, repo)
	require.NotNil(t, repo.BaseType())
	assert.Equal(t, "Shared.Repository<Orders.Order>", repo.BaseType().DisplayName())
	assert.Same(t, comp.LookupType("Shared.Repository`1"), repo.BaseType().Definition)

	helpers := comp.LookupType("Orders.Helpers")
	require.NotNil(t, helpers)
	assert.True(t, helpers.IsStatic, "static on one partial declaration marks the type")
}

func TestInterfaceFirstInBaseListIsNotBaseClass(t *testing.T) {
	doc := parse(t, "Svc.cs", `namespace N { interface IService { } class Service : IService, IUnknownThing { } class Web : ControllerBase { } }`)
	comp := NewCompilation([]*syntax.Document{doc})

	assert.Nil(t, comp.LookupType("N.Service").BaseType())

	web := comp.LookupType("N.Web").BaseType()
	require.NotNil(t, web, "unresolved non-interface names still act as base classes")
	assert.Equal(t, KindError, web.Kind)
	assert.Equal(t, "ControllerBase", web.DisplayName())
}

func TestGenericOwnerDisplayName(t *testing.T) {
	doc := parse(t, "G.cs", `using Microsoft.Extensions.Logging;
namespace N {
    class Cache<TKey, TValue> {
        private readonly ILogger<Cache<TKey, TValue>> _self;
        private readonly ILogger<TValue> _param;
        T Get<T>(ILogger<T> l) => default;
    }
}`)
	comp := NewCompilation([]*syntax.Document{doc})
	m := comp.Model(doc)

	cache := comp.LookupType("N.Cache`2")
	require.NotNil(t, cache)
	assert.Equal(t, "N.Cache<TKey, TValue>", cache.DisplayName())

	self := m.TypeOf(fieldType(t, doc, "_self"))
	require.NotNil(t, self)
	assert.Same(t, cache, self.TypeArguments[0], "instantiation over own parameters is the definition")

	param := m.TypeOf(fieldType(t, doc, "_param"))
	require.NotNil(t, param)
	assert.Equal(t, KindTypeParameter, param.TypeArguments[0].Kind)

	var methodParamType *sitter.Node
	for _, p := range syntax.Descendants(doc.Root(), syntax.KindParameter) {
		methodParamType = syntax.Field(p, "type")
	}
	mt := m.TypeOf(methodParamType)
	require.NotNil(t, mt)
	assert.Equal(t, "T", mt.TypeArguments[0].DisplayName())
}

func TestVisibleNames(t *testing.T) {
	doc := parse(t, "V.cs", `namespace N {
    class Base { protected object baseLogger; }
    class Derived : Base {
        private int _count;
        public string Name { get; }
        public Derived(object logger, int size) : base() {
            var local = 1;
            int.TryParse("1", out var parsed);
        }
    }
}`)
	comp := NewCompilation([]*syntax.Document{doc})
	m := comp.Model(doc)

	ctor := syntax.FirstDescendant(doc.Root(), syntax.KindConstructor)
	require.NotNil(t, ctor)
	names := m.VisibleNames(ctor)

	for _, want := range []string{"logger", "size", "local", "parsed", "_count", "Name", "baseLogger"} {
		assert.True(t, names[want], "expected %s to be visible", want)
	}
	assert.False(t, names["baseLogger1"])
}

func TestCompilationReplace(t *testing.T) {
	doc := parse(t, "A.cs", `namespace N { class A { } }`)
	comp := NewCompilation([]*syntax.Document{doc}, WithExternTypes(ExternType{MetadataName: "Serilog.ILogger", Kind: KindInterface}))
	require.NotNil(t, comp.LookupType("N.A"))

	next := parse(t, "A.cs", `namespace N { class B { } }`)
	replaced := comp.Replace(next)

	assert.Nil(t, replaced.LookupType("N.A"))
	assert.NotNil(t, replaced.LookupType("N.B"))
	assert.NotNil(t, replaced.LookupType("Serilog.ILogger"), "extra externs survive a replace")
	assert.NotNil(t, comp.LookupType("N.A"), "original compilation untouched")
	assert.Len(t, replaced.Documents(), 1)
}

func TestParseExternType(t *testing.T) {
	ext, err := ParseExternType("interface:Serilog.ILogger")
	require.NoError(t, err)
	assert.Equal(t, KindInterface, ext.Kind)
	assert.Equal(t, "Serilog.ILogger", ext.MetadataName)

	ext, err = ParseExternType("Acme.Logging.TypedLogger`1")
	require.NoError(t, err)
	assert.Equal(t, KindClass, ext.Kind)

	_, err = ParseExternType("widget:Acme.X")
	assert.Error(t, err)
	_, err = ParseExternType("Acme.X`z")
	assert.Error(t, err)
}

func TestTypeKindString(t *testing.T) {
	assert.Equal(t, "interface", KindInterface.String())
	assert.Equal(t, "TypeKind(99)", TypeKind(99).String())
}
