package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/syntax"
)

const source = `using Microsoft.Extensions.Logging;

namespace ConsoleApplication1
{
    class MyClass : OtherClass
    {
        private readonly ILogger<OtherClass> _logger, _second;

        public MyClass(object p, [My] ILogger<OtherClass> logger, int retries = 3) : base(p, logger: logger) { }

        public MyClass() : this(null, null) { }

        class Nested<T>
        {
            private int _n;
        }
    }

    class OtherClass
    {
        public OtherClass(object p, ILogger<OtherClass> logger) { }
    }

    interface IHolder
    {
        class InInterface { }
    }
}
`

func load(t *testing.T) *model.Model {
	t.Helper()
	doc, err := syntax.ParseString("Sites.cs", source)
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return model.NewCompilation([]*syntax.Document{doc}).Model(doc)
}

func TestClasses(t *testing.T) {
	m := load(t)
	classes := Classes(m)

	var names []string
	for _, c := range classes {
		names = append(names, c.DisplayName)
	}
	assert.Equal(t, []string{
		"ConsoleApplication1.MyClass",
		"ConsoleApplication1.MyClass.Nested<T>",
		"ConsoleApplication1.OtherClass",
		"ConsoleApplication1.IHolder.InInterface",
	}, names)

	nested := classes[1]
	assert.Equal(t, []string{"T"}, nested.TypeParameterNames)
	assert.Same(t, classes[0], nested.Outer)
	require.Len(t, nested.Fields, 1)
}

func TestClassSiteProjection(t *testing.T) {
	m := load(t)
	my := Classes(m)[0]

	assert.Equal(t, "MyClass", my.Name)
	assert.False(t, my.IsStatic)
	require.NotNil(t, my.BaseType)
	assert.Equal(t, "ConsoleApplication1.OtherClass", my.BaseType.DisplayName())
	assert.Equal(t, "OtherClass", m.Document().Text(my.BaseTypeNode))

	require.Len(t, my.Fields, 1)
	field := my.Fields[0]
	assert.Equal(t, []string{"_logger", "_second"}, field.Names)
	assert.Equal(t, "ILogger<OtherClass>", m.Document().Text(field.TypeNode))
	require.NotNil(t, field.Type)
	assert.Equal(t, "Microsoft.Extensions.Logging.ILogger<ConsoleApplication1.OtherClass>", field.Type.DisplayName())
	assert.Same(t, my, field.Class)
}

func TestConstructorProjection(t *testing.T) {
	m := load(t)
	my := Classes(m)[0]
	require.Len(t, my.Constructors, 2)

	ctor := my.Constructors[0]
	require.Len(t, ctor.Parameters, 3)
	assert.Equal(t, "p", ctor.Parameters[0].Name)
	assert.False(t, ctor.Parameters[0].HasAttributes)

	logger := ctor.Parameters[1]
	assert.Equal(t, "logger", logger.Name)
	assert.True(t, logger.HasAttributes)
	assert.Equal(t, "ILogger<OtherClass>", m.Document().Text(logger.TypeNode))
	assert.Same(t, my.Fields[0].Type, logger.Type)

	assert.True(t, ctor.Parameters[2].HasDefault)

	require.NotNil(t, ctor.BaseInitializer)
	args := ctor.BaseInitializer.Arguments
	require.Len(t, args, 2)
	assert.Equal(t, "p", m.Document().Text(args[0].Expression))
	assert.Empty(t, args[0].Name)
	assert.Equal(t, "logger", m.Document().Text(args[1].Expression))
	assert.Equal(t, "logger", args[1].Name)

	chained := my.Constructors[1]
	assert.Nil(t, chained.BaseInitializer)
	assert.True(t, chained.ChainsToThis)
}

func TestProjectIsTagged(t *testing.T) {
	m := load(t)
	root := m.Document().Root()

	assert.IsType(t, &ClassSite{}, Project(syntax.FirstDescendant(root, syntax.KindClass), m, nil))
	assert.IsType(t, &ParameterSite{}, Project(syntax.FirstDescendant(root, syntax.KindParameter), m, nil))
	assert.Nil(t, Project(syntax.FirstDescendant(root, syntax.KindField), m, nil), "fields need an owner")
	assert.Nil(t, Project(syntax.FirstDescendant(root, syntax.KindUsingDirective), m, nil))
}

func TestFieldAt(t *testing.T) {
	m := load(t)
	my := Classes(m)[0]
	want := my.Fields[0]

	got := FieldAt(m, int(want.TypeNode.StartByte()))
	require.NotNil(t, got)
	assert.True(t, syntax.SameNode(want.Node, got.Node))
	assert.Equal(t, "MyClass", got.Class.Name)

	nested := FieldAt(m, int(Classes(m)[1].Fields[0].Node.StartByte()))
	require.NotNil(t, nested)
	assert.Equal(t, "Nested", nested.Class.Name)
	require.NotNil(t, nested.Class.Outer)
	assert.Equal(t, "MyClass", nested.Class.Outer.Name)

	assert.Nil(t, FieldAt(m, 0))
}
