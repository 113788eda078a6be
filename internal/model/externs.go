package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ExternType describes a type that is referenced but not declared in the
// analyzed sources, e.g. "Microsoft.Extensions.Logging.ILogger`1".
type ExternType struct {
	MetadataName string
	Kind         TypeKind
}

// DefaultExternTypes are the framework types every compilation knows about.
var DefaultExternTypes = []ExternType{
	{"Microsoft.Extensions.Logging.ILogger", KindInterface},
	{"Microsoft.Extensions.Logging.ILogger`1", KindInterface},
	{"Microsoft.Extensions.Logging.ILoggerFactory", KindInterface},
	{"Microsoft.Extensions.Logging.ILoggerProvider", KindInterface},
	{"Microsoft.Extensions.Logging.Logger`1", KindClass},
	{"Microsoft.Extensions.Logging.Abstractions.NullLogger`1", KindClass},
	{"System.Object", KindClass},
	{"System.Attribute", KindClass},
	{"System.Exception", KindClass},
	{"System.IDisposable", KindInterface},
	{"System.Threading.Tasks.Task", KindClass},
	{"System.Threading.Tasks.Task`1", KindClass},
	{"System.Collections.Generic.IEnumerable`1", KindInterface},
	{"System.Collections.Generic.IList`1", KindInterface},
	{"System.Collections.Generic.List`1", KindClass},
	{"System.Collections.Generic.Dictionary`2", KindClass},
}

// ParseExternType parses "kind:Namespace.Name`N", e.g.
// "interface:Serilog.ILogger". The kind defaults to class.
func ParseExternType(spec string) (ExternType, error) {
	kind := KindClass
	name := strings.TrimSpace(spec)
	if k, rest, ok := strings.Cut(name, ":"); ok {
		parsed, valid := ParseTypeKind(strings.TrimSpace(k))
		if !valid {
			return ExternType{}, fmt.Errorf("unknown type kind %q in %q", k, spec)
		}
		kind = parsed
		name = strings.TrimSpace(rest)
	}
	if name == "" {
		return ExternType{}, fmt.Errorf("empty extern type name in %q", spec)
	}
	if _, _, _, err := splitMetadataName(name); err != nil {
		return ExternType{}, err
	}
	return ExternType{MetadataName: name, Kind: kind}, nil
}

func splitMetadataName(metadata string) (ns, name string, arity int, err error) {
	full := metadata
	if i := strings.LastIndexByte(full, '`'); i >= 0 {
		arity, err = strconv.Atoi(full[i+1:])
		if err != nil || arity < 0 {
			return "", "", 0, fmt.Errorf("invalid arity in %q", metadata)
		}
		full = full[:i]
	}
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		ns, name = full[:i], full[i+1:]
	} else {
		name = full
	}
	if name == "" {
		return "", "", 0, fmt.Errorf("invalid type name %q", metadata)
	}
	return ns, name, arity, nil
}

var predefinedKeywords = []string{
	"bool", "byte", "sbyte", "char", "decimal", "double", "float",
	"int", "uint", "long", "ulong", "short", "ushort", "nint", "nuint",
	"object", "string", "void", "dynamic",
}
