// Package syntax parses C# sources with tree-sitter and exposes the small
// node vocabulary the analyzer works with.
package syntax

import (
	"fmt"
	"runtime"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/errors"
)

var csharp = sitter.NewLanguage(tree_sitter_csharp.Language())

// Parsers are not safe for concurrent use and hold C memory, so they are
// recycled through a bounded channel and closed when it is full.
var parsers = make(chan *sitter.Parser, runtime.NumCPU())

func acquireParser() (*sitter.Parser, error) {
	select {
	case p := <-parsers:
		return p, nil
	default:
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(csharp); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to load C# grammar: %w", err)
	}
	return p, nil
}

func releaseParser(p *sitter.Parser) {
	select {
	case parsers <- p:
	default:
		p.Close()
	}
}

// Document is one parsed C# source file. The tree is owned by the
// document and released by Close; nodes must not be used afterwards.
type Document struct {
	Path   string
	Source []byte
	Tree   *sitter.Tree
}

// Parse parses src as C#. A tree containing error nodes is still returned;
// callers decide whether partial trees are acceptable.
func Parse(path string, src []byte) (*Document, error) {
	p, err := acquireParser()
	if err != nil {
		return nil, err
	}
	defer releaseParser(p)

	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, errors.NewParseError(path, 0, 0, fmt.Errorf("parser returned no tree"))
	}
	doc := &Document{Path: path, Source: src, Tree: tree}
	if doc.HasErrors() {
		debug.Log(debug.ComponentParse, "%s: tree contains syntax errors\n", path)
	}
	return doc, nil
}

// ParseString is Parse for string sources, mostly used by tests and the MCP
// inline-source tool.
func ParseString(path, src string) (*Document, error) {
	return Parse(path, []byte(src))
}

// Reparse returns a new document for the same path with src as content.
// The receiver is left untouched.
func (d *Document) Reparse(src []byte) (*Document, error) {
	return Parse(d.Path, src)
}

// Root returns the compilation_unit node.
func (d *Document) Root() *sitter.Node {
	if d == nil || d.Tree == nil {
		return nil
	}
	return d.Tree.RootNode()
}

// Text returns the source text covered by n.
func (d *Document) Text(n *sitter.Node) string {
	return Text(n, d.Source)
}

// HasErrors reports whether tree-sitter had to recover from syntax errors.
func (d *Document) HasErrors() bool {
	root := d.Root()
	return root != nil && root.HasError()
}

// FirstError returns the position of the first ERROR or MISSING node, if any.
func (d *Document) FirstError() (Position, bool) {
	var pos Position
	found := false
	Walk(d.Root(), func(n *sitter.Node) bool {
		if found {
			return false
		}
		if n.IsError() || n.IsMissing() {
			pos = PositionOf(n)
			found = true
			return false
		}
		return n.HasError()
	})
	return pos, found
}

// Close releases the tree.
func (d *Document) Close() {
	if d != nil && d.Tree != nil {
		d.Tree.Close()
		d.Tree = nil
	}
}
