package display

import (
	"fmt"
	"io"
	"strings"
)

// FormatTree groups findings by file and owning class.
const FormatTree = "tree"

// treeNode is one line of the tree view. Leaves carry a finding.
type treeNode struct {
	label    string
	children []*treeNode
}

func (n *treeNode) child(label string) *treeNode {
	for _, c := range n.children {
		if c.label == label {
			return c
		}
	}
	c := &treeNode{label: label}
	n.children = append(n.children, c)
	return c
}

// buildTree relies on findings already being sorted by path and offset.
func buildTree(r *Report, opts Options, p palette) *treeNode {
	root := &treeNode{}
	for _, f := range r.Findings {
		d := f.Diagnostic
		file := root.child(p.path.Sprint(relPath(opts.Root, d.Location.Path)))
		class := file.child(f.Owner)
		label := fmt.Sprintf("%s %s %s", d.Location.Span.StartPos, p.code.Sprint(d.Code), d.Message)
		if len(f.Actions) > 0 {
			label += " " + p.dim.Sprintf("[%s]", actionKeys(f.Actions))
		}
		class.children = append(class.children, &treeNode{label: label})
	}
	return root
}

func writeTree(w io.Writer, r *Report, opts Options) error {
	p := newPalette(opts.Color)
	var sb strings.Builder
	for _, file := range buildTree(r, opts, p).children {
		sb.WriteString("→ ")
		sb.WriteString(file.label)
		sb.WriteString("\n")
		for i, class := range file.children {
			formatNode(&sb, class, "  ", i == len(file.children)-1)
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "%s %s\n", p.err.Sprint("error:"), e)
	}
	fmt.Fprintf(&sb, "%d %s in %d files\n", len(r.Findings), plural(len(r.Findings), "finding"), r.Files)
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatNode(sb *strings.Builder, node *treeNode, prefix string, isLast bool) {
	branch := "├─→ "
	childPrefix := prefix + "│ "
	if isLast {
		branch = "└─→ "
		childPrefix = prefix + "  "
	}
	sb.WriteString(prefix)
	sb.WriteString(branch)
	sb.WriteString(node.label)
	sb.WriteString("\n")
	for i, c := range node.children {
		formatNode(sb, c, childPrefix, i == len(node.children)-1)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
