// Package edit applies ordered lists of byte-range replacements to a source
// snapshot. Edits never mutate their input; Apply returns new bytes.
package edit

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/ila/internal/errors"
)

// TextEdit replaces bytes [Start, End) with NewText.
type TextEdit struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"new_text"`
}

// Builder accumulates edits against one snapshot.
type Builder struct {
	edits []TextEdit
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ReplaceRange adds an edit that replaces bytes [start, end) with text.
func (b *Builder) ReplaceRange(start, end int, text string) {
	b.edits = append(b.edits, TextEdit{Start: start, End: end, NewText: text})
}

// ReplaceNode replaces the exact span of n, leaving surrounding trivia alone.
func (b *Builder) ReplaceNode(n *sitter.Node, text string) {
	b.ReplaceRange(int(n.StartByte()), int(n.EndByte()), text)
}

// Insert adds an edit that inserts text at offset.
func (b *Builder) Insert(offset int, text string) {
	b.ReplaceRange(offset, offset, text)
}

// Len returns the number of pending edits.
func (b *Builder) Len() int {
	return len(b.edits)
}

// Edits returns a copy of the pending edits in insertion order.
func (b *Builder) Edits() []TextEdit {
	return append([]TextEdit(nil), b.edits...)
}

// Normalize sorts edits by position and rejects overlaps. Inserts at the
// same offset keep their insertion order. Identical duplicate edits are
// collapsed.
func Normalize(edits []TextEdit, size int) ([]TextEdit, error) {
	sorted := append([]TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := sorted[:0]
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > size {
			return nil, fmt.Errorf("edit [%d,%d) out of range for %d bytes", e.Start, e.End, size)
		}
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev == e && e.Start != e.End {
				continue
			}
			if e.Start < prev.End {
				return nil, fmt.Errorf("%w: [%d,%d) and [%d,%d)", errors.ErrOverlappingEdits, prev.Start, prev.End, e.Start, e.End)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Apply applies all edits to src in one pass and returns the new content.
func Apply(src []byte, edits []TextEdit) ([]byte, error) {
	norm, err := Normalize(edits, len(src))
	if err != nil {
		return nil, err
	}
	growth := 0
	for _, e := range norm {
		growth += len(e.NewText) - (e.End - e.Start)
	}
	out := make([]byte, 0, len(src)+growth)
	last := 0
	for _, e := range norm {
		out = append(out, src[last:e.Start]...)
		out = append(out, e.NewText...)
		last = e.End
	}
	return append(out, src[last:]...), nil
}

// Rewrite returns the text of src[start:end) with edits applied. Every edit
// must lie inside the range; offsets stay absolute.
func Rewrite(src []byte, start, end int, edits []TextEdit) (string, error) {
	if start < 0 || end > len(src) || start > end {
		return "", fmt.Errorf("range [%d,%d) out of bounds", start, end)
	}
	local := make([]TextEdit, 0, len(edits))
	for _, e := range edits {
		if e.Start < start || e.End > end {
			return "", fmt.Errorf("edit [%d,%d) outside range [%d,%d)", e.Start, e.End, start, end)
		}
		local = append(local, TextEdit{Start: e.Start - start, End: e.End - start, NewText: e.NewText})
	}
	out, err := Apply(src[start:end], local)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Fingerprint identifies a source snapshot.
func Fingerprint(src []byte) uint64 {
	return xxhash.Sum64(src)
}
