package syntax

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Position is a 1-based line/column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open byte range with its start and end positions.
type Span struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	StartPos Position `json:"start_pos"`
	EndPos   Position `json:"end_pos"`
}

// PositionOf returns the start position of n, 1-based.
func PositionOf(n *sitter.Node) Position {
	if n == nil {
		return Position{}
	}
	p := n.StartPosition()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// SpanOf returns the span covered by n.
func SpanOf(n *sitter.Node) Span {
	if n == nil {
		return Span{}
	}
	end := n.EndPosition()
	return Span{
		Start:    int(n.StartByte()),
		End:      int(n.EndByte()),
		StartPos: PositionOf(n),
		EndPos:   Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
	}
}

// Contains reports whether offset lies inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}
