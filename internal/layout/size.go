package layout

import (
	"unicode/utf8"

	"github.com/starford/raido/internal/diagram"
)

// nodeSize sizes a box to fit its label and, for class and entity nodes,
// one line per member below a header.
func nodeSize(n diagram.Node, o Options) Size {
	longest := utf8.RuneCountInString(n.Label)
	for _, m := range n.Attributes {
		longest = max(longest, utf8.RuneCountInString(m))
	}
	for _, m := range n.Methods {
		longest = max(longest, utf8.RuneCountInString(m))
	}

	s := Size{
		Width:  max(o.NodeWidth, float64(longest)*o.CharWidth+o.Padding),
		Height: o.NodeHeight,
	}
	if members := len(n.Attributes) + len(n.Methods); members > 0 {
		s.Height = max(s.Height, o.HeaderHeight+float64(members)*o.LineHeight+o.Padding)
	}
	switch n.Shape {
	case diagram.ShapeCircle:
		side := max(s.Width, s.Height)
		s = Size{Width: side, Height: side}
	case diagram.ShapeBar:
		s.Height = max(o.NodeHeight/6, 4)
	}
	return s
}
