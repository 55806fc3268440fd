package spatialtree

import (
	"bufio"
	"io"
	"strings"
)

// Print writes one line per cell and one line per resident primitive,
// depth first, children from the high orthant down to the low one.
// Cell lines carry a "+ " marker, resident lines only the bounding
// box, both indented two spaces per level.
func (t *Tree) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	t.root.print(bw, 0)
	return bw.Flush()
}

func (n *node) print(bw *bufio.Writer, depth int) {
	indent := strings.Repeat("  ", depth)
	bw.WriteString(indent)
	bw.WriteString("+ ")
	bw.WriteString(n.cell.String())
	bw.WriteByte('\n')
	for _, p := range n.prims {
		bw.WriteString(indent)
		bw.WriteString("  ")
		bw.WriteString(p.BBox().String())
		bw.WriteByte('\n')
	}
	for idx := len(n.kids) - 1; idx >= 0; idx-- {
		n.kids[idx].print(bw, depth+1)
	}
}
