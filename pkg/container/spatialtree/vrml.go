package spatialtree

import (
	"bufio"
	"fmt"
	"io"

	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

// Seven colors cycled by depth. Cells use the base color, resident
// primitives the doubled one, so residents stand out at their level.
var vrmlColors = [7][3]float64{
	{0.5, 0, 0},
	{0, 0.5, 0},
	{0, 0, 0.5},
	{0.5, 0, 0.5},
	{0, 0.5, 0.5},
	{0.5, 0.5, 0},
	{0.5, 0.5, 0.5},
}

// WriteVRML renders the first two axes of the tree as a VRML 2.0
// scene. Every cell and every resident box becomes a closed rectangle
// outline sunk by half a unit per level, with coordinates taken
// relative to the root min corner and the whole scene re-centered on
// the root. Trees with fewer than two dimensions cannot be rendered.
func (t *Tree) WriteVRML(w io.Writer) error {
	if t.dim < 2 {
		return fmt.Errorf("vrml rendering needs at least 2 dimensions, tree has %d", t.dim)
	}
	bw := bufio.NewWriter(w)
	size := t.root.cell.Size()
	bw.WriteString("#VRML V2.0 utf8\n#\nTransform {\n  translation ")
	bw.WriteString(geom.Ftoa(-0.5 * size[0]))
	bw.WriteByte(' ')
	bw.WriteString(geom.Ftoa(-0.5 * size[1]))
	bw.WriteString(" 0\n  children [\n")
	t.root.vrml(bw, 0, t.root.cell.Min)
	bw.WriteString("  ]\n}\n")
	return bw.Flush()
}

func (n *node) vrml(bw *bufio.Writer, depth int, origin geom.Vector) {
	c := vrmlColors[depth%len(vrmlColors)]
	writeOutline(bw, n.cell, depth, c, origin)
	for _, p := range n.prims {
		writeOutline(bw, p.BBox(), depth, [3]float64{2 * c[0], 2 * c[1], 2 * c[2]}, origin)
	}
	for idx := len(n.kids) - 1; idx >= 0; idx-- {
		n.kids[idx].vrml(bw, depth+1, origin)
	}
}

// writeOutline emits one Shape holding the rectangle of the box's
// first two axes as an indexed line loop.
func writeOutline(bw *bufio.Writer, b geom.BBox, depth int, c [3]float64, origin geom.Vector) {
	x0 := geom.Ftoa(b.Min[0] - origin[0])
	y0 := geom.Ftoa(b.Min[1] - origin[1])
	x1 := geom.Ftoa(b.Max[0] - origin[0])
	y1 := geom.Ftoa(b.Max[1] - origin[1])
	z := geom.Ftoa(-0.5 * float64(depth))

	bw.WriteString("    Shape {\n")
	bw.WriteString("      appearance Appearance {\n")
	bw.WriteString("        material Material {\n")
	bw.WriteString("          emissiveColor ")
	bw.WriteString(geom.Ftoa(c[0]))
	bw.WriteByte(' ')
	bw.WriteString(geom.Ftoa(c[1]))
	bw.WriteByte(' ')
	bw.WriteString(geom.Ftoa(c[2]))
	bw.WriteString("\n        }\n      }\n")
	bw.WriteString("      geometry IndexedLineSet {\n")
	bw.WriteString("        coord Coordinate {\n")
	bw.WriteString("          point [\n")
	writeCorner(bw, x0, y0, z)
	writeCorner(bw, x0, y1, z)
	writeCorner(bw, x1, y1, z)
	writeCorner(bw, x1, y0, z)
	bw.WriteString("          ]\n        }\n")
	bw.WriteString("        coordIndex [ 0, 1, 2, 3, 0, -1, ]\n")
	bw.WriteString("      }\n    }\n")
}

func writeCorner(bw *bufio.Writer, x, y, z string) {
	bw.WriteString("            ")
	bw.WriteString(x)
	bw.WriteByte(' ')
	bw.WriteString(y)
	bw.WriteByte(' ')
	bw.WriteString(z)
	bw.WriteString(",\n")
}
