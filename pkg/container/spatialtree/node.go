package spatialtree

import (
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

// node is one cell of the subdivision. kids stays nil until the first
// descent through the cell and afterwards holds all 2^D children in
// orthant order: bit D-1-j of the index set means high half of axis j.
type node struct {
	cell  geom.BBox
	kids  []*node
	prims []Primitive
}

func (n *node) split() {
	dim := len(n.cell.Min)
	n.kids = make([]*node, 1<<uint(dim))
	for idx := range n.kids {
		min := make(geom.Vector, dim)
		max := make(geom.Vector, dim)
		for j := 0; j < dim; j++ {
			mid := 0.5 * (n.cell.Min[j] + n.cell.Max[j])
			if idx&(1<<uint(dim-1-j)) != 0 {
				min[j], max[j] = mid, n.cell.Max[j]
			} else {
				min[j], max[j] = n.cell.Min[j], mid
			}
		}
		n.kids[idx] = &node{cell: geom.BBox{Min: min, Max: max}}
	}
}

// childFit picks the child cell that fully contains the box. It
// reports false when the box straddles any split plane. A box whose
// min face sits exactly on a plane goes to the high side.
func (n *node) childFit(b geom.BBox) (int, bool) {
	dim := len(n.cell.Min)
	var idx int
	for j := 0; j < dim; j++ {
		mid := 0.5 * (n.cell.Min[j] + n.cell.Max[j])
		switch {
		case b.Min[j] >= mid:
			idx |= 1 << uint(dim-1-j)
		case b.Max[j] <= mid:
		default:
			return 0, false
		}
	}
	return idx, true
}

// childAt picks the child cell for a point. A point exactly on a split
// plane falls to the high side, mirroring childFit.
func (n *node) childAt(p geom.Vector) int {
	dim := len(n.cell.Min)
	var idx int
	for j := 0; j < dim; j++ {
		if p[j] >= 0.5*(n.cell.Min[j]+n.cell.Max[j]) {
			idx |= 1 << uint(dim-1-j)
		}
	}
	return idx
}

func (n *node) tooSmall(limit geom.Vector) bool {
	for j := range limit {
		if n.cell.Max[j]-n.cell.Min[j] > limit[j] {
			return false
		}
	}
	return true
}

func (n *node) overlaps(out *[]Pair) {
	for i := 0; i < len(n.prims); i++ {
		for j := i + 1; j < len(n.prims); j++ {
			if n.prims[i].BBox().Intersects(n.prims[j].BBox()) {
				*out = append(*out, Pair{First: n.prims[i], Second: n.prims[j]})
			}
		}
	}
	if len(n.prims) > 0 {
		for _, kid := range n.kids {
			kid.against(n.prims, out)
		}
	}
	for _, kid := range n.kids {
		kid.overlaps(out)
	}
}

// against pairs the residents of an ancestor with every resident of
// this subtree.
func (n *node) against(prims []Primitive, out *[]Pair) {
	for _, p := range prims {
		for _, q := range n.prims {
			if p.BBox().Intersects(q.BBox()) {
				*out = append(*out, Pair{First: p, Second: q})
			}
		}
	}
	for _, kid := range n.kids {
		kid.against(prims, out)
	}
}
