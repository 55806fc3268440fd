package spatialtree

import (
	"fmt"

	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

const defaultMinScale = 1.0 / 1099511627776

var ErrDimensions = fmt.Errorf("dimensions do not match the tree")

// Primitive is anything with an axis-aligned bounding box that can
// answer an exact point membership test. The tree stores references
// only and never mutates a primitive.
type Primitive interface {
	BBox() geom.BBox
	Contains(point geom.Vector) bool
}

// Pair is an unordered pair of primitives whose bounding boxes
// overlap.
type Pair struct {
	First, Second Primitive
}

type Option func(*Tree)

// WithMinScale sets the smallest cell size as a fraction of the root
// extent. Subdivision stops once every axis of a cell is at or below
// root*scale, which bounds the depth for point-like primitives.
func WithMinScale(scale float64) Option {
	return func(t *Tree) {
		t.minScale = scale
	}
}

// Tree is a region tree over axis-aligned boxes in any number of
// dimensions. A subdivision halves every axis at its midpoint, so each
// split produces 2^D children. A primitive settles at the deepest cell
// that fully contains its box; a box straddling a split plane stays at
// the node above the plane. Adding a box outside the root doubles the
// root extent until it covers the box.
//
// A Tree is not safe for concurrent mutation. Concurrent reads are
// fine once loading is done.
type Tree struct {
	dim      int
	minScale float64
	root     *node
	len      int
}

func New(bounds geom.BBox, opts ...Option) (*Tree, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("bounds must not be empty")
	}
	for i := range bounds.Min {
		if bounds.Max[i] <= bounds.Min[i] {
			return nil, fmt.Errorf("bounds extent is not positive on axis %d", i)
		}
	}
	t := &Tree{
		dim:      bounds.Dimensions(),
		minScale: defaultMinScale,
		root:     &node{cell: bounds.Copy()},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.minScale <= 0 || t.minScale >= 1 {
		return nil, fmt.Errorf("min cell scale %v is outside (0, 1)", t.minScale)
	}
	return t, nil
}

func (t *Tree) Dimensions() int {
	return t.dim
}

func (t *Tree) Len() int {
	return t.len
}

// Bounds returns the current root cell. It starts as the box given to
// New and doubles whenever a primitive is added outside of it.
func (t *Tree) Bounds() geom.BBox {
	return t.root.cell.Copy()
}

// Add places the primitive at the deepest cell that fully contains its
// bounding box, splitting cells on the way down.
func (t *Tree) Add(p Primitive) error {
	b := p.BBox()
	if b.Dimensions() != t.dim {
		return ErrDimensions
	}
	for !t.root.cell.ContainsBBox(b) {
		t.growRoot(b)
	}
	limit := t.root.cell.Size()
	limit.Scale(t.minScale)
	n := t.root
	for !n.tooSmall(limit) {
		idx, ok := n.childFit(b)
		if !ok {
			break
		}
		if n.kids == nil {
			n.split()
		}
		n = n.kids[idx]
	}
	n.prims = append(n.prims, p)
	t.len++
	return nil
}

// growRoot doubles the root extent. Each axis extends away from the
// side the box already covers and the old root becomes the child in
// the matching orthant of the new one.
func (t *Tree) growRoot(b geom.BBox) {
	old := t.root
	min := old.cell.Min.Copy()
	max := old.cell.Max.Copy()
	var idx int
	for j := 0; j < t.dim; j++ {
		ext := max[j] - min[j]
		if b.Min[j] < min[j] {
			min[j] -= ext
			idx |= 1 << uint(t.dim-1-j)
		} else {
			max[j] += ext
		}
	}
	root := &node{cell: geom.BBox{Min: min, Max: max}}
	root.split()
	root.kids[idx] = old
	t.root = root
}

// Contains walks the single descent path for the point and returns the
// first primitive along it whose exact test accepts the point, topmost
// node first. Nil with a nil error means nothing matched.
func (t *Tree) Contains(point geom.Vector) (Primitive, error) {
	if point.Dimensions() != t.dim {
		return nil, ErrDimensions
	}
	for n := t.root; n != nil; {
		for _, p := range n.prims {
			if p.Contains(point) {
				return p, nil
			}
		}
		if n.kids == nil {
			break
		}
		n = n.kids[n.childAt(point)]
	}
	return nil, nil
}

// ContainsAll collects every primitive along the descent path whose
// exact test accepts the point, ordered from the root down.
func (t *Tree) ContainsAll(point geom.Vector) ([]Primitive, error) {
	if point.Dimensions() != t.dim {
		return nil, ErrDimensions
	}
	var matched []Primitive
	for n := t.root; n != nil; {
		for _, p := range n.prims {
			if p.Contains(point) {
				matched = append(matched, p)
			}
		}
		if n.kids == nil {
			break
		}
		n = n.kids[n.childAt(point)]
	}
	return matched, nil
}

// OverlapPairs reports every unordered pair of primitives whose boxes
// overlap, each pair exactly once. Boxes that only touch do not count.
func (t *Tree) OverlapPairs() []Pair {
	var pairs []Pair
	t.root.overlaps(&pairs)
	return pairs
}
