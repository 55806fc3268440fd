package geom

import (
	"fmt"
	"strings"
)

var ErrDimNotEqual = fmt.Errorf("vectors dimension is not equal")

// BBox is an axis-aligned bounding box in an arbitrary number of
// dimensions. The zero value is the empty box and grows from the first
// point given to it.
type BBox struct {
	Min, Max Vector
}

func NewBBox(min, max Vector) (BBox, error) {
	if !min.SizeEqual(max) {
		return BBox{}, ErrDimNotEqual
	}
	for i := range min {
		if min[i] > max[i] {
			return BBox{}, fmt.Errorf("min %v exceeds max %v on axis %d", min[i], max[i], i)
		}
	}
	return BBox{Min: min.Copy(), Max: max.Copy()}, nil
}

func (b BBox) Empty() bool {
	return len(b.Min) == 0
}

func (b BBox) Dimensions() int {
	return len(b.Min)
}

func (b *BBox) Grow(p Vector) error {
	if b.Empty() {
		b.Min = p.Copy()
		b.Max = p.Copy()
		return nil
	}
	if !b.Min.SizeEqual(p) {
		return ErrDimNotEqual
	}
	for i := range p {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return nil
}

func (b *BBox) GrowBBox(o BBox) error {
	if o.Empty() {
		return nil
	}
	if err := b.Grow(o.Min); err != nil {
		return err
	}
	return b.Grow(o.Max)
}

// Contains reports whether the point lies inside the box. The interval
// is half-open: a point on the min face is inside, a point on the max
// face is not.
func (b BBox) Contains(p Vector) bool {
	if b.Empty() || !b.Min.SizeEqual(p) {
		return false
	}
	for i := range p {
		if p[i] < b.Min[i] || p[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsBBox reports whether o lies entirely inside b, faces
// included.
func (b BBox) ContainsBBox(o BBox) bool {
	if b.Empty() || o.Empty() || !b.Min.SizeEqual(o.Min) {
		return false
	}
	for i := range b.Min {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap on every axis.
// Boxes that only share a face or an edge do not intersect.
func (b BBox) Intersects(o BBox) bool {
	if b.Empty() || o.Empty() || !b.Min.SizeEqual(o.Min) {
		return false
	}
	for i := range b.Min {
		if b.Min[i] >= o.Max[i] || b.Max[i] <= o.Min[i] {
			return false
		}
	}
	return true
}

func (b BBox) Center() Vector {
	var c = make(Vector, len(b.Min))
	for i := range b.Min {
		c[i] = 0.5 * (b.Min[i] + b.Max[i])
	}
	return c
}

func (b BBox) Size() Vector {
	var s = make(Vector, len(b.Min))
	for i := range b.Min {
		s[i] = b.Max[i] - b.Min[i]
	}
	return s
}

func (b BBox) Copy() BBox {
	return BBox{Min: b.Min.Copy(), Max: b.Max.Copy()}
}

func (b BBox) Equal(o BBox) bool {
	return b.Min.Equal(o.Min) && b.Max.Equal(o.Max)
}

func (b BBox) String() string {
	var sb strings.Builder
	sb.WriteString("Min[")
	sb.WriteString(b.Min.String())
	sb.WriteString("] Max[")
	sb.WriteString(b.Max.String())
	sb.WriteByte(']')
	return sb.String()
}
