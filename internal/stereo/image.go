// Package stereo carries the numeric collaborators of the disparity
// refinement pipeline: the weight windows, the left right consistency
// check and subpixel refinement over float rasters.
package stereo

import (
	"math"
)

// Image is a dense float raster in row major order.
type Image struct {
	W, H int
	Pix  []float64
}

func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]float64, w*h)}
}

func (m *Image) At(x, y int) float64 {
	return m.Pix[y*m.W+x]
}

func (m *Image) Set(x, y int, v float64) {
	m.Pix[y*m.W+x] = v
}

// Sample returns the bilinear interpolation at a fractional location.
// The location must lie inside [0, W-1] x [0, H-1].
func (m *Image) Sample(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > m.W-1 {
		x1 = m.W - 1
	}
	if y1 > m.H-1 {
		y1 = m.H - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	top := (1-fx)*m.At(x0, y0) + fx*m.At(x1, y0)
	bottom := (1-fx)*m.At(x0, y1) + fx*m.At(x1, y1)
	return (1-fy)*top + fy*bottom
}

// Disparity maps pixels of the left frame onto the right frame.
// Offsets are meaningless where Valid is false.
type Disparity struct {
	W, H  int
	DX    []float64
	DY    []float64
	Valid []bool
}

func NewDisparity(w, h int) *Disparity {
	return &Disparity{
		W:     w,
		H:     h,
		DX:    make([]float64, w*h),
		DY:    make([]float64, w*h),
		Valid: make([]bool, w*h),
	}
}

func (d *Disparity) Get(x, y int) (dx, dy float64, ok bool) {
	i := y*d.W + x
	return d.DX[i], d.DY[i], d.Valid[i]
}

func (d *Disparity) Set(x, y int, dx, dy float64) {
	i := y*d.W + x
	d.DX[i] = dx
	d.DY[i] = dy
	d.Valid[i] = true
}

func (d *Disparity) Invalidate(x, y int) {
	d.Valid[y*d.W+x] = false
}

func (d *Disparity) ValidCount() int {
	n := 0
	for _, ok := range d.Valid {
		if ok {
			n++
		}
	}
	return n
}

// ROI is a half open pixel region [MinX, MaxX) x [MinY, MaxY).
type ROI struct {
	MinX, MinY, MaxX, MaxY int
}

func FullROI(w, h int) ROI {
	return ROI{MaxX: w, MaxY: h}
}

func (r ROI) Clip(w, h int) ROI {
	if r.MinX < 0 {
		r.MinX = 0
	}
	if r.MinY < 0 {
		r.MinY = 0
	}
	if r.MaxX > w {
		r.MaxX = w
	}
	if r.MaxY > h {
		r.MaxY = h
	}
	return r
}
