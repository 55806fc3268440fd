package stereo

import (
	"context"
	"math"

	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"
)

const (
	maxEMIterations  = 10
	emConvergence    = 1e-4
	emInitCandidates = 4
	// maxStep bounds a single update so one bad gradient cannot throw
	// the offset out of the window
	maxStep = 0.5
	// maxDrift bounds how far refinement may move an offset before the
	// pixel is treated as diverged
	maxDrift = 1.0
)

// ParabolaRefine nudges each disparity by the vertex of the parabola
// through the window costs at the probe offsets -1, 0 and +1, per
// enabled axis. A non convex fit or a vertex further than half a pixel
// from the center leaves the pixel untouched.
func ParabolaRefine(disp *Disparity, left, right *Image, kernWidth, kernHeight int, roi ROI, horizontal, vertical bool) {
	if !horizontal && !vertical {
		return
	}
	roi = roi.Clip(disp.W, disp.H)
	halfW, halfH := kernWidth/2, kernHeight/2
	for y := roi.MinY; y < roi.MaxY; y++ {
		for x := roi.MinX; x < roi.MaxX; x++ {
			dx, dy, ok := disp.Get(x, y)
			if !ok {
				continue
			}
			idx, idy := int(math.Round(dx)), int(math.Round(dy))
			c0 := ssdCost(left, right, x, y, idx, idy, halfW, halfH, 0, 0)
			if math.IsInf(c0, 1) {
				continue
			}
			if horizontal {
				cm := ssdCost(left, right, x, y, idx, idy, halfW, halfH, -1, 0)
				cp := ssdCost(left, right, x, y, idx, idy, halfW, halfH, 1, 0)
				if off, ok := parabolaVertex(cm, c0, cp); ok {
					dx = float64(idx) + off
				}
			}
			if vertical {
				cm := ssdCost(left, right, x, y, idx, idy, halfW, halfH, 0, -1)
				cp := ssdCost(left, right, x, y, idx, idy, halfW, halfH, 0, 1)
				if off, ok := parabolaVertex(cm, c0, cp); ok {
					dy = float64(idy) + off
				}
			}
			disp.Set(x, y, dx, dy)
		}
	}
}

// ssdCost sums squared differences over the kernel window centered at
// (x, y) in the left frame against the window at the disparity plus
// the probe offset in the right frame. A window leaving either frame
// costs +Inf.
func ssdCost(left, right *Image, x, y, dx, dy, halfW, halfH, px, py int) float64 {
	rx := x + dx + px
	ry := y + dy + py
	if x-halfW < 0 || x+halfW >= left.W || y-halfH < 0 || y+halfH >= left.H {
		return math.Inf(1)
	}
	if rx-halfW < 0 || rx+halfW >= right.W || ry-halfH < 0 || ry+halfH >= right.H {
		return math.Inf(1)
	}
	var sum float64
	for j := -halfH; j <= halfH; j++ {
		for i := -halfW; i <= halfW; i++ {
			d := left.At(x+i, y+j) - right.At(rx+i, ry+j)
			sum += d * d
		}
	}
	return sum
}

// parabolaVertex returns the offset of the minimum of the parabola
// through (-1, cm), (0, c0), (1, cp)
func parabolaVertex(cm, c0, cp float64) (float64, bool) {
	if math.IsInf(cm, 1) || math.IsInf(cp, 1) {
		return 0, false
	}
	denom := cm - 2*c0 + cp
	if denom <= 0 {
		return 0, false
	}
	off := (cm - cp) / (2 * denom)
	if off < -0.5 || off > 0.5 {
		return 0, false
	}
	return off, true
}

// AffineEMRefine reruns each disparity through an expectation
// maximization loop. Residuals under the current offset are scored
// against a gaussian inlier model, then a weighted Gauss Newton step
// updates the offset, spatially weighted by the kernel window.
// Initialization probes a few random candidate offsets around the
// input and starts from the cheapest. A pixel that drifts more than a
// pixel away from its input offset is treated as diverged and
// invalidated.
func AffineEMRefine(disp *Disparity, left, right *Image, kernWidth, kernHeight int, twoSigmaSqr float64, roi ROI, horizontal, vertical bool) {
	if !horizontal && !vertical {
		return
	}
	roi = roi.Clip(disp.W, disp.H)
	template := SpatialWeightImage(kernWidth, kernHeight, twoSigmaSqr)
	halfW, halfH := kernWidth/2, kernHeight/2
	for y := roi.MinY; y < roi.MaxY; y++ {
		for x := roi.MinX; x < roi.MaxX; x++ {
			dx0, dy0, ok := disp.Get(x, y)
			if !ok {
				continue
			}
			if !emWindowFits(left, right, x, y, dx0, dy0, halfW, halfH) {
				continue
			}
			dx, dy := emInit(left, right, template, x, y, dx0, dy0, halfW, halfH, horizontal, vertical)
			for iter := 0; iter < maxEMIterations; iter++ {
				if !emWindowFits(left, right, x, y, dx, dy, halfW, halfH) {
					break
				}
				stepX, stepY, ok := emStep(left, right, template, x, y, dx, dy, halfW, halfH)
				if !ok {
					break
				}
				if !horizontal {
					stepX = 0
				}
				if !vertical {
					stepY = 0
				}
				dx += clampStep(stepX)
				dy += clampStep(stepY)
				if math.Abs(stepX) < emConvergence && math.Abs(stepY) < emConvergence {
					break
				}
			}
			if math.Abs(dx-dx0) > maxDrift || math.Abs(dy-dy0) > maxDrift {
				disp.Invalidate(x, y)
				continue
			}
			disp.Set(x, y, dx, dy)
		}
	}
}

func clampStep(step float64) float64 {
	if step > maxStep {
		return maxStep
	}
	if step < -maxStep {
		return -maxStep
	}
	return step
}

// emWindowFits reports whether the left window and the bilinear
// sampled right window, including the gradient margin, stay inside
// their frames
func emWindowFits(left, right *Image, x, y int, dx, dy float64, halfW, halfH int) bool {
	if x-halfW < 0 || x+halfW >= left.W || y-halfH < 0 || y+halfH >= left.H {
		return false
	}
	fx := float64(x) + dx
	fy := float64(y) + dy
	if fx-float64(halfW)-1 < 0 || fx+float64(halfW)+1 > float64(right.W-1) {
		return false
	}
	if fy-float64(halfH)-1 < 0 || fy+float64(halfH)+1 > float64(right.H-1) {
		return false
	}
	return true
}

// emInit probes random candidate offsets around the input disparity
// and returns the cheapest start
func emInit(left, right, template *Image, x, y int, dx, dy float64, halfW, halfH int, horizontal, vertical bool) (float64, float64) {
	bestX, bestY := dx, dy
	best := weightedCost(left, right, template, x, y, dx, dy, halfW, halfH)
	for c := 0; c < emInitCandidates; c++ {
		cdx, cdy := dx, dy
		if horizontal {
			cdx += randHalf()
		}
		if vertical {
			cdy += randHalf()
		}
		if !emWindowFits(left, right, x, y, cdx, cdy, halfW, halfH) {
			continue
		}
		if cost := weightedCost(left, right, template, x, y, cdx, cdy, halfW, halfH); cost < best {
			best, bestX, bestY = cost, cdx, cdy
		}
	}
	return bestX, bestY
}

// randHalf draws a uniform offset in [-0.5, 0.5]
func randHalf() float64 {
	return float64(fastrand.Uint32n(1001))/1000 - 0.5
}

func weightedCost(left, right, template *Image, x, y int, dx, dy float64, halfW, halfH int) float64 {
	var sum float64
	for j := -halfH; j <= halfH; j++ {
		for i := -halfW; i <= halfW; i++ {
			r := right.Sample(float64(x+i)+dx, float64(y+j)+dy) - left.At(x+i, y+j)
			sum += template.At(i+halfW, j+halfH) * r * r
		}
	}
	return sum
}

// emStep runs one expectation pass to estimate the residual variance
// and one maximization pass solving the weighted normal equations for
// the offset update. A degenerate normal matrix falls back to per axis
// steps.
func emStep(left, right, template *Image, x, y int, dx, dy float64, halfW, halfH int) (float64, float64, bool) {
	var wsum, rsum float64
	for j := -halfH; j <= halfH; j++ {
		for i := -halfW; i <= halfW; i++ {
			w := template.At(i+halfW, j+halfH)
			r := right.Sample(float64(x+i)+dx, float64(y+j)+dy) - left.At(x+i, y+j)
			rsum += w * r * r
			wsum += w
		}
	}
	if wsum == 0 {
		return 0, 0, false
	}
	variance := rsum / wsum
	if variance < 1e-12 {
		return 0, 0, false
	}

	var a11, a12, a22, b1, b2 float64
	for j := -halfH; j <= halfH; j++ {
		for i := -halfW; i <= halfW; i++ {
			sx := float64(x+i) + dx
			sy := float64(y+j) + dy
			r := right.Sample(sx, sy) - left.At(x+i, y+j)
			w := template.At(i+halfW, j+halfH) * math.Exp(-r*r/(2*variance))
			gx := right.Sample(sx+0.5, sy) - right.Sample(sx-0.5, sy)
			gy := right.Sample(sx, sy+0.5) - right.Sample(sx, sy-0.5)
			a11 += w * gx * gx
			a12 += w * gx * gy
			a22 += w * gy * gy
			b1 += w * gx * r
			b2 += w * gy * r
		}
	}
	det := a11*a22 - a12*a12
	if math.Abs(det) < 1e-12 {
		if a11 < 1e-12 && a22 < 1e-12 {
			return 0, 0, false
		}
		var stepX, stepY float64
		if a11 >= 1e-12 {
			stepX = -b1 / a11
		}
		if a22 >= 1e-12 {
			stepY = -b2 / a22
		}
		return stepX, stepY, true
	}
	return -(a22*b1 - a12*b2) / det, -(a11*b2 - a12*b1) / det, true
}

// RefineBands splits the disparity rows into count bands and runs fn
// over the bands concurrently. Bands do not overlap, so a refiner that
// only writes pixels inside its region needs no locking.
func RefineBands(ctx context.Context, disp *Disparity, count int, fn func(ROI) error) error {
	if count < 1 {
		count = 1
	}
	rows := (disp.H + count - 1) / count
	g, ctx := errgroup.WithContext(ctx)
	for b := 0; b < count; b++ {
		roi := ROI{MinY: b * rows, MaxX: disp.W, MaxY: (b + 1) * rows}.Clip(disp.W, disp.H)
		if roi.MinY >= roi.MaxY {
			break
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(roi)
		})
	}
	return g.Wait()
}
