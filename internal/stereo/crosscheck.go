package stereo

import (
	"math"
)

// CrossCheck rejects pixels that fail the left to right consistency
// test. The forward offset and the reverse offset found at its landing
// pixel are expected to be opposite in sign and equal in magnitude, a
// mismatch beyond the threshold on either axis invalidates the pixel.
// Pixels whose counterpart is missing or outside the frame are
// rejected as well. Returns the number of surviving pixels.
func CrossCheck(l2r, r2l *Disparity, threshold float64) int {
	count := 0
	for y := 0; y < l2r.H; y++ {
		for x := 0; x < l2r.W; x++ {
			dx, dy, ok := l2r.Get(x, y)
			if !ok {
				continue
			}
			rx := x + int(math.Round(dx))
			ry := y + int(math.Round(dy))
			if rx < 0 || rx >= r2l.W || ry < 0 || ry >= r2l.H {
				l2r.Invalidate(x, y)
				continue
			}
			rdx, rdy, ok := r2l.Get(rx, ry)
			if !ok {
				l2r.Invalidate(x, y)
				continue
			}
			if math.Abs(dx+rdx) > threshold || math.Abs(dy+rdy) > threshold {
				l2r.Invalidate(x, y)
				continue
			}
			count++
		}
	}
	return count
}
