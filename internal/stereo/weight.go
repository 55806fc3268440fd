package stereo

import (
	"math"
)

// SpatialWeightImage builds the center weighted window applied over a
// correlation kernel. The weight decays with the squared distance from
// the window center, exp(-(dx*dx+dy*dy)/twoSigmaSqr).
func SpatialWeightImage(kernWidth, kernHeight int, twoSigmaSqr float64) *Image {
	w := NewImage(kernWidth, kernHeight)
	cx := float64(kernWidth-1) / 2
	cy := float64(kernHeight-1) / 2
	for y := 0; y < kernHeight; y++ {
		for x := 0; x < kernWidth; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			w.Set(x, y, math.Exp(-(dx*dx+dy*dy)/twoSigmaSqr))
		}
	}
	return w
}

// AdjustWeightImage masks the template weights with the validity of
// the disparity patch and renormalizes the remainder to unit sum.
// Returns the weight sum before normalization, zero means the window
// holds no usable pixel. All three rasters must share one size.
func AdjustWeightImage(weight *Image, patch *Disparity, template *Image) float64 {
	var sum float64
	for y := 0; y < weight.H; y++ {
		for x := 0; x < weight.W; x++ {
			if _, _, ok := patch.Get(x, y); ok {
				w := template.At(x, y)
				weight.Set(x, y, w)
				sum += w
			} else {
				weight.Set(x, y, 0)
			}
		}
	}
	if sum > 0 {
		for i := range weight.Pix {
			weight.Pix[i] /= sum
		}
	}
	return sum
}
