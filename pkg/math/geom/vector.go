package geom

import (
	"math"
	"strconv"
	"strings"
)

type Vector []float64

func NewVector(points ...float64) Vector {
	return points
}

func (v Vector) Dimensions() int {
	return len(v)
}

func (v Vector) At(idx int) float64 {
	return v[idx]
}

func (v Vector) Points() []float64 {
	return v
}

func (v Vector) Copy() Vector {
	var v1 = make(Vector, len(v))
	copy(v1, v)
	return v1
}

func (v Vector) Scale(value float64) {
	for i := range v {
		v[i] *= value
	}
}

func (v Vector) Apply(applyFn func(float64) float64) {
	for i := range v {
		v[i] = applyFn(v[i])
	}
}

func (v Vector) Map(applyFn func(float64) float64) Vector {
	var v1 = make(Vector, len(v))
	for i := range v {
		v1[i] = applyFn(v[i])
	}
	return v1
}

func (v Vector) Sum() float64 {
	var s float64
	for i := range v {
		s += v[i]
	}
	return s
}

func (v Vector) Mean() float64 {
	return v.Sum() / float64(len(v))
}

func (v Vector) Magnitude() float64 {
	var s float64
	for i := range v {
		s += v[i] * v[i]
	}
	return math.Sqrt(s)
}

func (v Vector) Max() float64 {
	var max = -math.MaxFloat64
	for i := range v {
		if v[i] > max {
			max = v[i]
		}
	}
	return max
}

func (v Vector) Min() float64 {
	var min = math.MaxFloat64
	for i := range v {
		if v[i] < min {
			min = v[i]
		}
	}
	return min
}

func (v Vector) SizeEqual(vec Vector) bool {
	return len(v) == len(vec)
}

func (v Vector) Equal(vec Vector) bool {
	if len(v) != len(vec) {
		return false
	}
	for i, value := range v {
		if vec[i] != value {
			return false
		}
	}
	return true
}

// String renders the vector as VectorN(c1,...,cN), the form used by the
// tree text dump.
func (v Vector) String() string {
	var sb strings.Builder
	sb.WriteString("Vector")
	sb.WriteString(strconv.Itoa(len(v)))
	sb.WriteByte('(')
	for i := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(Ftoa(v[i]))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Ftoa formats a coordinate with the shortest decimal representation
// that round-trips. Negative zero collapses to "0".
func Ftoa(value float64) string {
	if value == 0 {
		return "0"
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}
