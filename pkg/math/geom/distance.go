package geom

import (
	"math"
)

func EuclideanDistance(vec, vec1 Vector) (float64, error) {
	if !vec.SizeEqual(vec1) {
		return 0, ErrDimNotEqual
	}
	var result float64
	for i := range vec {
		d := vec[i] - vec1[i]
		result += d * d
	}
	return math.Sqrt(result), nil
}

func ChebyshevDistance(vec, vec1 Vector) (float64, error) {
	if !vec.SizeEqual(vec1) {
		return 0, ErrDimNotEqual
	}
	var result float64
	for i := range vec {
		if d := math.Abs(vec[i] - vec1[i]); d > result {
			result = d
		}
	}
	return result, nil
}

func ManhattanDistance(vec, vec1 Vector) (float64, error) {
	if !vec.SizeEqual(vec1) {
		return 0, ErrDimNotEqual
	}
	var result float64
	for i := range vec {
		result += math.Abs(vec[i] - vec1[i])
	}
	return result, nil
}
