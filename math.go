package geostat

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

func pow2(x float64) float64 {
	return x * x
}

func pow3(x float64) float64 {
	return x * x * x
}

func distance(a, b *vec3d.T) float64 {
	return math.Sqrt(pow2(a[0]-b[0]) + pow2(a[1]-b[1]) + pow2(a[2]-b[2]))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// linspace returns n evenly spaced values over [lo, hi]. A single value sits
// at the midpoint.
func linspace(lo, hi float64, n int) []float64 {
	ret := make([]float64, n)
	if n == 1 {
		ret[0] = (lo + hi) / 2
		return ret
	}
	step := (hi - lo) / float64(n-1)
	for i := range ret {
		ret[i] = lo + step*float64(i)
	}
	ret[n-1] = hi
	return ret
}

var nan = math.NaN()
