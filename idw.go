package geostat

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

const DefaultIDWPower = 2.0

type IDWOptions struct {
	// Power is the distance exponent; zero means DefaultIDWPower.
	Power float64
}

// IDW is the inverse-distance weighted estimator.
type IDW struct {
	pos    []vec3d.T
	values []float64
	power  float64
}

func NewIDW(ps *PointSet, attr string, opts *IDWOptions) (*IDW, error) {
	power := DefaultIDWPower
	if opts != nil && opts.Power != 0 {
		power = opts.Power
	}
	if !(power > 0) || math.IsInf(power, 0) {
		return nil, invalidInput("idw power %g must be a finite value > 0", power)
	}
	if ps == nil || ps.Len() == 0 {
		return nil, invalidInput("idw needs at least 1 sample")
	}
	values, err := ps.Values(attr)
	if err != nil {
		return nil, err
	}
	return &IDW{pos: ps.Positions(), values: values, power: power}, nil
}

func (w *IDW) Method() Method {
	return MethodIDW
}

func (w *IDW) Power() float64 {
	return w.power
}

func (w *IDW) Estimate(p vec3d.T) (Estimate, error) {
	var num, den float64
	for i := range w.pos {
		d := distance(&w.pos[i], &p)
		if d == 0 {
			return Estimate{Value: w.values[i], Variance: nan}, nil
		}
		wi := math.Pow(d, -w.power)
		num += wi * w.values[i]
		den += wi
	}
	if den == 0 || math.IsInf(den, 0) {
		return w.nearest(p), nil
	}
	return Estimate{Value: num / den, Variance: nan}, nil
}

// nearest handles weights that under- or overflow, where the closest sample
// dominates the weighted mean.
func (w *IDW) nearest(p vec3d.T) Estimate {
	best, bestD := 0, math.Inf(1)
	for i := range w.pos {
		if d := distance(&w.pos[i], &p); d < bestD {
			best, bestD = i, d
		}
	}
	return Estimate{Value: w.values[best], Variance: nan}
}
